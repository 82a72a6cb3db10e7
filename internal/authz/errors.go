package authz

import (
	"errors"
	"fmt"
)

var (
	// ErrDenied marks authorization failures raised by the gateway.
	ErrDenied = errors.New("authz: denied")
	// ErrResourceRequired indicates the caller omitted the resource for an
	// ownership-scoped action. This is API misuse, not a denial.
	ErrResourceRequired = errors.New("authz: resource required for ownership check")
	// ErrRelationNotFound indicates an ownership chain could not be resolved
	// because a parent record no longer exists. Distinct from denial; it is a
	// data-integrity signal.
	ErrRelationNotFound = errors.New("authz: related record not found")
)

// DeniedError carries the full context of a refused check.
type DeniedError struct {
	Actor  Actor
	Action Action
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("authz: %s denied for %s (%s): %s", e.Action, e.Actor.Username, e.Actor.Role, e.Reason)
}

func (e *DeniedError) Unwrap() error {
	return ErrDenied
}
