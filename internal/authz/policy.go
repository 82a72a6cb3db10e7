package authz

import (
	"context"
	"fmt"
)

// Capabilities maps each role to the set of actions it may perform before
// any ownership rule is considered.
type Capabilities map[Role]map[Action]struct{}

// DefaultCapabilities returns the shipped policy. The table is built once at
// startup and never mutated; tests may construct alternate tables.
func DefaultCapabilities() Capabilities {
	grant := func(set map[Action]struct{}, actions ...Action) {
		for _, a := range actions {
			set[a] = struct{}{}
		}
	}
	view := func(kind ResourceKind) []Action {
		return []Action{ViewAll(kind), ViewOne(kind)}
	}

	admin := make(map[Action]struct{})
	grant(admin, view(KindClient)...)
	grant(admin, Create(KindClient), Update(KindClient))
	grant(admin, view(KindContract)...)
	grant(admin, Create(KindContract), Update(KindContract))
	grant(admin, view(KindEvent)...)
	grant(admin, Create(KindEvent), Update(KindEvent), AssignSupport(), ViewUnassigned())
	grant(admin, view(KindUser)...)
	grant(admin, Create(KindUser), Update(KindUser))

	manager := make(map[Action]struct{})
	grant(manager, view(KindClient)...)
	grant(manager, view(KindContract)...)
	grant(manager, Create(KindContract), Update(KindContract))
	grant(manager, view(KindEvent)...)
	grant(manager, Update(KindEvent), AssignSupport(), ViewUnassigned())
	grant(manager, view(KindUser)...)
	grant(manager, Create(KindUser), Update(KindUser))

	sailor := make(map[Action]struct{})
	grant(sailor, view(KindClient)...)
	grant(sailor, Create(KindClient), Update(KindClient))
	grant(sailor, view(KindContract)...)
	grant(sailor, Update(KindContract))
	grant(sailor, view(KindEvent)...)
	grant(sailor, Create(KindEvent))

	support := make(map[Action]struct{})
	grant(support, view(KindClient)...)
	grant(support, view(KindContract)...)
	grant(support, view(KindEvent)...)
	grant(support, Update(KindEvent))

	return Capabilities{
		RoleAdmin:   admin,
		RoleManager: manager,
		RoleSailor:  sailor,
		RoleSupport: support,
	}
}

// Resolver walks the ownership chain event -> contract -> client. Each call
// reads current state; stale or cached snapshots would open a window where a
// contract is unsigned or reassigned between check and use.
type Resolver interface {
	ClientOfContract(ctx context.Context, contract ContractRef) (ClientRef, error)
	ContractOfEvent(ctx context.Context, event EventRef) (ContractRef, error)
}

// Engine evaluates actions against the capability table and, where a rule is
// ownership-scoped, against the actor's relationship to the resource. It
// holds no mutable state and is safe for concurrent use.
type Engine struct {
	table    Capabilities
	resolver Resolver
}

// NewEngine constructs an Engine over the given table and resolver.
func NewEngine(table Capabilities, resolver Resolver) *Engine {
	return &Engine{table: table, resolver: resolver}
}

// Decide returns the policy outcome for the actor performing the action on
// the resource. Denial is returned as data; the error path is reserved for
// caller mistakes (unknown role or action, missing resource) and for
// resolution failures.
//
// The capability table is consulted first. It needs no I/O, and refusing
// unauthorized roles before any lookup avoids leaking whether the resource
// exists.
func (e *Engine) Decide(ctx context.Context, actor Actor, action Action, resource Resource) (Decision, error) {
	if !actor.Role.Valid() {
		return Decision{}, fmt.Errorf("authz: unknown role %q", actor.Role)
	}
	if !action.Valid() {
		return Decision{}, fmt.Errorf("authz: invalid action %s", action)
	}

	allowed := e.table[actor.Role]
	if _, ok := allowed[action]; !ok {
		return Deny(ReasonRoleNotPermitted), nil
	}

	if !ownershipScoped(actor.Role, action) {
		return Allow(), nil
	}
	if resource == nil {
		return Decision{}, fmt.Errorf("%w: %s as %s", ErrResourceRequired, action, actor.Role)
	}
	return e.decideOwnership(ctx, actor, action, resource)
}

// ownershipScoped reports whether the (role, action) pair depends on the
// actor's relationship to the specific resource instance. Admin and Manager
// are never ownership-scoped; the table alone covers them.
func ownershipScoped(role Role, action Action) bool {
	switch role {
	case RoleSailor:
		return action == Update(KindClient) ||
			action == Update(KindContract) ||
			action == Create(KindEvent)
	case RoleSupport:
		return action == Update(KindEvent)
	}
	return false
}

func (e *Engine) decideOwnership(ctx context.Context, actor Actor, action Action, resource Resource) (Decision, error) {
	switch actor.Role {
	case RoleSailor:
		switch action {
		case Update(KindClient):
			client, ok := resource.(ClientRef)
			if !ok {
				return Decision{}, fmt.Errorf("authz: %s requires a client ref, got %T", action, resource)
			}
			return decideClientLink(client, actor), nil

		case Update(KindContract):
			contract, ok := resource.(ContractRef)
			if !ok {
				return Decision{}, fmt.Errorf("authz: %s requires a contract ref, got %T", action, resource)
			}
			client, err := e.resolver.ClientOfContract(ctx, contract)
			if err != nil {
				return Decision{}, err
			}
			return decideClientLink(client, actor), nil

		case Create(KindEvent):
			event, ok := resource.(EventRef)
			if !ok {
				return Decision{}, fmt.Errorf("authz: %s requires an event ref, got %T", action, resource)
			}
			contract, err := e.resolver.ContractOfEvent(ctx, event)
			if err != nil {
				return Decision{}, err
			}
			client, err := e.resolver.ClientOfContract(ctx, contract)
			if err != nil {
				return Decision{}, err
			}
			if client.MarketingContact != actor.Username {
				return Deny(ReasonNotLinkedToClient), nil
			}
			if !contract.Signed {
				return Deny(ReasonContractNotSigned), nil
			}
			return Allow(), nil
		}

	case RoleSupport:
		if action == Update(KindEvent) {
			event, ok := resource.(EventRef)
			if !ok {
				return Decision{}, fmt.Errorf("authz: %s requires an event ref, got %T", action, resource)
			}
			if event.AssignedSupportID == nil || *event.AssignedSupportID != actor.ID {
				return Deny(ReasonNotAssigned), nil
			}
			return Allow(), nil
		}
	}
	return Decision{}, fmt.Errorf("authz: no ownership rule for %s as %s", action, actor.Role)
}

func decideClientLink(client ClientRef, actor Actor) Decision {
	if client.MarketingContact != actor.Username {
		return Deny(ReasonNotLinkedToClient)
	}
	return Allow()
}
