package authz

// Denial reasons. Each distinguishes which rule failed so callers can log
// and report precisely.
const (
	ReasonRoleNotPermitted  = "role not permitted"
	ReasonNotLinkedToClient = "not linked to this client"
	ReasonContractNotSigned = "contract not signed"
	ReasonNotAssigned       = "not assigned to this event"
)

// Decision is the outcome of evaluating an action against the policy. A
// denial carries the reason; it is data, not an error.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow builds a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny builds a denying decision with the rule-specific reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
