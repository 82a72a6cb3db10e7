package authz

// Actor is the authenticated identity evaluated against the policy. It is
// built once per request from the session user and never mutated by the
// engine.
type Actor struct {
	ID       int64
	Username string
	Role     Role
}
