package authz

// Resource is a read-only projection of an entity carrying only the fields
// the policy needs. Refs are built from freshly loaded rows immediately
// before a check; they are never cached between checks.
type Resource interface {
	ResourceKind() ResourceKind
}

// ClientRef projects a client record.
type ClientRef struct {
	ID               int64
	MarketingContact string
}

func (ClientRef) ResourceKind() ResourceKind { return KindClient }

// ContractRef projects a contract record. ClientID always references an
// existing client (NOT NULL foreign key).
type ContractRef struct {
	ID       int64
	ClientID int64
	Signed   bool
}

func (ContractRef) ResourceKind() ResourceKind { return KindContract }

// EventRef projects an event record. For creation checks the ID is zero and
// only ContractID is meaningful. AssignedSupportID is nil while no support
// user has been assigned.
type EventRef struct {
	ID                int64
	ContractID        int64
	AssignedSupportID *int64
}

func (EventRef) ResourceKind() ResourceKind { return KindEvent }

// UserRef projects a managed user account. User management has no ownership
// dimension, so only the identifier is carried.
type UserRef struct {
	ID int64
}

func (UserRef) ResourceKind() ResourceKind { return KindUser }
