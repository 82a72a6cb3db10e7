package authz

import "fmt"

// Verb names an operation kind independent of the resource it targets.
type Verb string

const (
	VerbViewAll        Verb = "view_all"
	VerbViewOne        Verb = "view_one"
	VerbCreate         Verb = "create"
	VerbUpdate         Verb = "update"
	VerbAssignSupport  Verb = "assign_support"
	VerbViewUnassigned Verb = "view_unassigned"
)

// ResourceKind tags the entity type an action applies to.
type ResourceKind string

const (
	KindClient   ResourceKind = "client"
	KindContract ResourceKind = "contract"
	KindEvent    ResourceKind = "event"
	KindUser     ResourceKind = "user"
)

// Action is a verb crossed with a resource kind, e.g. (create, client).
type Action struct {
	Verb Verb
	Kind ResourceKind
}

func (a Action) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.Verb)
}

// Valid reports whether both the verb and the kind are known and the
// combination is meaningful. Assigning support and listing unassigned
// records only exist for events.
func (a Action) Valid() bool {
	switch a.Kind {
	case KindClient, KindContract, KindEvent, KindUser:
	default:
		return false
	}
	switch a.Verb {
	case VerbViewAll, VerbViewOne, VerbCreate, VerbUpdate:
		return true
	case VerbAssignSupport, VerbViewUnassigned:
		return a.Kind == KindEvent
	}
	return false
}

// Convenience constructors used by the service layer.

func ViewAll(kind ResourceKind) Action  { return Action{Verb: VerbViewAll, Kind: kind} }
func ViewOne(kind ResourceKind) Action  { return Action{Verb: VerbViewOne, Kind: kind} }
func Create(kind ResourceKind) Action   { return Action{Verb: VerbCreate, Kind: kind} }
func Update(kind ResourceKind) Action   { return Action{Verb: VerbUpdate, Kind: kind} }
func AssignSupport() Action             { return Action{Verb: VerbAssignSupport, Kind: KindEvent} }
func ViewUnassigned() Action            { return Action{Verb: VerbViewUnassigned, Kind: KindEvent} }
