package docstore

import (
	"sort"

	"github.com/princesspalace/palace/internal/role"
)

// Request is an access attempt evaluated by a Rule. Data holds the stored
// document for get/update and the new document for create; Patch holds the
// partial fields of an update; Query is set for list.
type Request struct {
	Op         Operation
	Collection string
	DocID      string
	Query      *Query
	Data       Fields
	Patch      Fields
}

// Rule decides whether actor may perform req.
type Rule func(actor Actor, req Request) bool

// Policy holds the rule for each operation on a collection.
// A nil rule denies the operation.
type Policy struct {
	Get    Rule
	List   Rule
	Create Rule
	Update Rule
}

// Rules maps collection names to access policies. Collections without a
// policy deny every non-system actor.
type Rules struct {
	policies map[string]Policy
}

// NewRules creates an empty rule registry.
func NewRules() *Rules {
	return &Rules{
		policies: make(map[string]Policy),
	}
}

// Register sets the policy for collection.
func (r *Rules) Register(collection string, p Policy) {
	r.policies[collection] = p
}

// Get returns the policy registered for collection.
func (r *Rules) Get(collection string) (Policy, bool) {
	p, ok := r.policies[collection]
	return p, ok
}

// Names returns a sorted list of all collections with a policy.
func (r *Rules) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allow evaluates req for actor.
func (r *Rules) Allow(actor Actor, req Request) bool {
	if actor.System {
		return true
	}
	if r == nil {
		return false
	}
	p, ok := r.policies[req.Collection]
	if !ok {
		return false
	}

	var rule Rule
	switch req.Op {
	case OpGet:
		rule = p.Get
	case OpList:
		rule = p.List
	case OpCreate:
		rule = p.Create
	case OpUpdate:
		rule = p.Update
	}
	if rule == nil {
		return false
	}
	return rule(actor, req)
}

// Check is Allow returning a permission OpError on denial.
func (r *Rules) Check(actor Actor, req Request) error {
	if r.Allow(actor, req) {
		return nil
	}
	path := req.Collection
	if req.DocID != "" {
		path = Path(req.Collection, req.DocID)
	}
	return &OpError{Op: req.Op, Path: path, Err: ErrPermissionDenied}
}

// Public allows everyone, including anonymous visitors.
func Public(Actor, Request) bool { return true }

// SignedIn allows any actor with an identity.
func SignedIn(actor Actor, _ Request) bool { return actor.UID != "" }

// Roles allows actors holding one of roles.
func Roles(roles ...role.Role) Rule {
	allowed := make(map[role.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(actor Actor, _ Request) bool {
		return actor.UID != "" && allowed[actor.Role]
	}
}

// Staff allows admin, accounts and waiter actors.
func Staff(actor Actor, _ Request) bool {
	return actor.UID != "" && actor.Role.Staff()
}

// Owner allows an actor whose UID is stored in field. For list requests
// the query itself must pin field to the actor's UID.
func Owner(field string) Rule {
	return func(actor Actor, req Request) bool {
		if actor.UID == "" {
			return false
		}
		if req.Op == OpList {
			return req.Query != nil && req.Query.HasEquality(field, actor.UID)
		}
		uid, _ := req.Data[field].(string)
		return uid == actor.UID
	}
}

// Self allows an actor to access the document keyed by its own UID.
func Self(actor Actor, req Request) bool {
	return actor.UID != "" && req.DocID == actor.UID
}

// staffOwner allows staff to create documents that name themselves in field.
func staffOwner(field string) Rule {
	owner := Owner(field)
	return func(actor Actor, req Request) bool {
		return Staff(actor, req) && owner(actor, req)
	}
}

// AnyOf allows the request when any rule allows it.
func AnyOf(rules ...Rule) Rule {
	return func(actor Actor, req Request) bool {
		for _, r := range rules {
			if r != nil && r(actor, req) {
				return true
			}
		}
		return false
	}
}

// Collections used by the restaurant back-office.
const (
	Orders         = "orders"
	Users          = "users"
	Reviews        = "customerReviews"
	Reservations   = "reservations"
	PartyBookings  = "partyBookings"
	Employees      = "employees"
	Expenses       = "expenses"
	AdvanceRequest = "advanceRequests"
	Purchases      = "purchases"
	LeaveRequests  = "leaveRequests"
)

// DefaultRules returns the access policy of the restaurant back-office.
func DefaultRules() *Rules {
	r := NewRules()
	finance := Roles(role.Admin, role.Accounts)

	r.Register(Orders, Policy{
		Get:    AnyOf(Staff, Owner("userId")),
		List:   AnyOf(Staff, Owner("userId")),
		Create: AnyOf(Staff, Owner("userId")),
		Update: Staff,
	})
	r.Register(Users, Policy{
		Get:  AnyOf(Self, Roles(role.Admin)),
		List: Roles(role.Admin),
	})
	r.Register(Reviews, Policy{
		Get:    Public,
		List:   Public,
		Create: Public,
		Update: Roles(role.Admin),
	})
	r.Register(Reservations, Policy{
		Get:    Staff,
		List:   Staff,
		Create: Public,
		Update: Roles(role.Admin, role.Waiter),
	})
	r.Register(PartyBookings, Policy{Get: finance, List: finance, Create: finance, Update: finance})
	r.Register(Employees, Policy{Get: finance, List: finance, Create: Roles(role.Admin), Update: Roles(role.Admin)})
	r.Register(Expenses, Policy{Get: finance, List: finance, Create: finance, Update: finance})
	r.Register(AdvanceRequest, Policy{
		Get:    AnyOf(finance, Owner("requestedBy")),
		List:   AnyOf(finance, Owner("requestedBy")),
		Create: AnyOf(finance, Owner("requestedBy")),
		Update: finance,
	})
	r.Register(Purchases, Policy{
		Get:    AnyOf(finance, Owner("submittedBy")),
		List:   AnyOf(finance, Owner("submittedBy")),
		Create: AnyOf(finance, staffOwner("submittedBy")),
		Update: finance,
	})
	r.Register(LeaveRequests, Policy{
		Get:    AnyOf(finance, Owner("requestedBy")),
		List:   AnyOf(finance, Owner("requestedBy")),
		Create: staffOwner("requestedBy"),
		Update: Roles(role.Admin),
	})

	return r
}
