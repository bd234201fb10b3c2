// Package role defines the closed set of actor roles and the static
// role-to-route tables derived from them.
package role

// Role is an actor's operational role.
type Role string

const (
	Admin    Role = "admin"
	Accounts Role = "accounts"
	Waiter   Role = "waiter"
	Customer Role = "customer"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case Admin, Accounts, Waiter, Customer:
		return true
	}
	return false
}

// Static reports whether r is a role carried by bundled staff accounts.
func (r Role) Static() bool {
	switch r {
	case Admin, Accounts, Waiter:
		return true
	}
	return false
}

// Staff reports whether r may operate on orders and back-office data.
func (r Role) Staff() bool {
	return r.Static()
}

// Parse returns the Role named by s, or Customer with ok=false for unknown names.
func Parse(s string) (Role, bool) {
	r := Role(s)
	if !r.Valid() {
		return Customer, false
	}
	return r, true
}
