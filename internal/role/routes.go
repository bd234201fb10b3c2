package role

// LoginPath is where anonymous clients are sent.
const LoginPath = "/login"

var landing = map[Role]string{
	Admin:    "/admin",
	Accounts: "/finance",
	Waiter:   "/waiter",
	Customer: "/dashboard",
}

// NavLink is a navigation entry exposed to a role.
type NavLink struct {
	Key   string `json:"key"`
	Href  string `json:"href"`
	Label string `json:"label"`
}

var links = map[string]NavLink{
	"dashboard": {Key: "dashboard", Href: "/dashboard", Label: "Dashboard"},
	"orders":    {Key: "orders", Href: "/orders", Label: "Orders"},
	"menu":      {Key: "menu", Href: "/menu", Label: "Menu"},
	"waiter":    {Key: "waiter", Href: "/waiter", Label: "Waiter"},
	"finance":   {Key: "finance", Href: "/finance", Label: "Finance"},
	"admin":     {Key: "admin", Href: "/admin", Label: "Admin"},
	"pos":       {Key: "pos", Href: "/pos", Label: "POS"},
}

var navConfig = map[Role][]string{
	Admin:    {"dashboard", "orders", "menu", "waiter", "finance", "admin", "pos"},
	Accounts: {"dashboard", "orders", "finance", "pos"},
	Waiter:   {"waiter", "orders"},
	Customer: {"dashboard"},
}

// Landing returns the default post-login path for r. Unknown roles land as customers.
func Landing(r Role) string {
	if p, ok := landing[r]; ok {
		return p
	}
	return landing[Customer]
}

// NavLinks returns the navigation entries visible to r, in display order.
func NavLinks(r Role) []NavLink {
	keys, ok := navConfig[r]
	if !ok {
		keys = navConfig[Customer]
	}
	out := make([]NavLink, 0, len(keys))
	for _, k := range keys {
		if l, ok := links[k]; ok {
			out = append(out, l)
		}
	}
	return out
}

// CanVisit reports whether r has a nav entry whose href is path.
func CanVisit(r Role, path string) bool {
	for _, l := range NavLinks(r) {
		if l.Href == path {
			return true
		}
	}
	return false
}
