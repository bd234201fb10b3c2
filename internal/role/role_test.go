package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanding(t *testing.T) {
	assert.Equal(t, "/admin", Landing(Admin))
	assert.Equal(t, "/finance", Landing(Accounts))
	assert.Equal(t, "/waiter", Landing(Waiter))
	assert.Equal(t, "/dashboard", Landing(Customer))
	assert.Equal(t, "/dashboard", Landing(Role("chef")))
}

func TestNavLinks(t *testing.T) {
	hrefs := func(r Role) []string {
		var out []string
		for _, l := range NavLinks(r) {
			out = append(out, l.Href)
		}
		return out
	}

	assert.Equal(t, []string{"/dashboard", "/orders", "/menu", "/waiter", "/finance", "/admin", "/pos"}, hrefs(Admin))
	assert.Equal(t, []string{"/dashboard", "/orders", "/finance", "/pos"}, hrefs(Accounts))
	assert.Equal(t, []string{"/waiter", "/orders"}, hrefs(Waiter))
	assert.Equal(t, []string{"/dashboard"}, hrefs(Customer))
	assert.Equal(t, []string{"/dashboard"}, hrefs(Role("")))
}

func TestStaticAndParse(t *testing.T) {
	assert.True(t, Admin.Static())
	assert.True(t, Waiter.Staff())
	assert.False(t, Customer.Static())

	r, ok := Parse("accounts")
	assert.True(t, ok)
	assert.Equal(t, Accounts, r)

	r, ok = Parse("owner")
	assert.False(t, ok)
	assert.Equal(t, Customer, r)
}

func TestCanVisit(t *testing.T) {
	assert.True(t, CanVisit(Waiter, "/orders"))
	assert.False(t, CanVisit(Waiter, "/finance"))
	assert.True(t, CanVisit(Accounts, "/pos"))
}
