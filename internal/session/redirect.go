package session

import (
	"net/url"
	"strings"

	"github.com/princesspalace/palace/internal/role"
)

// SafeDeepLink returns path if it is a local absolute path, or "".
func SafeDeepLink(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return ""
	}
	u, err := url.Parse(path)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return path
}

// PostLoginRedirect is the deep link when one was captured, otherwise the
// landing path of r.
func PostLoginRedirect(r role.Role, deepLink string) string {
	if p := SafeDeepLink(deepLink); p != "" {
		return p
	}
	return role.Landing(r)
}

// LoginRedirect is the login path preserving requested as the deep link.
func LoginRedirect(requested string) string {
	p := SafeDeepLink(requested)
	if p == "" || p == role.LoginPath {
		return role.LoginPath
	}
	return role.LoginPath + "?" + url.Values{"redirect": {p}}.Encode()
}
