package assistant

import "strings"

// Routes where the assistant never shows.
var hiddenRoutes = []string{"/login", "/register", "/forgot-password", "/reset-password"}

// Visible reports whether the assistant panel may render for the given
// route and user role. It is suppressed on authentication pages, on
// every admin-prefixed route and for administrator users.
func Visible(route, role string) bool {
	if strings.EqualFold(role, "admin") {
		return false
	}
	if strings.HasPrefix(route, "/admin") {
		return false
	}
	for _, r := range hiddenRoutes {
		if route == r || strings.HasPrefix(route, r+"/") {
			return false
		}
	}
	return true
}
