package models

// NavigationItem is one entry in the dashboard navigation. The set of items
// is static configuration; which entries a user sees depends only on role
// membership in Roles.
type NavigationItem struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Route string `json:"route"`
	Badge int    `json:"badge,omitempty"`
	Roles []Role `json:"roles"`
}

// AllowsRole reports whether the item's permitted-role set contains role.
func (n NavigationItem) AllowsRole(role Role) bool {
	for _, r := range n.Roles {
		if r == role {
			return true
		}
	}
	return false
}
