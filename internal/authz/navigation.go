package authz

import "github.com/clubhub/backend/internal/models"

var allRoles = []models.Role{
	models.RoleMainAdmin, models.RolePrimaryAdmin, models.RoleManager, models.RoleMember,
}

// DefaultNavigation is the static navigation table. Badge counts are filled
// in per request by the dashboard handler.
var DefaultNavigation = []models.NavigationItem{
	{Name: "Dashboard", Icon: "home", Route: "/dashboard", Roles: allRoles},
	{Name: "Events", Icon: "calendar", Route: "/events", Roles: allRoles},
	{Name: "Tasks", Icon: "check-square", Route: "/tasks", Roles: allRoles},
	{Name: "Chat", Icon: "message-square", Route: "/chat", Roles: allRoles},
	{Name: "Members", Icon: "users", Route: "/members", Roles: []models.Role{
		models.RoleMainAdmin, models.RolePrimaryAdmin, models.RoleManager,
	}},
	{Name: "Analytics", Icon: "bar-chart", Route: "/analytics", Roles: []models.Role{
		models.RoleMainAdmin, models.RolePrimaryAdmin,
	}},
	{Name: "Club Management", Icon: "shield", Route: "/club-management", Roles: []models.Role{
		models.RoleMainAdmin,
	}},
	{Name: "System Admin", Icon: "crown", Route: "/admin", Roles: []models.Role{
		models.RoleMainAdmin,
	}},
}

// FilterNavigation returns the entries of items visible to role, preserving
// input order. Pure; recomputing per request is fine since the table is
// static.
func FilterNavigation(role models.Role, items []models.NavigationItem) []models.NavigationItem {
	visible := make([]models.NavigationItem, 0, len(items))
	for _, item := range items {
		if item.AllowsRole(role) {
			visible = append(visible, item)
		}
	}
	return visible
}
