// Package authz centralizes the role capability policy. Every surface that
// gates behavior on a role consults this package rather than re-deriving
// checks ad hoc.
package authz

import "github.com/clubhub/backend/internal/models"

// CanConvertMessageToTask reports whether role may request promotion of a
// chat message into a task.
func CanConvertMessageToTask(role models.Role) bool {
	return role == models.RolePrimaryAdmin || role == models.RoleManager
}

// CanReviewTaskConversion reports whether role may approve or reject a
// pending task conversion request.
func CanReviewTaskConversion(role models.Role) bool {
	return role == models.RolePrimaryAdmin || role == models.RoleMainAdmin
}

// CanViewAnalytics reports whether role may access club analytics.
func CanViewAnalytics(role models.Role) bool {
	return role == models.RolePrimaryAdmin || role == models.RoleMainAdmin
}

// CanManageMembers reports whether role may view and manage the member list.
func CanManageMembers(role models.Role) bool {
	return role != models.RoleMember
}

// RoleMeta is the presentation tuple for a role badge.
type RoleMeta struct {
	Label    string `json:"label"`
	Icon     string `json:"icon"`
	Gradient string `json:"gradient"`
}

// roleMeta is total over the closed role enumeration.
var roleMeta = map[models.Role]RoleMeta{
	models.RoleMainAdmin:    {Label: "Main Admin", Icon: "crown", Gradient: "from-yellow-500 to-amber-500"},
	models.RolePrimaryAdmin: {Label: "Primary Admin", Icon: "shield", Gradient: "from-purple-500 to-indigo-500"},
	models.RoleManager:      {Label: "Manager", Icon: "users", Gradient: "from-blue-500 to-cyan-500"},
	models.RoleMember:       {Label: "Member", Icon: "user", Gradient: "from-green-500 to-emerald-500"},
}

// fallbackMeta is used for unrecognized role values. An unknown role is a
// data-integrity error; callers should reject such records at the boundary,
// this default only keeps rendering total.
var fallbackMeta = RoleMeta{Label: "Unknown", Icon: "user", Gradient: "from-gray-500 to-gray-600"}

// Meta returns the display metadata for a role.
func Meta(role models.Role) RoleMeta {
	if m, ok := roleMeta[role]; ok {
		return m
	}
	return fallbackMeta
}
