package authz

import (
	"testing"

	"github.com/clubhub/backend/internal/models"
)

func TestFilterNavigationPerRole(t *testing.T) {
	want := map[models.Role][]string{
		models.RoleMember:       {"Dashboard", "Events", "Tasks", "Chat"},
		models.RoleManager:      {"Dashboard", "Events", "Tasks", "Chat", "Members"},
		models.RolePrimaryAdmin: {"Dashboard", "Events", "Tasks", "Chat", "Members", "Analytics"},
		models.RoleMainAdmin:    {"Dashboard", "Events", "Tasks", "Chat", "Members", "Analytics", "Club Management", "System Admin"},
	}
	for role, names := range want {
		got := FilterNavigation(role, DefaultNavigation)
		if len(got) != len(names) {
			t.Fatalf("%s: expected %d items, got %d", role, len(names), len(got))
		}
		for i, item := range got {
			if item.Name != names[i] {
				t.Fatalf("%s: item %d: expected %q, got %q", role, i, names[i], item.Name)
			}
			if !item.AllowsRole(role) {
				t.Fatalf("%s: item %q does not permit the role it was returned for", role, item.Name)
			}
		}
	}
}

func TestFilterNavigationUnknownRole(t *testing.T) {
	if got := FilterNavigation(models.Role("ghost"), DefaultNavigation); len(got) != 0 {
		t.Fatalf("expected no items for unknown role, got %d", len(got))
	}
}

func TestCanConvertMessageToTask(t *testing.T) {
	cases := map[models.Role]bool{
		models.RoleMember:       false,
		models.RoleManager:      true,
		models.RolePrimaryAdmin: true,
		models.RoleMainAdmin:    false,
	}
	for role, want := range cases {
		if got := CanConvertMessageToTask(role); got != want {
			t.Fatalf("%s: expected %v, got %v", role, want, got)
		}
	}
}

func TestCanReviewTaskConversion(t *testing.T) {
	cases := map[models.Role]bool{
		models.RoleMember:       false,
		models.RoleManager:      false,
		models.RolePrimaryAdmin: true,
		models.RoleMainAdmin:    true,
	}
	for role, want := range cases {
		if got := CanReviewTaskConversion(role); got != want {
			t.Fatalf("%s: expected %v, got %v", role, want, got)
		}
	}
}

func TestMetaTotalWithFallback(t *testing.T) {
	for _, role := range models.Roles {
		m := Meta(role)
		if m.Label == "" || m.Icon == "" || m.Gradient == "" {
			t.Fatalf("%s: incomplete meta %+v", role, m)
		}
		if m == fallbackMeta {
			t.Fatalf("%s: known role resolved to fallback meta", role)
		}
	}
	if got := Meta(models.Role("ghost")); got != fallbackMeta {
		t.Fatalf("unknown role: expected fallback meta, got %+v", got)
	}
}
