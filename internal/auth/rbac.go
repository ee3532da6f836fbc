package auth

import "strings"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleEditor):
		return RoleEditor
	default:
		return RoleViewer
	}
}

// ValidRole reports whether the string names a known role exactly.
func ValidRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin), string(RoleEditor), string(RoleViewer):
		return true
	}
	return false
}

func HasRole(role string, allowed ...Role) bool {
	if len(allowed) == 0 {
		return false
	}
	current := NormalizeRole(role)
	for _, candidate := range allowed {
		if current == candidate {
			return true
		}
	}
	return false
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}

// CanEditContent reports whether the role may create or modify pages, posts,
// and navigation. Viewers get read-only access.
func CanEditContent(role string) bool {
	return HasRole(role, RoleAdmin, RoleEditor)
}
