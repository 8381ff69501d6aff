package models

// Permissions is the fixed capability set stored on every user. SuperUser is
// a single top capability; the storage layer never expands it into the other
// flags, callers go through May.
type Permissions struct {
	CanViewUsers           bool `json:"can_view_users"`
	CanAddUsers            bool `json:"can_add_users"`
	CanBanUsers            bool `json:"can_ban_users"`
	CanDeleteUsers         bool `json:"can_delete_users"`
	CanEditUserProfile     bool `json:"can_edit_user_profile"`
	CanEditUserPermissions bool `json:"can_edit_user_permissions"`
	SuperUser              bool `json:"super_user"`
}

// Action enumerates the privileged operations gated by Permissions.
type Action string

const (
	ActionViewUsers       Action = "view_users"
	ActionAddUsers        Action = "add_users"
	ActionBanUsers        Action = "ban_users"
	ActionDeleteUsers     Action = "delete_users"
	ActionEditProfile     Action = "edit_user_profile"
	ActionEditPermissions Action = "edit_user_permissions"
)

// May reports whether the capability set allows the action. SuperUser grants
// every action.
func May(p Permissions, action Action) bool {
	if p.SuperUser {
		return true
	}
	switch action {
	case ActionViewUsers:
		return p.CanViewUsers
	case ActionAddUsers:
		return p.CanAddUsers
	case ActionBanUsers:
		return p.CanBanUsers
	case ActionDeleteUsers:
		return p.CanDeleteUsers
	case ActionEditProfile:
		return p.CanEditUserProfile
	case ActionEditPermissions:
		return p.CanEditUserPermissions
	default:
		return false
	}
}

// Fields translates the capability set into a column map matching the
// embedded-column prefix, for partial permission updates.
func (p Permissions) Fields() map[string]any {
	return map[string]any{
		"perm_can_view_users":            p.CanViewUsers,
		"perm_can_add_users":             p.CanAddUsers,
		"perm_can_ban_users":             p.CanBanUsers,
		"perm_can_delete_users":          p.CanDeleteUsers,
		"perm_can_edit_user_profile":     p.CanEditUserProfile,
		"perm_can_edit_user_permissions": p.CanEditUserPermissions,
		"perm_super_user":                p.SuperUser,
	}
}
