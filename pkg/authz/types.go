// Package authz provides identity extraction and project role permissions
// for the hub server. Identity comes from the external auth provider's JWT
// (or a trusted header in development); roles come from project membership.
package authz

import "errors"

// Role is a member's role within a project. A member holds exactly one role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleBrand  Role = "brand"
	RoleLeague Role = "league"
	RolePA     Role = "pa"
	RoleClub   Role = "club"
	RoleViewer Role = "viewer"
)

// AllRoles lists every known role in display order.
var AllRoles = []Role{RoleAdmin, RoleBrand, RoleLeague, RolePA, RoleClub, RoleViewer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Label returns the human-readable role name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleBrand:
		return "Brand"
	case RoleLeague:
		return "League"
	case RolePA:
		return "Players Association"
	case RoleClub:
		return "Club"
	case RoleViewer:
		return "Viewer"
	}
	return string(r)
}

// Permission names a capability gated by role.
type Permission string

const (
	PermViewAllAssets  Permission = "view_all_assets"
	PermApprove        Permission = "approve"
	PermUpload         Permission = "upload"
	PermComment        Permission = "comment"
	PermManageSettings Permission = "manage_settings"
	PermViewQueue      Permission = "view_queue"
)

// RolePermissions is the permission matrix for each role.
var RolePermissions = map[Role]map[Permission]bool{
	RoleAdmin: {
		PermViewAllAssets:  true,
		PermApprove:        true,
		PermUpload:         true,
		PermComment:        true,
		PermManageSettings: true,
		PermViewQueue:      true,
	},
	RoleBrand: {
		PermViewAllAssets: true,
		PermApprove:       true,
		PermComment:       true,
		PermViewQueue:     true,
	},
	RoleLeague: {
		PermViewAllAssets: true,
		PermApprove:       true,
		PermComment:       true,
		PermViewQueue:     true,
	},
	RolePA: {
		PermApprove:   true,
		PermComment:   true,
		PermViewQueue: true,
	},
	RoleClub:   {},
	RoleViewer: {},
}

// Can reports whether the role grants the permission.
func (r Role) Can(p Permission) bool {
	return RolePermissions[r][p]
}

// ErrNotMember is returned by a RoleLookup when the user has no membership
// in the project.
var ErrNotMember = errors.New("not a member of this project")
