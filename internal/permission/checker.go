package permission

import (
	"strings"

	userDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/user"
)

// Capability strings gate UI actions and routes. They mirror the backend's
// dotted permission tokens.
const (
	PermProjectsCreate = "projects.create"
	PermProjectsView   = "projects.view"
	PermProjectsEdit   = "projects.edit"
	PermProjectsDelete = "projects.delete"
	PermTasksCreate    = "tasks.create"
	PermTasksDelete    = "tasks.delete"
	PermMailsView      = "mails.view"
	PermMailsSend      = "mails.send"
	PermMailsDelete    = "mails.delete"
	PermMailsViewAll   = "mails.view_all"
	PermUsersManage    = "users.manage"
	PermReportsView    = "reports.view"
)

// UserSource yields the current session user snapshot. Checks change result
// only when the snapshot changes (login, refresh, logout).
type UserSource interface {
	CurrentUser() *userDatamodel.User
}

type PermissionChecker interface {
	HasPermission(permission string) bool
	HasAnyPermission(permissions []string) bool
	HasAllPermissions(permissions []string) bool
	CanCreateProject() bool
	CanViewProjects() bool
	CanDeleteProject() bool
	CanSendMail() bool
	CanDeleteMail() bool
	CanViewAllMail() bool
	CanManageUsers() bool
	CanViewReports() bool
}

type Checker struct {
	source UserSource
}

func NewChecker(source UserSource) *Checker {
	return &Checker{source: source}
}

// Resolve is the pure resolution function: no user fails closed, a super
// admin role overrides the explicit permission list, everything else is set
// membership.
func Resolve(u *userDatamodel.User, permission string) bool {
	if u == nil {
		return false
	}
	if IsSuperAdmin(u) {
		return true
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// IsSuperAdmin matches the role name case-, space- and underscore-
// insensitively: "Super Admin", "super_admin" and "SuperAdmin" all qualify.
func IsSuperAdmin(u *userDatamodel.User) bool {
	if u == nil {
		return false
	}
	normalized := NormalizeRoleName(u.Role.Name)
	return normalized == "super admin" || normalized == "superadmin"
}

// NormalizeRoleName lowercases the role, turns underscores into spaces and
// collapses runs of whitespace.
func NormalizeRoleName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = strings.ReplaceAll(lowered, "_", " ")
	return strings.Join(strings.Fields(lowered), " ")
}

func (c *Checker) HasPermission(permission string) bool {
	return Resolve(c.source.CurrentUser(), permission)
}

func (c *Checker) HasAnyPermission(permissions []string) bool {
	for _, p := range permissions {
		if c.HasPermission(p) {
			return true
		}
	}
	return false
}

func (c *Checker) HasAllPermissions(permissions []string) bool {
	for _, p := range permissions {
		if !c.HasPermission(p) {
			return false
		}
	}
	return true
}

func (c *Checker) CanCreateProject() bool {
	return c.HasPermission(PermProjectsCreate)
}

func (c *Checker) CanViewProjects() bool {
	return c.HasPermission(PermProjectsView)
}

func (c *Checker) CanDeleteProject() bool {
	return c.HasPermission(PermProjectsDelete)
}

func (c *Checker) CanSendMail() bool {
	return c.HasPermission(PermMailsSend)
}

func (c *Checker) CanDeleteMail() bool {
	return c.HasPermission(PermMailsDelete)
}

func (c *Checker) CanViewAllMail() bool {
	return c.HasPermission(PermMailsViewAll)
}

func (c *Checker) CanManageUsers() bool {
	return c.HasPermission(PermUsersManage)
}

func (c *Checker) CanViewReports() bool {
	return c.HasPermission(PermReportsView)
}
