package auth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roles, most to least privileged.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleViewer  = "viewer"
)

// Permission tokens.
const (
	PermProductsView        = "products.view"
	PermProductsCreate      = "products.create"
	PermProductsEdit        = "products.edit"
	PermProductsDelete      = "products.delete"
	PermProductsHardDelete  = "products.hard_delete"
	PermMovementsView       = "stock_movements.view"
	PermMovementsCreate     = "stock_movements.create"
	PermShelvesManage       = "shelves.manage"
	PermLogsView            = "logs.view"
	PermNotificationsView   = "notifications.view"
	PermUsersManage         = "users.manage"
	PermStorefrontOrder     = "storefront.order"
)

var defaultRolePermissions = map[string][]string{
	RoleAdmin: {
		PermProductsView, PermProductsCreate, PermProductsEdit, PermProductsDelete,
		PermProductsHardDelete, PermMovementsView, PermMovementsCreate,
		PermShelvesManage, PermLogsView, PermNotificationsView, PermUsersManage,
		PermStorefrontOrder,
	},
	RoleManager: {
		PermProductsView, PermProductsCreate, PermProductsEdit, PermProductsDelete,
		PermMovementsView, PermMovementsCreate, PermShelvesManage, PermLogsView,
		PermNotificationsView, PermStorefrontOrder,
	},
	RoleStaff: {
		PermProductsView, PermMovementsView, PermMovementsCreate,
		PermNotificationsView, PermStorefrontOrder,
	},
	RoleViewer: {
		PermProductsView, PermMovementsView, PermNotificationsView,
	},
}

// KnownRole reports whether role is one of the built-in roles.
func KnownRole(role string) (string, bool) {
	switch role {
	case RoleAdmin, RoleManager, RoleStaff, RoleViewer:
		return role, true
	}
	return "", false
}

// RoleMap maps role names to permission token sets.
type RoleMap map[string][]string

// LoadRoleMap reads a YAML role->permissions override file. An empty path
// returns the built-in defaults.
func LoadRoleMap(path string) (RoleMap, error) {
	if path == "" {
		return defaultRolePermissions, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}

	var rm RoleMap
	if err := yaml.Unmarshal(raw, &rm); err != nil {
		return nil, fmt.Errorf("parse roles file: %w", err)
	}
	return rm, nil
}

// Gate is the per-session permission check. It is resolved once from a user's
// role and cached for the session lifetime. An unknown role yields the viewer
// permission set; a gate can never grant more than its role map allows
// (fail-closed).
//
// The gate is advisory for callers that want fast rejection; the store-facing
// handlers still enforce the same tokens via middleware.
type Gate struct {
	role  string
	perms map[string]struct{}
}

// NewGate builds a Gate for the given role against rm. A nil rm uses the
// built-in defaults. Unknown roles degrade to viewer.
func NewGate(role string, rm RoleMap) *Gate {
	if rm == nil {
		rm = defaultRolePermissions
	}

	tokens, ok := rm[role]
	if !ok {
		role = RoleViewer
		tokens = rm[RoleViewer]
	}

	perms := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		perms[t] = struct{}{}
	}
	return &Gate{role: role, perms: perms}
}

// Role returns the effective role the gate was built for.
func (g *Gate) Role() string {
	if g == nil {
		return RoleViewer
	}
	return g.role
}

// HasPermission reports whether the gate grants the given token. A nil gate
// grants nothing.
func (g *Gate) HasPermission(token string) bool {
	if g == nil {
		return false
	}
	_, ok := g.perms[token]
	return ok
}

// HasAnyPermission reports whether the gate grants at least one of tokens.
func (g *Gate) HasAnyPermission(tokens ...string) bool {
	for _, t := range tokens {
		if g.HasPermission(t) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the gate grants every one of tokens.
func (g *Gate) HasAllPermissions(tokens ...string) bool {
	for _, t := range tokens {
		if !g.HasPermission(t) {
			return false
		}
	}
	return true
}
