package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_AdminHasEverything(t *testing.T) {
	gate := NewGate(RoleAdmin, nil)

	assert.True(t, gate.HasPermission(PermProductsHardDelete))
	assert.True(t, gate.HasPermission(PermUsersManage))
	assert.True(t, gate.HasAllPermissions(PermProductsCreate, PermMovementsCreate, PermShelvesManage))
}

func TestGate_StaffCannotDelete(t *testing.T) {
	gate := NewGate(RoleStaff, nil)

	assert.True(t, gate.HasPermission(PermMovementsCreate))
	assert.False(t, gate.HasPermission(PermProductsDelete))
	assert.False(t, gate.HasPermission(PermProductsHardDelete))
	assert.True(t, gate.HasAnyPermission(PermProductsDelete, PermMovementsCreate))
	assert.False(t, gate.HasAllPermissions(PermProductsDelete, PermMovementsCreate))
}

func TestGate_UnknownRoleFailsClosed(t *testing.T) {
	gate := NewGate("superuser", nil)

	assert.Equal(t, RoleViewer, gate.Role())
	assert.False(t, gate.HasPermission(PermMovementsCreate))
	assert.False(t, gate.HasPermission(PermProductsCreate))
	assert.True(t, gate.HasPermission(PermProductsView))
}

func TestGate_NilGateGrantsNothing(t *testing.T) {
	var gate *Gate

	assert.False(t, gate.HasPermission(PermProductsView))
	assert.False(t, gate.HasAnyPermission(PermProductsView, PermMovementsView))
	assert.Equal(t, RoleViewer, gate.Role())
}

func TestGate_HasAllPermissions_Empty(t *testing.T) {
	gate := NewGate(RoleViewer, nil)
	assert.True(t, gate.HasAllPermissions())
}

func TestLoadRoleMap_Default(t *testing.T) {
	rm, err := LoadRoleMap("")
	require.NoError(t, err)
	assert.Contains(t, rm, RoleAdmin)
	assert.Contains(t, rm, RoleViewer)
}

func TestLoadRoleMap_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := "auditor:\n  - logs.view\n  - stock_movements.view\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rm, err := LoadRoleMap(path)
	require.NoError(t, err)

	gate := NewGate("auditor", rm)
	assert.True(t, gate.HasPermission(PermLogsView))
	assert.False(t, gate.HasPermission(PermMovementsCreate))
}

func TestLoadRoleMap_MissingFile(t *testing.T) {
	_, err := LoadRoleMap("does-not-exist.yaml")
	assert.Error(t, err)
}
