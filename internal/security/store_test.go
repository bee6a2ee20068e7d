package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPermissionIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	first, err := s.AddPermission("can_get")
	require.NoError(t, err)

	second, err := s.AddPermission("can_get")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestFindPermissionReturnsNilWhenAbsent(t *testing.T) {
	s := newTestStore(t)

	perm, err := s.FindPermission("nope")
	require.NoError(t, err)
	assert.Nil(t, perm)
}

func TestDelPermissionRefusedWhilePaired(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddPermissionViewMenu("can_get", "UserView")
	require.NoError(t, err)

	err = s.DelPermission("can_get")
	require.ErrorIs(t, err, ErrPermissionInUse)

	// unpair, then the delete goes through
	require.NoError(t, s.DelPermissionViewMenu("can_get", "UserView", false))

	perm, err := s.FindPermission("can_get")
	require.NoError(t, err)
	assert.Nil(t, perm, "orphaned permission should have been pruned with the pair")
}

func TestDelViewMenuRefusedWhilePaired(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddPermissionViewMenu("can_get", "UserView")
	require.NoError(t, err)

	require.ErrorIs(t, s.DelViewMenu("UserView"), ErrViewMenuInUse)
}

func TestAddPermissionViewMenuUpsert(t *testing.T) {
	s := newTestStore(t)

	first, err := s.AddPermissionViewMenu("can_get", "UserView")
	require.NoError(t, err)

	second, err := s.AddPermissionViewMenu("can_get", "UserView")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	pv, err := s.FindPermissionViewMenu("can_get", "UserView")
	require.NoError(t, err)
	require.NotNil(t, pv)
	assert.Equal(t, "can_get", pv.Permission.Name)
	assert.Equal(t, "UserView", pv.ViewMenu.Name)
}

func TestFindPermissionViewMenuAbsent(t *testing.T) {
	s := newTestStore(t)

	pv, err := s.FindPermissionViewMenu("can_get", "UserView")
	require.NoError(t, err)
	assert.Nil(t, pv)
}

func TestDelPermissionViewMenuRefusedWhileGranted(t *testing.T) {
	s := newTestStore(t)

	role, err := s.AddRole("Operator")
	require.NoError(t, err)

	mustGrant(t, s, role, "can_get", "UserView")

	err = s.DelPermissionViewMenu("can_get", "UserView", false)
	require.ErrorIs(t, err, ErrPermissionViewInUse)

	// cascade revokes the grant first
	require.NoError(t, s.DelPermissionViewMenu("can_get", "UserView", true))

	fresh, err := s.GetRoleByID(role.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.Permissions)
}

func TestAddPermissionRoleIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	role, err := s.AddRole("Operator")
	require.NoError(t, err)

	pv, err := s.AddPermissionViewMenu("can_get", "UserView")
	require.NoError(t, err)

	require.NoError(t, s.AddPermissionRole(role, pv))
	require.NoError(t, s.AddPermissionRole(role, pv))

	fresh, err := s.GetRoleByID(role.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Permissions, 1)
}

func TestDelPermissionRole(t *testing.T) {
	s := newTestStore(t)

	role, err := s.AddRole("Operator")
	require.NoError(t, err)

	pv, err := s.AddPermissionViewMenu("can_get", "UserView")
	require.NoError(t, err)

	require.NoError(t, s.AddPermissionRole(role, pv))
	require.NoError(t, s.DelPermissionRole(role, pv))

	fresh, err := s.GetRoleByID(role.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.Permissions)

	// nil pair is a no-op
	require.NoError(t, s.DelPermissionRole(role, nil))
}

func TestAddPermissionsViewGrantsAdmin(t *testing.T) {
	s := newTestStore(t)

	admin, err := s.AddRole("Admin")
	require.NoError(t, err)

	require.NoError(t, s.AddPermissionsView([]string{"can_get", "can_post"}, "UserView"))

	fresh, err := s.GetRoleByID(admin.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Permissions, 2)

	// a permission the class stopped exposing is revoked and removed
	require.NoError(t, s.AddPermissionsView([]string{"can_get"}, "UserView"))

	fresh, err = s.GetRoleByID(admin.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Permissions, 1)
	assert.Equal(t, "can_get", fresh.Permissions[0].Permission.Name)

	pv, err := s.FindPermissionViewMenu("can_post", "UserView")
	require.NoError(t, err)
	assert.Nil(t, pv)
}

func TestAddPermissionsMenu(t *testing.T) {
	s := newTestStore(t)

	admin, err := s.AddRole("Admin")
	require.NoError(t, err)

	require.NoError(t, s.AddPermissionsMenu("Security"))

	fresh, err := s.GetRoleByID(admin.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Permissions, 1)
	assert.Equal(t, "menu_access", fresh.Permissions[0].Permission.Name)
	assert.Equal(t, "Security", fresh.Permissions[0].ViewMenu.Name)
}
