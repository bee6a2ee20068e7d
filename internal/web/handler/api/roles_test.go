package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", "sup3rsecret", "Admin")
	token := env.bearerFor(t, admin)

	resp := env.request(t, http.MethodPost, BasePath+"/roles/", token, `{"name": "Operator"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody(t, resp)
	assert.Equal(t, "Operator", created["name"])

	roleID := fmt.Sprintf("%.0f", created["id"].(float64))

	// rename
	resp = env.request(t, http.MethodPut, BasePath+"/roles/"+roleID, token, `{"name": "Ops"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ops", decodeBody(t, resp)["name"])

	// delete
	resp = env.request(t, http.MethodDelete, BasePath+"/roles/"+roleID, token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, BasePath+"/roles/"+roleID, token, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteAssignedRoleConflicts(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", "sup3rsecret", "Admin")

	public, err := env.store.FindRole("Public")
	require.NoError(t, err)
	env.addUser(t, "bob", "sup3rsecret", "Public")

	resp := env.request(t, http.MethodDelete,
		fmt.Sprintf("%s/roles/%d", BasePath, public.ID), env.bearerFor(t, admin), "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSetRolePermissionsReplacesGrants(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", "sup3rsecret", "Admin")
	token := env.bearerFor(t, admin)

	resp := env.request(t, http.MethodPost, BasePath+"/roles/", token, `{"name": "Viewer"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	roleID := fmt.Sprintf("%.0f", decodeBody(t, resp)["id"].(float64))

	resp = env.request(t, http.MethodPost, BasePath+"/roles/"+roleID+"/permissions", token,
		`{"permissions": [
			{"permission": "can_get", "resource": "User"},
			{"permission": "can_get", "resource": "Role"}
		]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody(t, resp)["permission_view_ids"], 2)

	// replacing with one pair revokes the other
	resp = env.request(t, http.MethodPost, BasePath+"/roles/"+roleID+"/permissions", token,
		`{"permissions": [{"permission": "can_get", "resource": "User"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ids := decodeBody(t, resp)["permission_view_ids"].([]interface{})
	require.Len(t, ids, 1)

	pv, err := env.store.FindPermissionViewMenu("can_get", "User")
	require.NoError(t, err)
	require.NotNil(t, pv)
	assert.Equal(t, float64(pv.ID), ids[0])
}

func TestSetRolePermissionsUnknownPairRejected(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", "sup3rsecret", "Admin")
	token := env.bearerFor(t, admin)

	resp := env.request(t, http.MethodPost, BasePath+"/roles/", token, `{"name": "Viewer"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	roleID := fmt.Sprintf("%.0f", decodeBody(t, resp)["id"].(float64))

	resp = env.request(t, http.MethodPost, BasePath+"/roles/"+roleID+"/permissions", token,
		`{"permissions": [
			{"permission": "can_get", "resource": "User"},
			{"permission": "can_fly", "resource": "Moon"}
		]}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// the unknown pair was not created and the role gained nothing
	pv, err := env.store.FindPermissionViewMenu("can_fly", "Moon")
	require.NoError(t, err)
	assert.Nil(t, pv)

	role, err := env.store.FindRole("Viewer")
	require.NoError(t, err)
	assert.Empty(t, role.Permissions)
}

func TestAssignRoleUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", "sup3rsecret", "Admin")
	bob := env.addUser(t, "bob", "sup3rsecret")
	token := env.bearerFor(t, admin)

	public, err := env.store.FindRole("Public")
	require.NoError(t, err)

	resp := env.request(t, http.MethodPost,
		fmt.Sprintf("%s/roles/%d/users", BasePath, public.ID), token,
		fmt.Sprintf(`{"user_ids": [%d]}`, bob.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the response lists every user carrying the role afterwards
	ids := decodeBody(t, resp)["user_ids"].([]interface{})
	require.Len(t, ids, 1)
	assert.Equal(t, float64(bob.ID), ids[0])

	reloaded, err := env.store.GetUserByID(bob.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Roles, 1)
	assert.Equal(t, "Public", reloaded.Roles[0].Name)

	// assigning again is a no-op
	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("%s/roles/%d/users", BasePath, public.ID), token,
		fmt.Sprintf(`{"user_ids": [%d]}`, bob.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody(t, resp)["user_ids"], 1)

	reloaded, err = env.store.GetUserByID(bob.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Roles, 1)
}

func TestAssignRoleUsersUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", "sup3rsecret", "Admin")
	bob := env.addUser(t, "bob", "sup3rsecret")

	public, err := env.store.FindRole("Public")
	require.NoError(t, err)

	resp := env.request(t, http.MethodPost,
		fmt.Sprintf("%s/roles/%d/users", BasePath, public.ID), env.bearerFor(t, admin),
		fmt.Sprintf(`{"user_ids": [%d, 9999]}`, bob.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// the known user in the same request was not assigned either
	reloaded, err := env.store.GetUserByID(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Roles)
}

func TestGroupEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", "sup3rsecret", "Admin")
	token := env.bearerFor(t, admin)

	// unknown role refused
	resp := env.request(t, http.MethodPost, BasePath+"/groups/", token,
		`{"name": "staff", "roles": ["Nope"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, BasePath+"/groups/", token,
		`{"name": "staff", "label": "Staff", "roles": ["Public"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody(t, resp)
	assert.Equal(t, []interface{}{"Public"}, created["roles"])

	groupID := fmt.Sprintf("%.0f", created["id"].(float64))

	resp = env.request(t, http.MethodGet, BasePath+"/groups/", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeBody(t, resp)["count"])

	resp = env.request(t, http.MethodDelete, BasePath+"/groups/"+groupID, token, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, BasePath+"/groups/"+groupID, token, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPermissionResourceEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", "sup3rsecret", "Admin")
	token := env.bearerFor(t, admin)

	resp := env.request(t, http.MethodPost, BasePath+"/permissions-resources/", token,
		`{"permission": "can_export", "resource": "Report"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// every registered pair is granted to Admin, so deleting one without
	// cascade conflicts
	resp = env.request(t, http.MethodDelete, BasePath+"/permissions-resources/", token,
		`{"permission": "can_get", "resource": "User"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, BasePath+"/permissions-resources/?cascade=true", token,
		`{"permission": "can_export", "resource": "Report"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	pv, err := env.store.FindPermissionViewMenu("can_export", "Report")
	require.NoError(t, err)
	assert.Nil(t, pv)
}
