package login

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestRegisterDisabled(t *testing.T) {
	env := newTestEnv(t)

	resp := performPost(t, env.app, RegisterPath, url.Values{
		"username": {"carol"},
		"email":    {"carol@example.com"},
		"password": {"secret123"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterAndActivate(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Auth.UserRegistration = true
	env.cfg.Auth.UserRegistrationRole = "Public"

	_, err := env.store.AddRole("Public")
	require.NoError(t, err)

	resp := performPost(t, env.app, RegisterPath, url.Values{
		"username":   {"carol"},
		"first_name": {"Carol"},
		"last_name":  {"Cole"},
		"email":      {"carol@example.com"},
		"password":   {"secret123"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	hash, ok := registerBody(t, resp)["registration_hash"].(string)
	require.True(t, ok)
	require.NotEmpty(t, hash)

	// no account before activation
	pending, err := env.store.FindUser("carol")
	require.NoError(t, err)
	require.Nil(t, pending)

	req := httptest.NewRequest(http.MethodGet, RegisterPath+"/activation/"+hash, nil)
	actResp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, actResp.StatusCode)
	assert.Equal(t, "carol", registerBody(t, actResp)["username"])

	user, err := env.store.FindUser("carol")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, "Public", user.Roles[0].Name)

	// the new account can log in with the registered password
	loginResp := performPost(t, env.app, Path, url.Values{
		"username": {"carol"},
		"password": {"secret123"},
	})
	assert.Equal(t, http.StatusFound, loginResp.StatusCode)

	// a hash confirms exactly once
	req = httptest.NewRequest(http.MethodGet, RegisterPath+"/activation/"+hash, nil)
	actResp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, actResp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Auth.UserRegistration = true

	resp := performPost(t, env.app, RegisterPath, url.Values{
		"username": {"carol"},
		"password": {"secret123"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = performPost(t, env.app, RegisterPath, url.Values{
		"username": {"carol"},
		"email":    {"carol@example.com"},
		"password": {"short"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterTakenUsername(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Auth.UserRegistration = true
	env.addUser(t, "carol", "secret123")

	resp := performPost(t, env.app, RegisterPath, url.Values{
		"username": {"carol"},
		"email":    {"other@example.com"},
		"password": {"secret123"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
