package login

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
	websess "github.com/go-secadmin/go-secadmin/internal/web/session"
)

type testEnv struct {
	app   *fiber.App
	cfg   *config.Config
	store *security.Store
	svc   *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Group{},
		&models.Permission{},
		&models.ViewMenu{},
		&models.PermissionView{},
		&models.ApiKey{},
		&models.RegisterUser{},
	))

	cfg := &config.Config{
		Webserver: config.Webserver{
			URL:     "http://localhost:3000",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
		Auth: config.Auth{
			Type:       config.AuthTypeDB,
			RoleAdmin:  "Admin",
			RolePublic: "Public",
		},
	}

	store := security.NewStore(db, &cfg.Auth)

	websess.Init(memory.New())

	providers := map[auth.Method]auth.Provider{
		auth.MethodDB: auth.NewDBProvider(store),
		auth.MethodRemoteUser: auth.NewRemoteUserProvider(
			&cfg.Auth.RemoteUser,
		),
	}

	app := fiber.New()

	svc := &Service{}
	require.NoError(t, svc.Init(app, cfg, providers, auth.NewRegistrar(store)))

	return &testEnv{app: app, cfg: cfg, store: store, svc: svc}
}

func (e *testEnv) addUser(t *testing.T, username, password string) *models.User {
	t.Helper()

	user, err := e.store.AddUser(nil, username, "Test", "User",
		username+"@example.com", models.HashPassword(password), nil)
	require.NoError(t, err)

	return user
}

func performPost(t *testing.T, app *fiber.App, target string, form url.Values) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session" {
			return cookie
		}
	}

	return nil
}

func TestGetDescribesLoginMethods(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, Path+"/", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "application/json")
}

func TestPostSuccessSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", "sup3rsecret")

	resp := performPost(t, env.app, Path+"/", url.Values{
		"username": {"alice"},
		"password": {"sup3rsecret"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)

	// the session resolves back to the user
	var data websess.Data
	require.NoError(t, data.Read(cookie.Value))
	assert.Equal(t, "alice", data.User.Username)
	assert.Equal(t, "db", data.Method)
}

func TestPostDevModeDisablesSecureCookie(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.DevMode = true
	env.addUser(t, "alice", "sup3rsecret")

	resp := performPost(t, env.app, Path+"/", url.Values{
		"username": {"alice"},
		"password": {"sup3rsecret"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.False(t, cookie.Secure)
}

func TestPostWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", "sup3rsecret")

	resp := performPost(t, env.app, Path+"/", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, sessionCookie(resp))
}

func TestPostDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice", "sup3rsecret")
	require.NoError(t, env.store.DeactivateUser(user.ID))

	resp := performPost(t, env.app, Path+"/", url.Values{
		"username": {"alice"},
		"password": {"sup3rsecret"},
	})

	// indistinguishable from wrong credentials
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostMissingFields(t *testing.T) {
	env := newTestEnv(t)

	resp := performPost(t, env.app, Path+"/", url.Values{"username": {"alice"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostRejectsNonCredentialMethods(t *testing.T) {
	env := newTestEnv(t)

	resp := performPost(t, env.app, Path+"/", url.Values{
		"username":  {"alice"},
		"password":  {"x"},
		"auth_type": {"saml"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutDestroysSession(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", "sup3rsecret")

	resp := performPost(t, env.app, Path+"/", url.Values{
		"username": {"alice"},
		"password": {"sup3rsecret"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: cookie.Value})

	logoutResp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, logoutResp.StatusCode)
	assert.Equal(t, Path, logoutResp.Header.Get(fiber.HeaderLocation))

	var data websess.Data
	assert.Error(t, data.Read(cookie.Value))
}

func TestRemoteUserLogin(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Auth.Type = config.AuthTypeRemoteUser
	env.addUser(t, "alice", "sup3rsecret")

	req := httptest.NewRequest(http.MethodGet, Path+"/", nil)
	req.Header.Set("Remote-User", "alice")

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.NotNil(t, sessionCookie(resp))
}

func TestRemoteUserLoginMissingHeader(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Auth.Type = config.AuthTypeRemoteUser

	req := httptest.NewRequest(http.MethodGet, Path+"/", nil)

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSSOEndpointsReportUnconfiguredMethods(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		Path + "/oauth/azure",
		Path + "/saml",
		Path + "/cas",
		Path + "/cas/authorized?ticket=ST-1",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)

		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
	}
}

func TestOAuthCallbackStateMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.svc.providers[auth.MethodOAuth] = &auth.OAuthProvider{}

	req := httptest.NewRequest(http.MethodGet, "/oauth-authorized/azure?state=foo&code=bar", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "other"})

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
