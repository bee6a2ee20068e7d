package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
	authmw "github.com/go-secadmin/go-secadmin/internal/web/middleware/auth"
	"github.com/go-secadmin/go-secadmin/internal/web/session"
)

// testEnv wires a complete API service over an in-memory database, mirroring
// the production setup in web.New.
type testEnv struct {
	app   *fiber.App
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
		Auth: config.Auth{
			Type:       config.AuthTypeDB,
			RoleAdmin:  "Admin",
			RolePublic: "Public",
			JWT:        config.JWT{Secret: "test-secret"},
		},
	}

	store := security.NewStore(db, &cfg.Auth)

	_, err = store.AddRole("Admin")
	require.NoError(t, err)
	_, err = store.AddRole("Public")
	require.NoError(t, err)

	for _, decl := range Declarations() {
		require.NoError(t, store.AddPermissionsView(decl.Permissions, decl.Name))
	}

	session.Init(memory.New())

	providers := map[auth.Method]auth.Provider{
		auth.MethodDB: auth.NewDBProvider(store),
	}
	registrar := auth.NewRegistrar(store)
	apiKeys := auth.NewAPIKeyService(store)

	tokens, err := auth.NewTokenService(&cfg.Auth.JWT)
	require.NoError(t, err)

	mw := authmw.New(store, tokens, apiKeys, nil, cfg)

	app := fiber.New()
	app.Use(mw.Authenticate)

	svc := &Service{}
	require.NoError(t, svc.Init(app, cfg, store, providers, registrar, tokens, apiKeys, mw))

	return &testEnv{app: app, store: store, svc: svc}
}

// addUser creates an active user holding the named roles.
func (e *testEnv) addUser(t *testing.T, username, password string, roleNames ...string) *models.User {
	t.Helper()

	roles := make([]*models.Role, 0, len(roleNames))

	for _, name := range roleNames {
		role, err := e.store.FindRole(name)
		require.NoError(t, err)
		require.NotNil(t, role, "role %s must exist", name)
		roles = append(roles, role)
	}

	user, err := e.store.AddUser(nil, username, "Test", "User",
		username+"@example.com", models.HashPassword(password), roles)
	require.NoError(t, err)

	return user
}

// bearerFor issues an access token for the user.
func (e *testEnv) bearerFor(t *testing.T, user *models.User) string {
	t.Helper()

	pair, err := e.svc.tokens.IssuePair(user)
	require.NoError(t, err)

	return pair.AccessToken
}

// request performs a JSON request against the test app. A non-empty token is
// sent as a bearer token.
func (e *testEnv) request(t *testing.T, method, target, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

// decodeBody decodes the JSON response body into a generic map.
func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}
