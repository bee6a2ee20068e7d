// Package api implements the REST surface under /api/v1/security.
package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/security"
	authmw "github.com/go-secadmin/go-secadmin/internal/web/middleware/auth"
)

// BasePath is the mount point of the security API.
const BasePath = "/api/v1/security"

// Resource view names used for authorization checks. Every endpoint group is
// registered as a view in the permission graph at startup.
const (
	ViewUser           = "User"
	ViewRole           = "Role"
	ViewGroup          = "Group"
	ViewPermission     = "Permission"
	ViewResource       = "ViewMenu"
	ViewPermissionView = "PermissionViewMenu"
	ViewAPIKey         = "ApiKey"
)

// CRUD permission names.
const (
	PermCanGet    = "can_get"
	PermCanPost   = "can_post"
	PermCanPut    = "can_put"
	PermCanDelete = "can_delete"
)

// Service is the security API handler service.
type Service struct {
	cfg       *config.Config
	store     *security.Store
	providers map[auth.Method]auth.Provider
	registrar *auth.Registrar
	tokens    *auth.TokenService
	apiKeys   *auth.APIKeyService
	mw        *authmw.Middleware
	validate  *validator.Validate
}

// Handler is the security API handler.
var Handler = Service{}

// Init registers the REST routes.
func (s *Service) Init(
	app *fiber.App,
	cfg *config.Config,
	store *security.Store,
	providers map[auth.Method]auth.Provider,
	registrar *auth.Registrar,
	tokens *auth.TokenService,
	apiKeys *auth.APIKeyService,
	mw *authmw.Middleware,
) error {
	if app == nil || cfg == nil || store == nil {
		return errors.New("app, cfg or store is nil")
	}

	s.cfg = cfg
	s.store = store
	s.providers = providers
	s.registrar = registrar
	s.tokens = tokens
	s.apiKeys = apiKeys
	s.mw = mw
	s.validate = validator.New()

	app.Route(BasePath, func(router fiber.Router) {
		router.Post("/login", s.Login)
		router.Post("/refresh", s.Refresh)

		router.Get("/users/", s.mw.RequirePermission(PermCanGet, ViewUser), s.ListUsers)
		router.Post("/users/", s.mw.RequirePermission(PermCanPost, ViewUser), s.CreateUser)
		router.Get("/users/:id", s.mw.RequirePermission(PermCanGet, ViewUser), s.GetUser)
		router.Put("/users/:id", s.mw.RequirePermission(PermCanPut, ViewUser), s.UpdateUser)
		router.Delete("/users/:id", s.mw.RequirePermission(PermCanDelete, ViewUser), s.DeleteUser)

		router.Get("/roles/", s.mw.RequirePermission(PermCanGet, ViewRole), s.ListRoles)
		router.Post("/roles/", s.mw.RequirePermission(PermCanPost, ViewRole), s.CreateRole)
		router.Get("/roles/:id", s.mw.RequirePermission(PermCanGet, ViewRole), s.GetRole)
		router.Put("/roles/:id", s.mw.RequirePermission(PermCanPut, ViewRole), s.UpdateRole)
		router.Delete("/roles/:id", s.mw.RequirePermission(PermCanDelete, ViewRole), s.DeleteRole)
		router.Post("/roles/:id/permissions", s.mw.RequirePermission(PermCanPost, ViewRole), s.SetRolePermissions)
		router.Post("/roles/:id/users", s.mw.RequirePermission(PermCanPost, ViewRole), s.AssignRoleUsers)

		router.Get("/groups/", s.mw.RequirePermission(PermCanGet, ViewGroup), s.ListGroups)
		router.Post("/groups/", s.mw.RequirePermission(PermCanPost, ViewGroup), s.CreateGroup)
		router.Delete("/groups/:id", s.mw.RequirePermission(PermCanDelete, ViewGroup), s.DeleteGroup)

		router.Get("/permissions/", s.mw.RequirePermission(PermCanGet, ViewPermission), s.ListPermissions)
		router.Post("/permissions/", s.mw.RequirePermission(PermCanPost, ViewPermission), s.CreatePermission)
		router.Put("/permissions/:id", s.mw.RequirePermission(PermCanPut, ViewPermission), s.UpdatePermission)
		router.Delete("/permissions/:id", s.mw.RequirePermission(PermCanDelete, ViewPermission), s.DeletePermission)

		router.Get("/resources/", s.mw.RequirePermission(PermCanGet, ViewResource), s.ListResources)
		router.Post("/resources/", s.mw.RequirePermission(PermCanPost, ViewResource), s.CreateResource)
		router.Put("/resources/:id", s.mw.RequirePermission(PermCanPut, ViewResource), s.UpdateResource)
		router.Delete("/resources/:id", s.mw.RequirePermission(PermCanDelete, ViewResource), s.DeleteResource)

		router.Get("/permissions-resources/",
			s.mw.RequirePermission(PermCanGet, ViewPermissionView), s.ListPermissionResources)
		router.Post("/permissions-resources/",
			s.mw.RequirePermission(PermCanPost, ViewPermissionView), s.CreatePermissionResource)
		router.Put("/permissions-resources/:id",
			s.mw.RequirePermission(PermCanPut, ViewPermissionView), s.UpdatePermissionResource)
		router.Delete("/permissions-resources/",
			s.mw.RequirePermission(PermCanDelete, ViewPermissionView), s.DeletePermissionResource)

		router.Get("/api_keys/", authmw.RequireUser(), s.ListAPIKeys)
		router.Post("/api_keys/", authmw.RequireUser(), s.CreateAPIKey)
		router.Delete("/api_keys/:uuid", authmw.RequireUser(), s.RevokeAPIKey)
	})

	return nil
}

// Declarations lists every API view with its permissions, for the permission
// registry and the converge/cleanup tools.
func Declarations() []security.ViewDeclaration {
	crud := []string{PermCanGet, PermCanPost, PermCanPut, PermCanDelete}

	views := []string{
		ViewUser, ViewRole, ViewGroup,
		ViewPermission, ViewResource, ViewPermissionView,
		ViewAPIKey,
	}

	decls := make([]security.ViewDeclaration, 0, len(views))
	for _, view := range views {
		decls = append(decls, security.ViewDeclaration{
			Name:        view,
			Permissions: crud,
		})
	}

	return decls
}

// parseBody decodes and validates a JSON request body. On failure the 400
// response has already been written and false is returned.
func (s *Service) parseBody(c *fiber.Ctx, out interface{}) bool {
	if err := c.BodyParser(out); err != nil {
		_ = badRequest(c, "invalid request body")
		return false
	}

	if err := s.validate.Struct(out); err != nil {
		_ = badRequest(c, err.Error())
		return false
	}

	return true
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": message})
}

func conflict(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": message})
}
