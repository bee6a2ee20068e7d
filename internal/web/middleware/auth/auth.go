package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
	"github.com/go-secadmin/go-secadmin/internal/web/session"
)

// localsUserKey carries the authenticated user in fiber locals.
const localsUserKey = "CurrentUser"

// Middleware authenticates each request from one of the accepted credential
// carriers, in order: session cookie, JWT bearer token, API key header.
// Requests without credentials continue anonymously; authorization decides
// what an anonymous request may do.
type Middleware struct {
	store   *security.Store
	tokens  *auth.TokenService
	apiKeys *auth.APIKeyService
	remote  *auth.RemoteUserProvider
	cfg     *config.Config
}

// New creates the authentication middleware.
func New(
	store *security.Store,
	tokens *auth.TokenService,
	apiKeys *auth.APIKeyService,
	remote *auth.RemoteUserProvider,
	cfg *config.Config,
) *Middleware {
	return &Middleware{
		store:   store,
		tokens:  tokens,
		apiKeys: apiKeys,
		remote:  remote,
		cfg:     cfg,
	}
}

// Authenticate resolves the request's credentials to a user and stores it in
// locals. Invalid presented credentials are rejected immediately, absent
// credentials pass through anonymously.
func (m *Middleware) Authenticate(c *fiber.Ctx) error {
	if sessionID := c.Cookies("session"); sessionID != "" {
		sessData := new(session.Data)
		if err := sessData.Read(sessionID); err == nil && sessData.User.ID > 0 {
			return m.resolve(c, sessData.User.ID)
		}
	}

	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		return m.authenticateJWT(c, strings.TrimPrefix(header, "Bearer "))
	}

	if rawKey := c.Get("X-API-Key"); rawKey != "" {
		return m.authenticateAPIKey(c, rawKey)
	}

	if m.remote != nil && m.cfg.Auth.Type == config.AuthTypeRemoteUser {
		if remoteUser := c.Get(m.remote.Header()); remoteUser != "" {
			return m.authenticateRemoteUser(c, remoteUser)
		}
	}

	return c.Next()
}

func (m *Middleware) authenticateJWT(c *fiber.Ctx, token string) error {
	if m.tokens == nil {
		return Unauthorized(c, "bearer token auth is not enabled")
	}

	claims, err := m.tokens.ValidateAccess(token)
	if err != nil {
		return Unauthorized(c, "invalid or expired token")
	}

	return m.resolve(c, claims.UserID)
}

func (m *Middleware) authenticateAPIKey(c *fiber.Ctx, rawKey string) error {
	user, _, err := m.apiKeys.Validate(rawKey)
	if err != nil {
		return Unauthorized(c, "invalid api key")
	}

	c.Locals(localsUserKey, user)

	return c.Next()
}

func (m *Middleware) authenticateRemoteUser(c *fiber.Ctx, remoteUser string) error {
	user, err := m.store.FindUser(remoteUser)
	if err != nil {
		log.Error().Err(err).Msg("remote user lookup failed")
		return fiber.ErrInternalServerError
	}

	if user == nil || !user.Active {
		return Unauthorized(c, "unknown remote user")
	}

	c.Locals(localsUserKey, user)

	return c.Next()
}

func (m *Middleware) resolve(c *fiber.Ctx, userID uint64) error {
	user, err := m.store.GetUserByID(userID)
	if err != nil {
		return Unauthorized(c, "unknown user")
	}

	if !user.Active {
		return Unauthorized(c, "user account is disabled")
	}

	c.Locals(localsUserKey, user)

	return c.Next()
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localsUserKey).(*models.User)
	return user
}

// RequireUser rejects anonymous requests.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return Unauthorized(c, "authentication required")
		}

		return c.Next()
	}
}

// RequirePermission authorizes the request against the permission graph.
// Anonymous requests pass only when the Public role holds the grant.
func (m *Middleware) RequirePermission(permissionName, viewName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)

		allowed, err := m.store.HasAccess(user, permissionName, viewName)
		if err != nil {
			log.Error().Err(err).
				Str("permission", permissionName).
				Str("view", viewName).
				Msg("authorization check failed")

			return fiber.ErrInternalServerError
		}

		if !allowed {
			if user == nil {
				return Unauthorized(c, "authentication required")
			}

			log.Warn().Uint64("user_id", user.ID).
				Str("permission", permissionName).
				Str("view", viewName).
				Msg("user lacks required permission")

			return Forbidden(c)
		}

		return c.Next()
	}
}

// Unauthorized writes the 401 JSON response.
func Unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}

// Forbidden writes the 403 JSON response.
func Forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "you don't have permission to access this resource",
	})
}
