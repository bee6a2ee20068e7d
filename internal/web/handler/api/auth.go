package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	authmw "github.com/go-secadmin/go-secadmin/internal/web/middleware/auth"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	// Provider selects the authentication method; only the password based
	// methods make sense for the JSON API.
	Provider string `json:"provider" validate:"omitempty,oneof=db ldap"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Login authenticates username/password credentials and issues a JWT pair.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.tokens == nil {
		return badRequest(c, "token auth is not enabled")
	}

	var req loginRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	method := auth.Method(req.Provider)
	if req.Provider == "" {
		method = auth.Method(s.cfg.Auth.Type)
	}

	provider, ok := s.providers[method]
	if !ok {
		return badRequest(c, "authentication method not available")
	}

	identity, err := provider.Authenticate(c.Context(), auth.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return s.loginError(c, err)
	}

	user, err := s.registrar.Complete(identity)
	if err != nil {
		return s.loginError(c, err)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue token pair")
		return fiber.ErrInternalServerError
	}

	return c.JSON(pair)
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(c *fiber.Ctx) error {
	if s.tokens == nil {
		return badRequest(c, "token auth is not enabled")
	}

	var req refreshRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	claims, err := s.tokens.ValidateRefresh(req.RefreshToken)
	if err != nil {
		return authmw.Unauthorized(c, "invalid or expired refresh token")
	}

	user, err := s.store.GetUserByID(claims.UserID)
	if err != nil || !user.Active {
		return authmw.Unauthorized(c, "unknown user")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue token pair")
		return fiber.ErrInternalServerError
	}

	return c.JSON(pair)
}

// loginError maps provider failures to HTTP responses without leaking which
// part of the credential was wrong.
func (s *Service) loginError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrUserAccountDisabled),
		errors.Is(err, auth.ErrRegistrationDisabled):
		return authmw.Unauthorized(c, "invalid username or password")
	case errors.Is(err, auth.ErrUpstreamUnavailable):
		log.Error().Err(err).Msg("identity provider unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "identity provider unavailable",
		})
	default:
		log.Error().Err(err).Msg("login failed")
		return fiber.ErrInternalServerError
	}
}
