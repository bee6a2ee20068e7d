package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	authmw "github.com/go-secadmin/go-secadmin/internal/web/middleware/auth"
)

type apiKeyResponse struct {
	UUID       string     `json:"uuid"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	Active     bool       `json:"active"`
	CreatedOn  time.Time  `json:"created_on"`
	ExpiresOn  *time.Time `json:"expires_on,omitempty"`
	LastUsedOn *time.Time `json:"last_used_on,omitempty"`
	RevokedOn  *time.Time `json:"revoked_on,omitempty"`
}

func toAPIKeyResponse(key *models.ApiKey) apiKeyResponse {
	return apiKeyResponse{
		UUID:       key.UUID,
		Name:       key.Name,
		KeyPrefix:  key.KeyPrefix,
		Scopes:     auth.Scopes(key),
		Active:     key.Active,
		CreatedOn:  key.CreatedOn,
		ExpiresOn:  key.ExpiresOn,
		LastUsedOn: key.LastUsedOn,
		RevokedOn:  key.RevokedOn,
	}
}

type createAPIKeyRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	Scopes    []string   `json:"scopes" validate:"omitempty,dive,required"`
	ExpiresOn *time.Time `json:"expires_on" validate:"omitempty"`
}

// ListAPIKeys returns the calling user's keys, newest first.
func (s *Service) ListAPIKeys(c *fiber.Ctx) error {
	user := authmw.CurrentUser(c)

	keys, err := s.apiKeys.List(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list api keys")
		return fiber.ErrInternalServerError
	}

	out := make([]apiKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, toAPIKeyResponse(&keys[i]))
	}

	return c.JSON(fiber.Map{"count": len(out), "result": out})
}

// CreateAPIKey issues a new key for the calling user. The raw key appears in
// this response only and is never retrievable again.
func (s *Service) CreateAPIKey(c *fiber.Ctx) error {
	user := authmw.CurrentUser(c)

	var req createAPIKeyRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	if req.ExpiresOn != nil && req.ExpiresOn.Before(time.Now()) {
		return badRequest(c, "expires_on is in the past")
	}

	raw, key, err := s.apiKeys.Create(user, req.Name, req.Scopes, req.ExpiresOn)
	if err != nil {
		log.Error().Err(err).Msg("failed to create api key")
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key":     raw,
		"api_key": toAPIKeyResponse(key),
	})
}

// RevokeAPIKey permanently rejects one of the calling user's keys.
func (s *Service) RevokeAPIKey(c *fiber.Ctx) error {
	user := authmw.CurrentUser(c)

	err := s.apiKeys.Revoke(user.ID, c.Params("uuid"))

	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusNoContent)
	case errors.Is(err, auth.ErrAPIKeyInvalid):
		return notFound(c, "api key not found")
	default:
		log.Error().Err(err).Msg("failed to revoke api key")
		return fiber.ErrInternalServerError
	}
}
