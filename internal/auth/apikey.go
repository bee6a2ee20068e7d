package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
	"github.com/go-secadmin/go-secadmin/internal/uniuri"
)

// apiKeyRandomLen is the number of random characters after the configured
// prefix. Together with the prefix that is well over 128 bits of entropy.
const apiKeyRandomLen = 40

// APIKeyService creates, validates and revokes API keys.
type APIKeyService struct {
	store *security.Store
}

// NewAPIKeyService creates the API key service.
func NewAPIKeyService(store *security.Store) *APIKeyService {
	return &APIKeyService{store: store}
}

// Create issues a new API key for the user. The raw key is returned exactly
// once; only its hash and display prefix are stored.
func (s *APIKeyService) Create(
	user *models.User,
	name string,
	scopes []string,
	expiresOn *time.Time,
) (string, *models.ApiKey, error) {
	raw := s.store.Config().APIKeyPrefix + uniuri.NewLen(apiKeyRandomLen)

	key := &models.ApiKey{
		UUID:      uuid.NewString(),
		UserID:    user.ID,
		Name:      name,
		KeyHash:   models.HashAPIKey(raw),
		KeyPrefix: raw[:models.APIKeyPrefixLen],
		Scopes:    strings.Join(scopes, ","),
		Active:    true,
		ExpiresOn: expiresOn,
	}

	if err := s.store.DB().Create(key).Error; err != nil {
		return "", nil, errors.Wrap(err, "failed to create api key")
	}

	log.Info().Uint64("user_id", user.ID).Str("key", key.KeyPrefix).Msg("api key created")

	return raw, key, nil
}

// Validate resolves a raw API key to its owning user. The hash is the lookup
// key; the stored prefix narrows the scan first so a miss never hashes more
// than once.
func (s *APIKeyService) Validate(raw string) (*models.User, *models.ApiKey, error) {
	if len(raw) < models.APIKeyPrefixLen {
		return nil, nil, ErrAPIKeyInvalid
	}

	var key models.ApiKey

	err := s.store.DB().
		Where("key_prefix = ? AND key_hash = ?", raw[:models.APIKeyPrefixLen], models.HashAPIKey(raw)).
		First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAPIKeyInvalid
		}

		return nil, nil, errors.Wrap(err, "failed to look up api key")
	}

	now := time.Now()
	if !key.IsActive(now) {
		return nil, nil, ErrAPIKeyInvalid
	}

	user, err := s.store.GetUserByID(key.UserID)
	if err != nil {
		return nil, nil, err
	}

	if !user.Active {
		return nil, nil, ErrUserAccountDisabled
	}

	if errUsed := s.store.DB().Model(&key).Update("last_used_on", now).Error; errUsed != nil {
		log.Warn().Err(errUsed).Str("key", key.KeyPrefix).Msg("failed to update api key last use")
	}

	return user, &key, nil
}

// List returns all keys owned by the user, newest first.
func (s *APIKeyService) List(userID uint64) ([]models.ApiKey, error) {
	var keys []models.ApiKey

	err := s.store.DB().
		Where("user_id = ?", userID).
		Order("created_on DESC").
		Find(&keys).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list api keys")
	}

	return keys, nil
}

// Revoke marks the key permanently rejected. Revocation is idempotent.
func (s *APIKeyService) Revoke(userID uint64, keyUUID string) error {
	var key models.ApiKey

	err := s.store.DB().
		Where("uuid = ? AND user_id = ?", keyUUID, userID).
		First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAPIKeyInvalid
		}

		return errors.Wrap(err, "failed to look up api key")
	}

	if key.RevokedOn != nil {
		return nil
	}

	now := time.Now()

	err = s.store.DB().Model(&key).
		Updates(map[string]interface{}{"revoked_on": now, "active": false}).Error
	if err != nil {
		return errors.Wrap(err, "failed to revoke api key")
	}

	log.Info().Str("key", key.KeyPrefix).Msg("api key revoked")

	return nil
}

// Scopes splits the stored CSV scope list.
func Scopes(key *models.ApiKey) []string {
	if key.Scopes == "" {
		return nil
	}

	return strings.Split(key.Scopes, ",")
}
