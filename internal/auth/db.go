package auth

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
)

// fakePasswordHash is compared when the user is unknown so a lookup miss
// costs the same as a wrong password. Hash of a random throwaway string.
const fakePasswordHash = "$argon2id$v=19$m=65536,t=1,p=2$c2VjYWRtaW5mYWtlc2FsdA$zp9d4vPMrHx1HgbOkrFAsl3VBYZf1G5rcSl0g4RAl+0"

// DBProvider authenticates against the local ab_user table.
type DBProvider struct {
	store *security.Store
}

// NewDBProvider creates the database authentication provider.
func NewDBProvider(store *security.Store) *DBProvider {
	return &DBProvider{store: store}
}

// Method implements Provider.
func (p *DBProvider) Method() Method { return MethodDB }

func (p *DBProvider) provider() {}

// Authenticate verifies the username/password pair against the stored
// Argon2id hash. Failed attempts bump fail_login_count; unknown users still
// pay for one hash comparison.
func (p *DBProvider) Authenticate(_ context.Context, creds Credentials) (*Identity, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := p.store.FindUser(creds.Username)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// burn a comparison so response timing does not leak user existence
		fake := p.store.Config().FakePasswordHash
		if fake == "" {
			fake = fakePasswordHash
		}

		verifyHash(creds.Password, fake)
		log.Info().Str("username", creds.Username).Msg("login attempt for unknown user")

		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	if !user.VerifyPassword(creds.Password) {
		if errStat := p.store.UpdateUserAuthStat(user, false); errStat != nil {
			log.Error().Err(errStat).Uint64("user_id", user.ID).Msg("failed to update auth stats")
		}

		return nil, ErrInvalidCredentials
	}

	return &Identity{
		Method:    MethodDB,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// verifyHash runs one Argon2id comparison and discards the result.
func verifyHash(password, hash string) {
	_ = models.VerifyPasswordHash(password, hash)
}
