package auth

import (
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
	"github.com/go-secadmin/go-secadmin/internal/uniuri"
)

// Registrar is the common post-authentication funnel. Every provider's
// Identity passes through Complete, which provisions unknown externally
// authenticated users (when self registration is on), refreshes profile
// fields, synchronizes mapped roles and records the successful login.
type Registrar struct {
	store *security.Store
}

// NewRegistrar creates the registrar over backing store.
func NewRegistrar(store *security.Store) *Registrar {
	return &Registrar{store: store}
}

// Complete resolves the identity to a local user record.
func (r *Registrar) Complete(identity *Identity) (*models.User, error) {
	user, err := r.store.FindUser(identity.Username)
	if err != nil {
		return nil, err
	}

	if user == nil && identity.Email != "" {
		// SAML and OAuth subjects can rotate; an existing account is matched
		// by email before provisioning a duplicate.
		if user, err = r.store.FindUser(identity.Email); err != nil {
			return nil, err
		}
	}

	if user == nil {
		return r.register(identity)
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	if err = r.refresh(identity, user); err != nil {
		return nil, err
	}

	if errStat := r.store.UpdateUserAuthStat(user, true); errStat != nil {
		log.Error().Err(errStat).Uint64("user_id", user.ID).Msg("failed to update auth stats")
	}

	return user, nil
}

// register provisions a local record for an externally authenticated user.
func (r *Registrar) register(identity *Identity) (*models.User, error) {
	if identity.Method == MethodDB {
		// the database provider authenticates existing users only
		return nil, ErrUserNotFound
	}

	if !r.store.Config().UserRegistration {
		log.Info().
			Str("username", identity.Username).
			Str("method", string(identity.Method)).
			Msg("unknown user rejected, self registration disabled")

		return nil, ErrRegistrationDisabled
	}

	roles, err := r.store.RegistrationRoles(identity.RoleKeys, identity.Userinfo)
	if err != nil {
		return nil, err
	}

	// external accounts get an unguessable local password
	passwordHash := models.HashPassword(uniuri.NewLen(32))

	user, err := r.store.AddUser(nil,
		identity.Username,
		identity.FirstName,
		identity.LastName,
		identity.Email,
		passwordHash,
		roles,
	)
	if err != nil {
		return nil, err
	}

	if errStat := r.store.UpdateUserAuthStat(user, true); errStat != nil {
		log.Error().Err(errStat).Uint64("user_id", user.ID).Msg("failed to update auth stats")
	}

	return user, nil
}

// refresh updates profile fields from the provider and re-syncs mapped roles
// when configured.
func (r *Registrar) refresh(identity *Identity, user *models.User) error {
	changed := false

	if identity.Email != "" && identity.Email != user.Email {
		user.Email = identity.Email
		changed = true
	}

	if identity.FirstName != "" && identity.FirstName != user.FirstName {
		user.FirstName = identity.FirstName
		changed = true
	}

	if identity.LastName != "" && identity.LastName != user.LastName {
		user.LastName = identity.LastName
		changed = true
	}

	if changed {
		if err := r.store.UpdateUser(nil, user); err != nil {
			return err
		}
	}

	if r.store.Config().RolesSyncAtLogin && identity.RoleKeys != nil {
		roles, err := r.store.RolesFromKeys(identity.RoleKeys)
		if err != nil {
			return err
		}

		if err := r.store.SetUserRoles(user, roles); err != nil {
			return err
		}
	}

	return nil
}

// BeginRegistration records a pending self-registration and returns it with
// its confirmation hash. The local account is only created once the hash is
// confirmed.
func (r *Registrar) BeginRegistration(username, firstName, lastName, email, password string) (*models.RegisterUser, error) {
	if !r.store.Config().UserRegistration {
		return nil, ErrRegistrationDisabled
	}

	for _, key := range []string{username, email} {
		user, err := r.store.FindUser(key)
		if err != nil {
			return nil, err
		}

		if user != nil {
			return nil, security.ErrUserNameOrEmailExists
		}
	}

	reg, err := r.store.AddRegisterUser(
		username, firstName, lastName, email,
		models.HashPassword(password),
		uniuri.NewLen(32),
	)
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Msg("self registration pending confirmation")

	return reg, nil
}

// ConfirmRegistration promotes a pending registration to a real user with the
// configured registration role and removes the pending record.
func (r *Registrar) ConfirmRegistration(registrationHash string) (*models.User, error) {
	reg, err := r.store.FindRegisterUser(registrationHash)
	if err != nil {
		return nil, err
	}

	if reg == nil {
		return nil, ErrRegistrationNotFound
	}

	roles, err := r.store.RegistrationRoles(nil, nil)
	if err != nil {
		return nil, err
	}

	user, err := r.store.AddUser(nil, reg.Username, reg.FirstName, reg.LastName, reg.Email, reg.Password, roles)
	if err != nil {
		return nil, err
	}

	if errDel := r.store.DelRegisterUser(reg); errDel != nil {
		log.Error().Err(errDel).Uint64("registration_id", reg.ID).Msg("failed to delete confirmed registration")
	}

	log.Info().Str("username", user.Username).Msg("self registration confirmed")

	return user, nil
}
