package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

// FindUser finds a user by username or, when that fails, by email. Returns
// nil when no row matches.
func (s *Store) FindUser(usernameOrEmail string) (*models.User, error) {
	var user models.User

	err := s.db.Where("username = ?", usernameOrEmail).
		Preload("Roles").
		Preload("Groups").
		Preload("Groups.Roles").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("email = ?", usernameOrEmail).
			Preload("Roles").
			Preload("Groups").
			Preload("Groups.Roles").
			First(&user).Error
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// GetUserByID returns a user by primary key with roles and groups preloaded.
func (s *Store) GetUserByID(id uint64) (*models.User, error) {
	var user models.User

	err := s.db.Preload("Roles").
		Preload("Groups").
		Preload("Groups.Roles").
		First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// GetAllUsers lists users with pagination.
func (s *Store) GetAllUsers(limit, offset int) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)

	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	if err := s.db.Preload("Roles").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

// CountUsers returns the total number of user rows.
func (s *Store) CountUsers() (int64, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

// AddUser creates a new user. The actor, when non-nil, is recorded in the
// audit columns. Duplicate username/email races are caught via the unique
// constraints and surfaced as ErrUserNameOrEmailExists.
func (s *Store) AddUser(
	actor *models.User,
	username, firstName, lastName, email, passwordHash string,
	roles []*models.Role,
) (*models.User, error) {
	existing, err := s.FindUser(username)
	if err != nil {
		return nil, err
	}

	if existing == nil && email != "" {
		if existing, err = s.FindUser(email); err != nil {
			return nil, err
		}
	}

	if existing != nil {
		return nil, ErrUserNameOrEmailExists
	}

	user := models.User{
		Active:    true,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  passwordHash,
		Roles:     roles,
	}

	if actor != nil {
		user.CreatedByFk = &actor.ID
		user.ChangedByFk = &actor.ID
	}

	if err = s.db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserNameOrEmailExists
		}

		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("username", username).Msg("user created")

	return &user, nil
}

// UpdateUser persists changes to an existing user, stamping the audit column
// from the acting principal.
func (s *Store) UpdateUser(actor, user *models.User) error {
	if actor != nil {
		user.ChangedByFk = &actor.ID
	}

	if err := s.db.Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrUserNameOrEmailExists
		}

		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// SetUserRoles replaces a user's directly-assigned role set.
func (s *Store) SetUserRoles(user *models.User, roles []*models.Role) error {
	if err := s.db.Model(user).Association("Roles").Replace(roles); err != nil {
		return fmt.Errorf("failed to set user roles: %w", err)
	}

	user.Roles = roles

	return nil
}

// DeactivateUser soft-disables an account instead of deleting it.
func (s *Store) DeactivateUser(id uint64) error {
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("active", false).Error
}

// UpdateUserAuthStat updates login bookkeeping after an authentication
// attempt: on success login_count increments, last_login is set and
// fail_login_count resets; on failure only fail_login_count increments.
func (s *Store) UpdateUserAuthStat(user *models.User, success bool) error {
	if success {
		now := time.Now()
		user.LoginCount++
		user.LastLogin = &now
		user.FailLoginCount = 0
	} else {
		user.FailLoginCount++
	}

	err := s.db.Model(user).Updates(map[string]interface{}{
		"login_count":      user.LoginCount,
		"fail_login_count": user.FailLoginCount,
		"last_login":       user.LastLogin,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update auth stats: %w", err)
	}

	return nil
}

// FindRegisterUser returns a pending registration by its hash, or nil.
func (s *Store) FindRegisterUser(registrationHash string) (*models.RegisterUser, error) {
	var reg models.RegisterUser

	err := s.db.Where("registration_hash = ?", registrationHash).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query registration: %w", err)
	}

	return &reg, nil
}

// AddRegisterUser records a pending self-registration.
func (s *Store) AddRegisterUser(username, firstName, lastName, email, passwordHash, registrationHash string) (*models.RegisterUser, error) {
	reg := models.RegisterUser{
		Username:         username,
		FirstName:        firstName,
		LastName:         lastName,
		Email:            email,
		Password:         passwordHash,
		RegistrationHash: registrationHash,
	}

	if err := s.db.Create(&reg).Error; err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	return &reg, nil
}

// DelRegisterUser removes a pending registration once confirmed or expired.
func (s *Store) DelRegisterUser(reg *models.RegisterUser) error {
	if err := s.db.Delete(reg).Error; err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation from
// any of the supported drivers. Matching on the error string keeps this
// portable across mysql, postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"unique constraint", "duplicate entry", "duplicate key"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
