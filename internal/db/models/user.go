package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents an account in the system. Users authenticate through one of
// the configured providers (database password, LDAP, OAuth, SAML, CAS,
// REMOTE_USER or API key) and carry both directly-assigned roles and group
// memberships.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the account may log in. Users referenced
	// elsewhere are soft-disabled via Active=false rather than deleted.
	Active bool
	// Username is the unique username for login.
	Username string `gorm:"unique;size:64;not null"`
	// Email is the user's unique email address.
	Email string `gorm:"unique;size:320;not null"`
	// Password is the Argon2id hashed password (database provider only).
	Password string `gorm:"size:256"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:64"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:64"`
	// Roles are the roles assigned directly to the user.
	Roles []*Role `gorm:"many2many:ab_user_role"`
	// Groups are the groups the user belongs to.
	Groups []*Group `gorm:"many2many:ab_user_group"`
	// LoginCount is the number of successful logins.
	LoginCount int
	// FailLoginCount counts consecutive failed login attempts; reset to zero
	// on the next successful login.
	FailLoginCount int
	// LastLogin is the timestamp of the last successful login.
	LastLogin *time.Time
	// CreatedOn is the timestamp when the user was created.
	CreatedOn time.Time `gorm:"autoCreateTime"`
	// ChangedOn is the timestamp when the user was last updated.
	ChangedOn time.Time `gorm:"autoUpdateTime"`
	// CreatedByFk references the user that created this row (audit trail).
	CreatedByFk *uint64 `gorm:"column:created_by_fk"`
	// ChangedByFk references the user that last changed this row.
	ChangedByFk *uint64 `gorm:"column:changed_by_fk"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "ab_user"
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}

	return u.FirstName + " " + u.LastName
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored
// hashed password using constant-time comparison.
func (u *User) VerifyPassword(password string) bool {
	return VerifyPasswordHash(password, u.Password)
}

// VerifyPasswordHash verifies a plaintext password against an Argon2id hash.
func VerifyPasswordHash(password, hash string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
