package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// APIKeyPrefixLen is the number of leading characters of a raw key that are
// stored in clear for display and fast-path lookup filtering.
const APIKeyPrefixLen = 12

// ApiKey is a long-lived credential that resolves directly to its owning
// user, bypassing password and session entirely. The plaintext key is
// generated once and never stored; only its hash and a short visible prefix
// persist.
type ApiKey struct {
	// ID is the unique identifier for the key.
	ID uint64 `gorm:"primaryKey"`
	// UUID is the opaque public identifier used in the REST API.
	UUID string `gorm:"column:uuid;unique;size:36;not null"`
	// UserID is the owning user.
	UserID uint64 `gorm:"not null;index"`
	// User is the associated owner (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Name is a caller-chosen label for the key.
	Name string `gorm:"size:100;not null"`
	// KeyHash is the SHA-256 digest of the raw key; the raw key itself is
	// high-entropy so the digest is the lookup key.
	KeyHash string `gorm:"size:64;uniqueIndex;not null"`
	// KeyPrefix is the visible leading fragment of the raw key.
	KeyPrefix string `gorm:"size:16;index;not null"`
	// Scopes is a comma-separated list of granted scopes.
	Scopes string `gorm:"size:512"`
	// Active indicates whether the key is administratively enabled.
	Active bool
	// CreatedOn is when the key was created.
	CreatedOn time.Time `gorm:"autoCreateTime"`
	// ExpiresOn, when set, is the instant after which the key is rejected.
	ExpiresOn *time.Time
	// RevokedOn, when set, marks the key permanently rejected.
	RevokedOn *time.Time
	// LastUsedOn is updated on every successful validation.
	LastUsedOn *time.Time
}

// TableName specifies the database table name for the ApiKey model.
func (ApiKey) TableName() string {
	return "api_key"
}

// IsActive reports whether the key is currently usable: enabled, not revoked
// and not past its expiry.
func (k *ApiKey) IsActive(now time.Time) bool {
	if !k.Active || k.RevokedOn != nil {
		return false
	}

	if k.ExpiresOn != nil && !k.ExpiresOn.After(now) {
		return false
	}

	return true
}

// HashAPIKey returns the hex SHA-256 digest of a raw API key string.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
