package models

import "time"

// RegisterUser is a transient pending-registration record used during the
// self-registration email confirmation flow. Confirming the registration hash
// promotes the record to a real User and deletes it.
type RegisterUser struct {
	ID uint64 `gorm:"primaryKey"`
	// Username requested by the registrant.
	Username string `gorm:"size:64;not null"`
	// Email of the registrant.
	Email     string `gorm:"size:320;not null"`
	FirstName string `gorm:"size:64"`
	LastName  string `gorm:"size:64"`
	// Password is the Argon2id hash captured at registration time.
	Password string `gorm:"size:256"`
	// RegistrationHash is the random token mailed to the registrant.
	RegistrationHash string `gorm:"size:256;index"`
	// RegistrationDate is when the registration was requested.
	RegistrationDate time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the database table name for the RegisterUser model.
func (RegisterUser) TableName() string {
	return "ab_register_user"
}
