package auth

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
)

func newTestStore(t *testing.T) *security.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Group{},
		&models.Permission{},
		&models.ViewMenu{},
		&models.PermissionView{},
		&models.ApiKey{},
		&models.RegisterUser{},
	))

	return security.NewStore(db, &config.Auth{
		Type:       config.AuthTypeDB,
		RoleAdmin:  "Admin",
		RolePublic: "Public",
	})
}

func mustAddUser(t *testing.T, s *security.Store, username, password string) *models.User {
	t.Helper()

	user, err := s.AddUser(
		nil,
		username,
		"Test",
		"User",
		username+"@example.com",
		models.HashPassword(password),
		nil,
	)
	require.NoError(t, err)

	return user
}
