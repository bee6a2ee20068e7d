package security

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

func newTestStore(t *testing.T) *Store {
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

	return NewStore(db, &config.Auth{
		Type:       config.AuthTypeDB,
		RoleAdmin:  "Admin",
		RolePublic: "Public",
	})
}

func mustAddUser(t *testing.T, s *Store, username string, roles ...*models.Role) *models.User {
	t.Helper()

	user, err := s.AddUser(
		nil,
		username,
		"Test",
		"User",
		username+"@example.com",
		models.HashPassword("secret"),
		roles,
	)
	require.NoError(t, err)

	return user
}

func mustGrant(t *testing.T, s *Store, role *models.Role, permission, view string) {
	t.Helper()

	pv, err := s.AddPermissionViewMenu(permission, view)
	require.NoError(t, err)
	require.NoError(t, s.AddPermissionRole(role, pv))
}
