package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
	"github.com/go-secadmin/go-secadmin/internal/web/handler/api"
)

// seed guarantees the builtin roles, registers every protected endpoint class
// in the permission graph and creates the initial admin account on an empty
// database.
func seed(cfg *config.Config, db *gorm.DB) {
	store := security.NewStore(db, &cfg.Auth)

	admin, err := store.AddRole(cfg.Auth.RoleAdmin)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin role")
	}

	if _, err = store.AddRole(cfg.Auth.RolePublic); err != nil {
		log.Fatal().Err(err).Msg("failed to seed public role")
	}

	// register endpoint classes; this also grants every pair to the admin role
	for _, decl := range api.Declarations() {
		if err = store.AddPermissionsView(decl.Permissions, decl.Name); err != nil {
			log.Fatal().Err(err).Str("view", decl.Name).Msg("failed to register view permissions")
		}
	}

	count, err := store.CountUsers()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count users")
	}

	if count > 0 {
		return
	}

	// first boot: create the initial admin account
	_, err = store.AddUser(
		nil,
		"admin",
		"Admin",
		"User",
		"admin@localhost",
		models.HashPassword("changeme"),
		[]*models.Role{admin},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin user")
	}

	log.Warn().Msg("created default admin account with password 'changeme', change it immediately")
}
