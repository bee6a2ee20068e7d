package app

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/go-secadmin/go-secadmin/internal/db/dsn"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/security"
	"github.com/go-secadmin/go-secadmin/internal/web/handler/api"
)

func init() { //nolint: gochecknoinits
	convergeCmd.Flags().BoolVar(&convergeDryRun, "dry-run", false,
		"Compute and print the migration plan without applying it")

	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "Username of the new admin")
	createAdminCmd.Flags().StringVar(&adminFirstName, "firstname", "Admin", "First name of the new admin")
	createAdminCmd.Flags().StringVar(&adminLastName, "lastname", "User", "Last name of the new admin")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email of the new admin")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password of the new admin")

	resetPasswordCmd.Flags().StringVar(&resetUsername, "username", "", "Username of the account")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "New password")

	rootCmd.AddCommand(convergeCmd, cleanupCmd, createAdminCmd, resetPasswordCmd)
}

var errPasswordRequired = errors.New("username and password are required")

var (
	convergeDryRun bool

	adminUsername  string
	adminFirstName string
	adminLastName  string
	adminEmail     string
	adminPassword  string

	resetUsername string
	resetPassword string
)

// openStore connects to the configured database for the offline commands.
func openStore() (*security.Store, error) {
	dialector, errDSN := dsn.Dialector(&cfg)
	if errDSN != nil {
		return nil, errDSN
	}

	db, errOpen := gorm.Open(dialector, &gorm.Config{})
	if errOpen != nil {
		return nil, errOpen
	}

	return security.NewStore(db, &cfg.Auth), nil
}

var convergeCmd = &cobra.Command{
	Use:    "converge",
	Short:  "Migrate the permission graph to match the declared endpoint classes",
	PreRun: loadConfig,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, errStore := openStore()
		if errStore != nil {
			return errStore
		}

		state, errConverge := store.Converge(api.Declarations(), convergeDryRun)
		if errConverge != nil {
			return errConverge
		}

		if state.Empty() {
			log.Info().Msg("permission graph is already converged")
			return nil
		}

		log.Info().
			Bool("dry_run", convergeDryRun).
			Int("migrated_pairs", len(state.Add)).
			Int("revoked_grants", len(state.DelRolePvm)).
			Int("deleted_views", len(state.DelViews)).
			Int("deleted_permissions", len(state.DelPerms)).
			Msg("converge plan")

		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:    "cleanup",
	Short:  "Delete permissions and resources no endpoint class declares anymore",
	PreRun: loadConfig,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, errStore := openStore()
		if errStore != nil {
			return errStore
		}

		return store.Cleanup(api.Declarations())
	},
}

var createAdminCmd = &cobra.Command{
	Use:    "create-admin",
	Short:  "Create an account holding the admin role",
	PreRun: loadConfig,
	RunE: func(_ *cobra.Command, _ []string) error {
		if adminPassword == "" {
			return errPasswordRequired
		}

		store, errStore := openStore()
		if errStore != nil {
			return errStore
		}

		admin, errRole := store.AddRole(cfg.Auth.RoleAdmin)
		if errRole != nil {
			return errRole
		}

		user, errAdd := store.AddUser(
			nil,
			adminUsername,
			adminFirstName,
			adminLastName,
			adminEmail,
			models.HashPassword(adminPassword),
			[]*models.Role{admin},
		)
		if errAdd != nil {
			return errAdd
		}

		log.Info().Str("username", user.Username).Msg("admin account created")

		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:    "reset-password",
	Short:  "Reset an account's password",
	PreRun: loadConfig,
	RunE: func(_ *cobra.Command, _ []string) error {
		if resetUsername == "" || resetPassword == "" {
			return errPasswordRequired
		}

		store, errStore := openStore()
		if errStore != nil {
			return errStore
		}

		user, errFind := store.FindUser(resetUsername)
		if errFind != nil {
			return errFind
		}

		if user == nil {
			return security.ErrUserNotFound
		}

		user.Password = models.HashPassword(resetPassword)
		if errUpdate := store.UpdateUser(nil, user); errUpdate != nil {
			return errUpdate
		}

		log.Info().Str("username", user.Username).Msg("password reset")

		return nil
	},
}
