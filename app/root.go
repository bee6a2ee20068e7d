// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/logger"
)

var (
	cfg        config.Config
	configPath string // Directory holding main.toml
	err        error
)

var rootCmd = &cobra.Command{
	Use:   "go-secadmin",
	Short: "go-secadmin is a standalone security manager service",
	Long: `go-secadmin manages users, roles, groups and fine-grained permissions
behind a REST API, with pluggable authentication against a local database,
LDAP, OAuth/OIDC, SAML, CAS or a trusted proxy header.`,
	Args: cobra.OnlyValidArgs,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"Directory holding main.toml (defaults to ./etc/)",
	)
}

// loadConfig reads the configuration and initializes logging, shared by every
// command's PreRun.
func loadConfig(_ *cobra.Command, _ []string) {
	if cfg, err = config.ReadConfig(configPath); err != nil {
		panic(err)
	}

	if err = logger.Init(cfg.Log); err != nil {
		panic(err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
