package app

import (
	"github.com/spf13/cobra"

	"github.com/go-secadmin/go-secadmin/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the go-secadmin web service",
		PreRun: func(cmd *cobra.Command, args []string) {
			loadConfig(cmd, args)

			if devMode {
				cfg.DevMode = true
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d := daemon.New(&cfg)

			go func() {
				_ = d.Start()
			}()

			d.WaitShutdown()

			return nil
		},
	}
)
