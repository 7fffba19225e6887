package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"exportal/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	var logLevelFlag string
	var configPath string

	cmd := &cobra.Command{
		Use:   "exportal",
		Short: "Exportal serves the trading company website backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevelFlag, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newAdminUserCmd(cfg, &jsonOutput),
		newGCCmd(cfg, &jsonOutput),
		newSeedCmd(cfg, &jsonOutput),
		newVersionCmd(&jsonOutput),
	)

	return cmd
}

func newVersionCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the exportal version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if *jsonOutput {
				return writeJSON(map[string]string{"version": version})
			}
			return writePlain("exportal %s\n", version)
		},
	}
}
