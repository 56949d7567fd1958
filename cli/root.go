// Package cli wires the command surface: argument parsing, config loading
// and the expansion of directory arguments into file lists. All transfer and
// discovery behavior lives in the pkg packages it calls into.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lonami/sf/internal"
)

type ctxKey string

const appCtxKey ctxKey = "appConfig"

func NewRootCommand() *cobra.Command {
	var appConfigPath string

	rootCmd := &cobra.Command{
		Use:   "sf",
		Short: "sf sends files in LAN quickly",
		Long: `sf moves files between two hosts on the same network with zero
configuration: start 'sf receive' on one machine and 'sf send auto FILES...'
on another. There is no authentication and no encryption; it trades both for
raw transfer speed on networks you trust.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadAppConfig(appConfigPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := internal.ConfigureLogger(cfg.LogLevel); err != nil {
				internal.Warn("invalid log level in config, defaulting to info", internal.Fields{
					internal.FieldError: err.Error(),
				})
			}

			cmd.SetContext(context.WithValue(cmd.Context(), appCtxKey, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&appConfigPath, "config", "", "Path to config file (TOML)")

	rootCmd.AddCommand(ReceiveCommand())
	rootCmd.AddCommand(SendCommand())

	return rootCmd
}

// GetAppConfig returns the config loaded by the root command's pre-run.
func GetAppConfig(cmd *cobra.Command) *internal.AppConfig {
	if v := cmd.Context().Value(appCtxKey); v != nil {
		if cfg, ok := v.(*internal.AppConfig); ok {
			return cfg
		}
	}
	return nil
}
