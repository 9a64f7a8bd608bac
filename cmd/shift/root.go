package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toolsascode/shift/internal/app"
	"github.com/toolsascode/shift/internal/config"
	"github.com/toolsascode/shift/internal/registry"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type globalOptions struct {
	configPath    string
	migrationsDir string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "shift",
		Short: "shift - schema migrations from model snapshots",
		Long: `shift diffs schema snapshots into migration units, applies and reverts
them against PostgreSQL or SQLite, and renders them as SQL scripts.

Configuration comes from an optional YAML file (--config or SHIFT_CONFIG)
and SHIFT_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("SHIFT_CONFIG"), "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&opts.migrationsDir, "dir", "d", "", "Migrations directory (overrides config)")

	rootCmd.AddCommand(
		newAddCmd(opts),
		newDiffCmd(),
		newApplyCmd(opts),
		newScriptCmd(opts),
		newListCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "shift version %s\n", version)
			},
		},
	)
	return rootCmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.migrationsDir != "" {
		cfg.Migrations.Dir = o.migrationsDir
	}
	return cfg, nil
}

// openApp connects to the configured database with a private registry
func (o *globalOptions) openApp() (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cfg, app.Options{Registry: registry.NewInMemoryRegistry()})
}
