package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolsascode/shift/internal/differ"
	"github.com/toolsascode/shift/internal/idgen"
	"github.com/toolsascode/shift/internal/migrator"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
	"github.com/toolsascode/shift/internal/registry"
)

func newAddCmd(opts *globalOptions) *cobra.Command {
	var modelPath string
	var writeGo bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a migration unit from a schema snapshot",
		Long: `Add diffs the snapshot given with --model against the model of the
latest unit in the migrations directory and writes a new unit holding
both directions.

Example:
  shift add create_users --model schema.yaml
  shift add add_email --model schema.yaml --go`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				return errors.New("--model is required")
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			target, err := model.Load(modelPath)
			if err != nil {
				return err
			}

			reg := registry.NewInMemoryRegistry()
			loader := registry.NewLoader(cfg.Migrations.Dir)
			if err := loader.LoadAll(reg); err != nil {
				return err
			}

			unit, err := migrator.Scaffold(reg, differ.New(), idgen.New(), args[0], target)
			if errors.Is(err, migrator.ErrNoChanges) {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes; nothing to add.")
				return nil
			}
			if err != nil {
				return err
			}

			path, err := registry.Save(cfg.Migrations.Dir, unit)
			if err != nil {
				return err
			}
			if writeGo {
				loader.SetWriteGoFiles(true)
				if err := loader.LoadAll(reg); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			for _, op := range unit.Up {
				destructive := ""
				if operations.IsDestructive(op) {
					destructive = "  (may lose data)"
				}
				fmt.Fprintf(out, "  %s%s\n", operations.Describe(op), destructive)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Schema snapshot (YAML) the new unit moves to")
	cmd.Flags().BoolVar(&writeGo, "go", false, "Also write a Go file that embeds and registers the unit")
	return cmd
}
