package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/toolsascode/shift/internal/differ"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
	"github.com/toolsascode/shift/internal/sqlgen"
)

func newDiffCmd() *cobra.Command {
	var fromPath, toPath, backend string
	var showSQL, asYAML bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the operations between two schema snapshots",
		Long: `Diff compares two snapshots without touching any database. An empty
--from diffs against an empty database.

Example:
  shift diff --to schema.yaml
  shift diff --from old.yaml --to new.yaml --sql --backend sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if toPath == "" {
				return errors.New("--to is required")
			}
			var source *model.Model
			if fromPath != "" {
				var err error
				if source, err = model.Load(fromPath); err != nil {
					return err
				}
			}
			target, err := model.Load(toPath)
			if err != nil {
				return err
			}

			ops, err := differ.New().Diff(source, target)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ops) == 0 {
				fmt.Fprintln(out, "No differences.")
				return nil
			}

			switch {
			case asYAML:
				data, err := yamlOf(operations.List(ops))
				if err != nil {
					return err
				}
				fmt.Fprint(out, data)
			case showSQL:
				gen, err := sqlgen.New(backend)
				if err != nil {
					return err
				}
				cmds, err := gen.Generate(ops, target, sqlgen.Options{Script: true})
				if err != nil {
					return err
				}
				for _, c := range cmds {
					fmt.Fprintf(out, "%s\n\n", c.Text)
				}
			default:
				for _, op := range ops {
					fmt.Fprintln(out, operations.Describe(op))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fromPath, "from", "", "Source snapshot (default: empty database)")
	cmd.Flags().StringVar(&toPath, "to", "", "Target snapshot")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "Print SQL instead of a summary")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the operations as YAML")
	cmd.Flags().StringVar(&backend, "backend", "postgresql", "SQL dialect for --sql")
	return cmd
}

func yamlOf(v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode operations: %w", err)
	}
	return string(data), nil
}
