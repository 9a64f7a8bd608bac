package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toolsascode/shift/internal/migrator"
)

func newScriptCmd(opts *globalOptions) *cobra.Command {
	var scriptOpts migrator.ScriptOptions
	var output string

	cmd := &cobra.Command{
		Use:   "script [from] [to]",
		Short: "Render units as a SQL script",
		Long: `Script prints the SQL that moves a database from one unit to another
without connecting to it. from defaults to "0" (empty database) and to
defaults to the latest unit; when from is after to the script reverts.

Example:
  shift script
  shift script create_users add_email --idempotent
  shift script add_email 0 -o revert.sql`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var from, to string
			if len(args) > 0 {
				from = args[0]
			}
			if len(args) > 1 {
				to = args[1]
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			script, err := a.Migrator.GenerateScript(cmd.Context(), from, to, scriptOpts)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				fmt.Fprint(cmd.OutOrStdout(), script)
				return nil
			}
			if err := os.WriteFile(output, []byte(script), 0o644); err != nil {
				return fmt.Errorf("failed to write script: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&scriptOpts.Idempotent, "idempotent", false, "Guard each unit on the history table (PostgreSQL only)")
	cmd.Flags().BoolVar(&scriptOpts.NoTransactions, "no-transactions", false, "Leave out BEGIN/COMMIT")
	cmd.Flags().BoolVar(&scriptOpts.ScriptOnly, "annotate", false, "Annotate each operation with a comment")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
