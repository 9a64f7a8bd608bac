package main

import (
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/toolsascode/shift/internal/executor"
)

func newApplyCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [target]",
		Short: "Migrate the database to a unit",
		Long: `Apply moves the configured database to target, given as a full unit
ID or a unit name. Without a target every pending unit is applied; "0"
reverts everything.

Example:
  shift apply
  shift apply create_users
  shift apply 0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := executor.SetExecutionContext(cmd.Context(), currentUser(), "cli", nil)
			result, err := a.Migrator.Migrate(ctx, target)

			out := cmd.OutOrStdout()
			if result != nil {
				for _, id := range result.Reverted {
					fmt.Fprintf(out, "Reverted %s\n", id)
				}
				for _, id := range result.Applied {
					fmt.Fprintf(out, "Applied  %s\n", id)
				}
				if err == nil && len(result.Applied) == 0 && len(result.Reverted) == 0 {
					fmt.Fprintln(out, "Database is up to date.")
				}
			}
			return err
		},
	}
	return cmd
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "system"
}
