package main

import (
	"fmt"

	"github.com/toolsascode/restorm/internal/clean"

	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	var opts clean.Options

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build and test artefacts",
		Long: `Clean removes bin/, dist/, tmp/, coverage.*, *.test and .DS_Store files
below the project root. With --all it also removes the runtime state in
volumes/storage/logs and volumes/storage/data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := clean.Clean(cmd.Context(), opts)
			if err != nil {
				return failure(err)
			}

			verb := "Removed"
			if opts.DryRun {
				verb = "Would remove"
			}
			for _, path := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, path)
			}
			if len(removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", ".", "Project root")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Also remove logs and data volumes")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "List what would be removed without removing it")
	return cmd
}
