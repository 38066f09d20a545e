package main

import (
	"errors"
	"fmt"

	"github.com/toolsascode/restorm/internal/bump"

	"github.com/spf13/cobra"
)

func newBumpCmd() *cobra.Command {
	var (
		part string
		opts bump.Options
	)

	cmd := &cobra.Command{
		Use:   "bump-version",
		Short: "Increment the semantic version of the service",
		Long: `Bump-version increments one component of the version constant in
internal/version/version.go and optionally commits, tags and pushes it.

Example:
  restorm bump-version -b=minor -c -t -p`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if part == "" {
				return usageError(errors.New("bump type is required (-b=major|minor|patch)"))
			}
			p, err := bump.ParsePart(part)
			if err != nil {
				return usageError(err)
			}
			opts.Part = p
			opts.Runner = bump.GitRunner{Out: cmd.ErrOrStderr()}

			current, next, err := bump.Bump(cmd.Context(), opts)
			if err != nil {
				return failure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bumped version %s -> %s\n", current, next)
			return nil
		},
	}

	cmd.Flags().StringVarP(&part, "bump", "b", "", "Version component to increment: major, minor or patch")
	cmd.Flags().BoolVarP(&opts.Commit, "commit", "c", false, "Commit the version file")
	cmd.Flags().BoolVarP(&opts.Tag, "tag", "t", false, "Create an annotated vX.Y.Z tag")
	cmd.Flags().BoolVarP(&opts.Push, "push", "p", false, "Push the commit and the tag")
	cmd.Flags().StringVar(&opts.File, "file", bump.DefaultFile, "File holding the Version constant")
	return cmd
}
