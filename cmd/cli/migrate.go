package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/database"
	"github.com/toolsascode/restorm/internal/migration"
	"github.com/toolsascode/restorm/internal/server"
	"github.com/toolsascode/restorm/migrations"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <command> [target]",
		Short: "Manage database schema revisions",
		Long: `Migrate applies, reverts and inspects the schema revisions of the service.

Commands:
  create <message>     create a new revision script pair
  upgrade [target]     apply revisions up to target (default head)
  downgrade [target]   revert revisions down to target (default -1)
  history              list revisions from heads to bases
  current              show the applied head revisions
  check                fail when the database is not at head or drifts from the models
  heads                show the head revisions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			if len(args) == 0 {
				return usageError(errors.New("missing migrate command"))
			}
			return usageError(fmt.Errorf("unknown migrate command %q", args[0]))
		},
	}

	cmd.AddCommand(
		newMigrateCreateCmd(),
		newMigrateUpgradeCmd(),
		newMigrateDowngradeCmd(),
		newMigrateHistoryCmd(),
		newMigrateCurrentCmd(),
		newMigrateCheckCmd(),
		newMigrateHeadsCmd(),
	)
	return cmd
}

// withMigrator loads the configuration, connects to the database and runs fn with a migrator
func withMigrator(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, m *migration.Migrator) error) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return failure(err)
	}
	defer db.Close()

	m, err := server.NewMigrator(cfg, db.Write)
	if err != nil {
		return failure(err)
	}

	if cfg.Migration.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Migration.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	ctx = migration.SetExecutionContext(ctx, executedBy(), migration.MethodCLI, nil)

	if err := fn(ctx, cfg, m); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		if isTargetError(err) {
			return usageError(err)
		}
		return failure(err)
	}
	return nil
}

func isTargetError(err error) bool {
	return errors.Is(err, migration.ErrInvalidTarget) ||
		errors.Is(err, migration.ErrMultipleHeads) ||
		errors.Is(err, migration.ErrNotApplied) ||
		errors.Is(err, migration.ErrUnknownRevision) ||
		errors.Is(err, migration.ErrAmbiguousRevision)
}

// executedBy names the operator recorded in the migration history
func executedBy() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "cli"
}

func newMigrateCreateCmd() *cobra.Command {
	var opts migration.CreateOptions

	cmd := &cobra.Command{
		Use:   "create <message>",
		Short: "Create a new revision script pair",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := loadConfig()
			if err != nil {
				return err
			}
			defer closeLog()

			dir := cfg.Migration.Dir
			if dir == "" {
				dir = migrations.Dir
			}

			var revisions []*migration.Revision
			if _, err := os.Stat(dir); err == nil {
				revisions, err = migration.LoadRevisions(os.DirFS(dir))
				if err != nil {
					return failure(err)
				}
			} else if !errors.Is(err, fs.ErrNotExist) {
				return failure(err)
			}
			graph, err := migration.NewGraph(revisions)
			if err != nil {
				return failure(err)
			}

			opts.Message = strings.Join(args, " ")
			path, err := migration.Create(dir, graph, opts)
			if err != nil {
				if errors.Is(err, migration.ErrMultipleHeads) {
					return usageError(err)
				}
				return failure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created revision %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Head, "head", "", "Parent revision, required when there are several heads")
	cmd.Flags().StringVar(&opts.BranchLabel, "branch-label", "", "Branch label of the new revision")
	cmd.Flags().StringVar(&opts.Revision, "rev-id", "", "Explicit revision id instead of a random one")
	return cmd
}

func newMigrateUpgradeCmd() *cobra.Command {
	var sqlOnly bool

	cmd := &cobra.Command{
		Use:   "upgrade [target]",
		Short: "Apply revisions up to target: head, heads, a revision id or +N",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "head"
			if len(args) > 0 {
				target = args[0]
			}
			return withMigrator(cmd.Context(), func(ctx context.Context, _ *config.Config, m *migration.Migrator) error {
				if sqlOnly {
					m = m.DryRun(cmd.OutOrStdout())
				}
				result, err := m.Upgrade(ctx, target)
				if err != nil {
					return err
				}
				if !sqlOnly {
					printResult(cmd.OutOrStdout(), result)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&sqlOnly, "sql", false, "Print the SQL instead of executing it")
	return cmd
}

func newMigrateDowngradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "downgrade [target] [--sql]",
		Short: "Revert revisions down to target: -N, base or a revision id",
		// targets like "-1" are not flags
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, sqlOnly := "", false
			for _, arg := range args {
				switch arg {
				case "-h", "--help":
					return cmd.Help()
				case "--sql":
					sqlOnly = true
				default:
					if target != "" {
						return usageError(fmt.Errorf("unexpected argument %q", arg))
					}
					target = arg
				}
			}
			if target == "" {
				target = "-1"
			}

			return withMigrator(cmd.Context(), func(ctx context.Context, _ *config.Config, m *migration.Migrator) error {
				if sqlOnly {
					m = m.DryRun(cmd.OutOrStdout())
				}
				result, err := m.Downgrade(ctx, target)
				if err != nil {
					return err
				}
				if !sqlOnly {
					printResult(cmd.OutOrStdout(), result)
				}
				return nil
			})
		},
	}
}

func newMigrateHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List revisions from heads to bases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, _ *config.Config, m *migration.Migrator) error {
				entries, err := m.History(ctx)
				if err != nil {
					return err
				}
				for _, entry := range entries {
					fmt.Fprintln(cmd.OutOrStdout(), entry.String())
				}
				return nil
			})
		},
	}
}

func newMigrateCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the applied head revisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, _ *config.Config, m *migration.Migrator) error {
				current, err := m.Current(ctx)
				if err != nil {
					return err
				}
				heads := m.Heads()
				for _, id := range current {
					if slices.Contains(heads, id) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s (head)\n", id)
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), id)
					}
				}
				return nil
			})
		},
	}
}

func newMigrateCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail when the database is not at head or drifts from the models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, _ *config.Config, m *migration.Migrator) error {
				if _, err := m.Check(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No new upgrade operations detected.")
				return nil
			})
		},
	}
}

func newMigrateHeadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heads",
		Short: "Show the head revisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(_ context.Context, _ *config.Config, m *migration.Migrator) error {
				for _, id := range m.Heads() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (head)\n", id)
				}
				return nil
			})
		},
	}
}

func printResult(w io.Writer, result *migration.Result) {
	for _, id := range result.Applied {
		fmt.Fprintf(w, "Applied %s\n", id)
	}
	for _, id := range result.Reverted {
		fmt.Fprintf(w, "Reverted %s\n", id)
	}
	if len(result.Applied) == 0 && len(result.Reverted) == 0 {
		fmt.Fprintln(w, "Nothing to do")
	}
	current := "<base>"
	if len(result.Current) > 0 {
		current = strings.Join(result.Current, ", ")
	}
	fmt.Fprintf(w, "Current: %s\n", current)
}
