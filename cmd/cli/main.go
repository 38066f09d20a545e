package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/logger"
	"github.com/toolsascode/restorm/internal/version"

	"github.com/spf13/cobra"
)

// Exit codes of the restorm command
const (
	ExitUsage       = 1
	ExitOperational = 2
)

// ExitError carries the process exit code of a failed command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

func failure(err error) error {
	return &ExitError{Code: ExitOperational, Err: err}
}

// exitCode maps err to a process exit code, flag and argument errors from cobra are usage errors
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsage
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "restorm",
		Short: "restorm - REST API and ORM service tooling",
		Long: `restorm manages the REST API service: database migrations,
the container entrypoint, version bumps and workspace cleanup.

Examples:
  restorm migrate upgrade head
  restorm migrate create "add users table"
  restorm entrypoint start
  restorm bump-version -b minor -c -t
  restorm clean --all`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newEntrypointCmd(),
		newBumpCmd(),
		newCleanCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig loads the configuration and sets up the logger, the returned function closes the log file
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, failure(fmt.Errorf("failed to load configuration: %w", err))
	}

	closeLog, err := logger.Setup(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		AppName:    cfg.App.Slug,
		FileEnable: cfg.Logger.FileEnabled,
		LogsDir:    cfg.App.LogsDir,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
	})
	if err != nil {
		return nil, nil, failure(fmt.Errorf("failed to set up logger: %w", err))
	}

	return cfg, func() { _ = closeLog() }, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
