package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrUsage is returned for an unknown or missing command
var ErrUsage = errors.New("invalid entrypoint command")

// Usage describes the accepted commands
const Usage = `Usage: restorm entrypoint <command>

Commands:
  start         upgrade the database to head, then run the API server
  bash [cmd]    open an interactive shell, or run cmd in it
`

// RunFunc runs a program with the given arguments attached to the terminal
type RunFunc func(ctx context.Context, name string, args ...string) error

// Dispatcher routes the container command
type Dispatcher struct {
	// Prepare runs once the command is known to be valid, before it starts
	Prepare func(ctx context.Context) error
	// Start upgrades the schema and serves until ctx is done
	Start func(ctx context.Context) error
	Shell string
	Run   RunFunc
	Out   io.Writer
}

// Validate checks args names a known command with acceptable arguments
func Validate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	switch args[0] {
	case "start":
		if len(args) > 1 {
			return fmt.Errorf("%w: start takes no arguments", ErrUsage)
		}
	case "bash":
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return nil
}

// Dispatch runs the command named by args[0]
func (d *Dispatcher) Dispatch(ctx context.Context, args []string) error {
	if err := Validate(args); err != nil {
		if d.Out != nil {
			fmt.Fprint(d.Out, Usage)
		}
		return err
	}

	if d.Prepare != nil {
		if err := d.Prepare(ctx); err != nil {
			return err
		}
	}

	if args[0] == "start" {
		return d.Start(ctx)
	}

	shell := d.Shell
	if shell == "" {
		shell = "/bin/bash"
	}
	run := d.Run
	if run == nil {
		run = RunAttached
	}
	if len(args) == 1 {
		return run(ctx, shell)
	}
	return run(ctx, shell, "-c", strings.Join(args[1:], " "))
}

// RunAttached runs name with the process stdin, stdout and stderr
func RunAttached(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
