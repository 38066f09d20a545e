package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/toolsascode/restorm/internal/entrypoint"
	"github.com/toolsascode/restorm/internal/migration"
	"github.com/toolsascode/restorm/internal/server"

	"github.com/spf13/cobra"
)

func newEntrypointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entrypoint <start|bash [cmd...]>",
		Short: "Container entrypoint: fix permissions, then start the API or a shell",
		Long: `Entrypoint fixes ownership and modes of the application, data and logs
directories, installs the sudoers rule of the configured user and then:

  start        upgrades the database to head and runs the API server
  bash [cmd]   opens an interactive shell, or runs cmd in it`,
		// everything after the command belongs to the shell
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := entrypoint.Validate(args); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), entrypoint.Usage)
				return usageError(err)
			}

			cfg, closeLog, err := loadConfig()
			if err != nil {
				return err
			}
			defer closeLog()

			d := &entrypoint.Dispatcher{
				Prepare: func(ctx context.Context) error {
					if err := entrypoint.FixPermissions(ctx, entrypoint.NewLayout(cfg)); err != nil {
						return err
					}
					if cfg.Entrypoint.User == "" {
						return nil
					}
					return entrypoint.AppendSudoers(filepath.Join(cfg.Entrypoint.SudoersDir, cfg.App.Slug), cfg.Entrypoint.User)
				},
				Start: func(ctx context.Context) error {
					app, err := server.New(ctx, cfg)
					if err != nil {
						return err
					}
					defer app.Close()

					if err := app.Upgrade(ctx, "entrypoint", migration.MethodEntrypoint); err != nil {
						return err
					}
					return app.Run(ctx)
				},
				Shell: cfg.Entrypoint.Shell,
				Out:   cmd.ErrOrStderr(),
			}

			if err := d.Dispatch(cmd.Context(), args); err != nil {
				if errors.Is(err, entrypoint.ErrUsage) {
					return usageError(err)
				}
				return failure(err)
			}
			return nil
		},
	}
}
