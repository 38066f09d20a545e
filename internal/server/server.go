// Package server wires the database, the migrator, the event publisher and
// the HTTP and gRPC servers of the service together.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	grpcapi "github.com/toolsascode/restorm/internal/api/grpc"
	httpapi "github.com/toolsascode/restorm/internal/api/http"
	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/database"
	"github.com/toolsascode/restorm/internal/events"
	"github.com/toolsascode/restorm/internal/eventsfactory"
	"github.com/toolsascode/restorm/internal/logger"
	"github.com/toolsascode/restorm/internal/migration"
	"github.com/toolsascode/restorm/internal/resources/tablestat"
	"github.com/toolsascode/restorm/internal/resources/task"
	"github.com/toolsascode/restorm/migrations"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server
const ShutdownTimeout = 5 * time.Second

// Models are the ORM models checked for drift by `migrate check`
func Models() []any {
	return []any{&tablestat.TableStat{}, &task.Task{}}
}

// NewMigrator creates the migrator for the configured revisions and lock
func NewMigrator(cfg *config.Config, db *gorm.DB) (*migration.Migrator, error) {
	fsys := migrations.Versions()
	if cfg.Migration.Dir != "" {
		fsys = os.DirFS(cfg.Migration.Dir)
	}

	locker, err := migration.NewLocker(cfg.Migration, db)
	if err != nil {
		return nil, err
	}

	return migration.New(db, fsys, migration.Options{
		Locker: locker,
		Models: Models(),
	})
}

// App is the running service
type App struct {
	cfg       *config.Config
	db        *database.DB
	migrator  *migration.Migrator
	publisher events.Publisher
	router    *gin.Engine
	health    *grpcapi.Server
}

// New connects to the database and builds the service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	app, err := NewWithDB(cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// NewWithDB builds the service on an open database, the App owns db afterwards
func NewWithDB(cfg *config.Config, db *database.DB) (*App, error) {
	migrator, err := NewMigrator(cfg, db.Write)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	publisher, err := eventsfactory.NewPublisher(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	tasks := task.NewHandler(task.NewService(db, publisher), cfg.DB)
	router, err := httpapi.NewRouter(cfg, httpapi.NewHandler(cfg, db, migrator, tasks))
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	app := &App{
		cfg:       cfg,
		db:        db,
		migrator:  migrator,
		publisher: publisher,
		router:    router,
	}
	if cfg.GRPC.Enabled {
		app.health = grpcapi.NewServer(db, cfg.App.Slug, grpcapi.DefaultInterval)
	}
	return app, nil
}

// Router returns the HTTP handler of the service
func (a *App) Router() http.Handler {
	return a.router
}

// Migrator returns the migrator of the service
func (a *App) Migrator() *migration.Migrator {
	return a.migrator
}

// Upgrade applies every pending revision up to head
func (a *App) Upgrade(ctx context.Context, executedBy, method string) error {
	if a.cfg.Migration.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.Migration.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	ctx = migration.SetExecutionContext(ctx, executedBy, method, nil)
	result, err := a.migrator.Upgrade(ctx, "head")
	if err != nil {
		return fmt.Errorf("failed to upgrade database: %w", err)
	}
	if len(result.Applied) > 0 {
		logger.Success("Applied %d migration(s), current: %v", len(result.Applied), result.Current)
	} else {
		logger.Info("Database is up to date")
	}
	return nil
}

// Run listens on the configured addresses and serves until ctx is done
func (a *App) Run(ctx context.Context) error {
	addr := net.JoinHostPort(a.cfg.App.BindHost, strconv.Itoa(a.cfg.App.Port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	var grpcLis net.Listener
	if a.health != nil {
		grpcAddr := net.JoinHostPort(a.cfg.App.BindHost, strconv.Itoa(a.cfg.GRPC.Port))
		grpcLis, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			lis.Close()
			return fmt.Errorf("failed to listen on gRPC address %s: %w", grpcAddr, err)
		}
	}

	return a.Serve(ctx, lis, grpcLis)
}

// Serve serves HTTP on lis and gRPC health on grpcLis until ctx is done, then shuts down gracefully.
// grpcLis may be nil.
func (a *App) Serve(ctx context.Context, lis, grpcLis net.Listener) error {
	if a.cfg.Migration.RunOnStart {
		if err := a.Upgrade(ctx, "server", migration.MethodEntrypoint); err != nil {
			lis.Close()
			if grpcLis != nil {
				grpcLis.Close()
			}
			return err
		}
	}

	httpServer := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("Starting HTTP server on %s", lis.Addr())
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	if a.health != nil && grpcLis != nil {
		go func() {
			if err := a.health.Serve(grpcLis); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	logger.Infof("%s %s started, API available under %s", a.cfg.App.Name, a.cfg.Version, a.cfg.API.Prefix)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down servers...")
	case serveErr = <-errCh:
		logger.Errorf("Server failed: %v", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP server forced to shutdown: %v", err)
	}
	if a.health != nil {
		a.health.Stop()
	}

	logger.Info("Servers exited")
	return serveErr
}

// Close releases the publisher and the database connections
func (a *App) Close() error {
	return errors.Join(a.publisher.Close(), a.db.Close())
}
