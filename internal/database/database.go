package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DB holds the write (primary) and read (replica) connections
type DB struct {
	Write   *gorm.DB
	Read    *gorm.DB
	dialect string
}

// Open connects to the write and read databases described by cfg.
// Each connection is retried MaxTryConnect times, waiting WaitSecondsTryConnect between attempts.
func Open(ctx context.Context, cfg config.DBConfig) (*DB, error) {
	write, err := connectWithRetry(ctx, cfg, cfg.DSNURL, "write")
	if err != nil {
		return nil, err
	}

	read := write
	if cfg.ReadDSNURL != "" && cfg.ReadDSNURL != cfg.DSNURL {
		read, err = connectWithRetry(ctx, cfg, cfg.ReadDSNURL, "read")
		if err != nil {
			closeGorm(write)
			return nil, err
		}
	}

	return &DB{Write: write, Read: read, dialect: cfg.Dialect}, nil
}

// New wraps an already opened gorm connection, used for both reads and writes
func New(db *gorm.DB) *DB {
	return &DB{Write: db, Read: db, dialect: db.Dialector.Name()}
}

// Dialect returns the database dialect name
func (d *DB) Dialect() string {
	return d.dialect
}

// PingWrite checks the write connection
func (d *DB) PingWrite(ctx context.Context) error {
	return ping(ctx, d.Write)
}

// PingRead checks the read connection
func (d *DB) PingRead(ctx context.Context) error {
	return ping(ctx, d.Read)
}

// Ping checks both connections
func (d *DB) Ping(ctx context.Context) error {
	if err := d.PingWrite(ctx); err != nil {
		return fmt.Errorf("write database: %w", err)
	}
	if err := d.PingRead(ctx); err != nil {
		return fmt.Errorf("read database: %w", err)
	}
	return nil
}

// Close closes both connections
func (d *DB) Close() error {
	var firstErr error
	if d.Read != nil && d.Read != d.Write {
		firstErr = closeGorm(d.Read)
	}
	if d.Write != nil {
		if err := closeGorm(d.Write); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenGorm opens a single gorm connection without retrying
func OpenGorm(cfg config.DBConfig, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", cfg.Dialect)
	}

	level := gormlogger.Warn
	if cfg.EchoSQL {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger: gormlogger.New(logger.L(), gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	configureConnectionPool(sqlDB, cfg)

	return db, nil
}

func connectWithRetry(ctx context.Context, cfg config.DBConfig, dsn, name string) (*gorm.DB, error) {
	attempts := cfg.MaxTryConnect
	if attempts < 1 {
		attempts = 1
	}
	wait := time.Duration(cfg.WaitSecondsTryConnect) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := OpenGorm(cfg, dsn)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, poolTimeout(cfg))
			err = ping(pingCtx, db)
			cancel()
			if err == nil {
				logger.Infof("Connected to %s database (%s)", name, cfg.Dialect)
				return db, nil
			}
			closeGorm(db)
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		logger.Warnf("Unable to connect to %s database (attempt %d/%d): %v, retrying in %s", name, attempt, attempts, err, wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("failed to connect to %s database after %d attempts: %w", name, attempts, lastErr)
}

// configureConnectionPool applies the pool settings of cfg
func configureConnectionPool(db *sql.DB, cfg config.DBConfig) {
	// An in-memory sqlite database lives inside a single connection
	if cfg.Dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		return
	}

	// Idle connections kept ready for reuse
	if cfg.PoolSize > 0 {
		db.SetMaxIdleConns(cfg.PoolSize)
	}

	// Pool size plus the allowed overflow
	if maxOpen := cfg.PoolSize + cfg.MaxOverflow; maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}

	// Recycle connections after PoolRecycle seconds, -1 disables it
	if cfg.PoolRecycle > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.PoolRecycle) * time.Second)
	}
}

func poolTimeout(cfg config.DBConfig) time.Duration {
	if cfg.PoolTimeout > 0 {
		return time.Duration(cfg.PoolTimeout) * time.Second
	}
	return 30 * time.Second
}

func ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database is not connected")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func closeGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
