package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/logger"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"gorm.io/gorm"
)

// UnlockFunc releases a lock taken by a Locker
type UnlockFunc func(ctx context.Context) error

// Locker serializes migration runs across processes
type Locker interface {
	Lock(ctx context.Context) (UnlockFunc, error)
}

// NewLocker creates the locker selected by cfg.Lock
func NewLocker(cfg config.MigrationConfig, db *gorm.DB) (Locker, error) {
	switch cfg.Lock {
	case "", "none":
		return NoopLocker{}, nil
	case "postgres":
		return NewPostgresLocker(db, cfg.LockKey), nil
	case "etcd":
		if len(cfg.EtcdEndpoints) == 0 {
			return nil, fmt.Errorf("etcd endpoints are required for the etcd migration lock")
		}
		return NewEtcdLocker(cfg.EtcdEndpoints, cfg.EtcdLockPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported migration lock: %s (supported: none, postgres, etcd)", cfg.Lock)
	}
}

// NoopLocker does not lock
type NoopLocker struct{}

// Lock implements Locker
func (NoopLocker) Lock(context.Context) (UnlockFunc, error) {
	return func(context.Context) error { return nil }, nil
}

// PostgresLocker holds a session level advisory lock on a dedicated connection
type PostgresLocker struct {
	db  *gorm.DB
	key int64
}

// NewPostgresLocker creates an advisory locker for key
func NewPostgresLocker(db *gorm.DB, key int64) *PostgresLocker {
	return &PostgresLocker{db: db, key: key}
}

// Lock blocks until the advisory lock is acquired
func (l *PostgresLocker) Lock(ctx context.Context) (UnlockFunc, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get lock connection: %w", err)
	}

	logger.Debugf("Waiting for migration advisory lock %d", l.key)
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", l.key); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to acquire advisory lock %d: %w", l.key, err)
	}

	return func(ctx context.Context) error {
		defer conn.Close()
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.key); err != nil {
			return fmt.Errorf("failed to release advisory lock %d: %w", l.key, err)
		}
		return nil
	}, nil
}

// EtcdLocker holds an etcd mutex for the duration of a run
type EtcdLocker struct {
	endpoints   []string
	prefix      string
	dialTimeout time.Duration
	ttlSeconds  int
}

// NewEtcdLocker creates a locker using the etcd cluster at endpoints
func NewEtcdLocker(endpoints []string, prefix string) *EtcdLocker {
	return &EtcdLocker{
		endpoints:   endpoints,
		prefix:      prefix,
		dialTimeout: 5 * time.Second,
		ttlSeconds:  30,
	}
}

// Lock blocks until the etcd mutex is acquired
func (l *EtcdLocker) Lock(ctx context.Context) (UnlockFunc, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   l.endpoints,
		DialTimeout: l.dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	session, err := concurrency.NewSession(client, concurrency.WithTTL(l.ttlSeconds), concurrency.WithContext(ctx))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create etcd session: %w", err)
	}

	mutex := concurrency.NewMutex(session, l.prefix)
	logger.Debugf("Waiting for migration lock %s", l.prefix)
	if err := mutex.Lock(ctx); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to acquire etcd lock %s: %w", l.prefix, err)
	}

	return func(ctx context.Context) error {
		defer client.Close()
		defer session.Close()
		if err := mutex.Unlock(ctx); err != nil {
			return fmt.Errorf("failed to release etcd lock %s: %w", l.prefix, err)
		}
		return nil
	}, nil
}
