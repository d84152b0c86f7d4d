package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PoolConfig sizes the database/sql pool under a GormKV.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration // 0 keeps connections forever
	ConnMaxIdleTime time.Duration // 0 keeps idle connections forever
}

// DefaultPoolConfig suits a client/server database. A queue writes at most
// one record per running handler plus the counter, so a small pool is
// enough even with high concurrency.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// EmbeddedPoolConfig suits file-backed SQLite: one connection, never
// recycled, so writers never contend for the database lock.
func EmbeddedPoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}
}

// poolConfigFor picks the default for the dialect behind db.
func poolConfigFor(db *gorm.DB) PoolConfig {
	if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return EmbeddedPoolConfig()
	}
	return DefaultPoolConfig()
}

// PoolOption adjusts a PoolConfig.
type PoolOption interface {
	applyPool(*PoolConfig)
}

type poolOptionFunc func(*PoolConfig)

func (f poolOptionFunc) applyPool(c *PoolConfig) { f(c) }

// WithPoolConfig replaces every setting with cfg. Later options still apply.
func WithPoolConfig(cfg PoolConfig) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { *c = cfg })
}

// MaxOpenConns caps open connections.
func MaxOpenConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxOpenConns = n })
}

// MaxIdleConns caps idle connections.
func MaxIdleConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxIdleConns = n })
}

// ConnMaxLifetime recycles connections older than d.
func ConnMaxLifetime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxLifetime = d })
}

// ConnMaxIdleTime closes connections idle longer than d.
func ConnMaxIdleTime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxIdleTime = d })
}

// ConfigurePool applies opts on top of the dialect default (EmbeddedPoolConfig
// for SQLite, DefaultPoolConfig otherwise) and sets them on db's pool.
func ConfigurePool(db *gorm.DB, opts ...PoolOption) error {
	cfg := poolConfigFor(db)
	for _, opt := range opts {
		opt.applyPool(&cfg)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("jobs: failed to get underlying *sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return nil
}

// NewGormKVWithPool configures db's pool and returns a GormKV over it.
//
//	kv, err := NewGormKVWithPool(db, MaxOpenConns(4))
func NewGormKVWithPool(db *gorm.DB, opts ...PoolOption) (*GormKV, error) {
	if err := ConfigurePool(db, opts...); err != nil {
		return nil, err
	}
	return NewGormKV(db), nil
}

// OpenGormKV configures db's pool, creates the entries table if needed and
// returns a ready GormKV.
func OpenGormKV(ctx context.Context, db *gorm.DB, opts ...PoolOption) (*GormKV, error) {
	kv, err := NewGormKVWithPool(db, opts...)
	if err != nil {
		return nil, err
	}
	if err := kv.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("jobs: failed to migrate entries table: %w", err)
	}
	return kv, nil
}
