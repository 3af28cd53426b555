package db

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"gorm.io/gorm"
)

// SchemaLocker serializes schema changes between server replicas that start
// at the same time.
type SchemaLocker interface {
	// WithLock runs fn while holding the schema lock.
	WithLock(ctx context.Context, fn func() error) error
}

// LockOptions tune the table-based lock used outside PostgreSQL.
type LockOptions struct {
	Name          string
	Attempts      int
	RetryInterval time.Duration
	// StaleAfter releases a lock left behind by a crashed holder.
	StaleAfter time.Duration
}

func (o LockOptions) withDefaults() LockOptions {
	if o.Name == "" {
		o.Name = "hub-server-migration"
	}
	if o.Attempts <= 0 {
		o.Attempts = 30
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = time.Second
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 5 * time.Minute
	}
	return o
}

// NewSchemaLocker picks a PostgreSQL advisory lock or, for other dialects, a
// row in the schema_lock table. A nil db yields a lock that just runs fn.
func NewSchemaLocker(gormDB *gorm.DB, opts LockOptions) (SchemaLocker, error) {
	if gormDB == nil {
		return passthroughLock{}, nil
	}
	opts = opts.withDefaults()
	if gormDB.Dialector.Name() == TypePostgres {
		return &advisoryLock{
			db:  gormDB,
			key: int64(crc32.ChecksumIEEE([]byte(opts.Name))),
		}, nil
	}
	// The table must exist before two replicas race for the first row.
	if err := gormDB.AutoMigrate(&schemaLockRow{}); err != nil {
		return nil, fmt.Errorf("create schema lock table: %w", err)
	}
	return &rowLock{db: gormDB, opts: opts}, nil
}

type passthroughLock struct{}

func (passthroughLock) WithLock(_ context.Context, fn func() error) error { return fn() }

type advisoryLock struct {
	db  *gorm.DB
	key int64
}

func (l *advisoryLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.db.WithContext(ctx).Exec("SELECT pg_advisory_lock(?)", l.key).Error; err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	defer l.db.Exec("SELECT pg_advisory_unlock(?)", l.key)
	return fn()
}

type schemaLockRow struct {
	Name     string    `gorm:"primaryKey;column:name;type:varchar(64)"`
	Holder   string    `gorm:"column:holder"`
	LockedAt time.Time `gorm:"column:locked_at"`
}

func (schemaLockRow) TableName() string { return "schema_lock" }

type rowLock struct {
	db   *gorm.DB
	opts LockOptions
}

func (l *rowLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.db.Where("name = ?", l.opts.Name).Delete(&schemaLockRow{})
	return fn()
}

func (l *rowLock) acquire(ctx context.Context) error {
	holder, _ := os.Hostname()
	if holder == "" {
		holder = "unknown"
	}

	var lastErr error
	for attempt := 1; attempt <= l.opts.Attempts; attempt++ {
		tx := l.db.WithContext(ctx)
		tx.Where("name = ? AND locked_at < ?", l.opts.Name, time.Now().Add(-l.opts.StaleAfter)).
			Delete(&schemaLockRow{})

		err := tx.Create(&schemaLockRow{Name: l.opts.Name, Holder: holder, LockedAt: time.Now()}).Error
		if err == nil {
			return nil
		}
		if !IsUniqueViolation(err) {
			return fmt.Errorf("acquire schema lock: %w", err)
		}
		lastErr = err
		if attempt == l.opts.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.opts.RetryInterval):
		}
	}
	return fmt.Errorf("schema lock %q still held after %d attempts: %w", l.opts.Name, l.opts.Attempts, lastErr)
}
