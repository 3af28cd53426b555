// Package db opens the relational database behind the hub server.
package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/xo/dburl"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported database types.
const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

// Config describes how to connect to the database.
type Config struct {
	// Type is postgres, mysql or sqlite. When empty it is inferred from a
	// URL-style DSN such as postgres://... or mysql://....
	Type string
	DSN  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	Logger gormlogger.Interface
}

// Open connects to the configured database.
func Open(cfg Config) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	dbType, dsn, err := resolve(cfg.Type, cfg.DSN)
	if err != nil {
		return nil, err
	}

	dialector, err := Dialector(dbType, dsn)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = gormlogger.Discard
	}
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dbType, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	switch {
	case dbType == TypeSQLite:
		// A single connection keeps in-memory databases coherent.
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return gormDB, nil
}

// resolve returns the database type and driver DSN. URL-style DSNs are
// converted to the driver's native form.
func resolve(dbType, dsn string) (string, string, error) {
	if !strings.Contains(dsn, "://") {
		if dbType == "" {
			return "", "", fmt.Errorf("database type is required for non-URL DSN")
		}
		return dbType, dsn, nil
	}

	u, err := dburl.Parse(dsn)
	if err != nil {
		return "", "", fmt.Errorf("could not parse database url: %w", err)
	}
	inferred := ""
	switch u.Driver {
	case "postgres":
		inferred = TypePostgres
	case "mysql":
		inferred = TypeMySQL
	case "sqlite3":
		inferred = TypeSQLite
	default:
		return "", "", fmt.Errorf("unsupported database url scheme %q", u.Driver)
	}
	if dbType != "" && dbType != inferred {
		return "", "", fmt.Errorf("database type %q does not match url scheme %q", dbType, u.Driver)
	}
	if inferred == TypePostgres {
		// lib/pq accepts the URL form directly.
		return inferred, dsn, nil
	}
	return inferred, u.DSN, nil
}

// Dialector returns the GORM dialector for a database type.
func Dialector(dbType, dsn string) (gorm.Dialector, error) {
	switch dbType {
	case TypePostgres:
		return postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        dsn,
		}), nil
	case TypeMySQL:
		return mysql.Open(dsn), nil
	case TypeSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %q (expected postgres, mysql or sqlite)", dbType)
	}
}

// IsUniqueViolation reports whether err is a unique-constraint violation
// from any supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
