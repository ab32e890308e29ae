package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Byiringiro215/lms/internal/config"
	"github.com/Byiringiro215/lms/internal/entities"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

type Database struct {
	DB     *gorm.DB
	driver config.DatabaseDriver
	log    *zap.Logger
}

// NewDatabase connects to the configured store and migrates the schema.
func NewDatabase(cfg config.Database, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DatabaseDriverSQLite, "":
		dsn, err := sqliteDSN(cfg.Path)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
	case config.DatabaseDriverPostgres:
		dialector = postgres.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(log),
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DatabaseDriverSQLite
	}

	if driver == config.DatabaseDriverSQLite {
		// SQLite has a single writer; one pooled connection serializes
		// ledger transactions and keeps an in-memory database alive.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Borrowing{},
		&entities.AuditEvent{},
		&entities.Setting{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database initialized",
		zap.String("driver", string(driver)),
		zap.String("path", cfg.Path),
	)

	return &Database{DB: db, driver: driver, log: log}, nil
}

// sqliteDSN builds a go-sqlite3 connection string with WAL, a busy timeout,
// enforced foreign keys and immediate write transactions.
func sqliteDSN(path string) (string, error) {
	if path == MemoryPath {
		return "file::memory:?_foreign_keys=1&_busy_timeout=5000", nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", nil
}

func (d *Database) Driver() config.DatabaseDriver {
	return d.driver
}

// SQLDialect is the goqu dialect name for the connected store.
func (d *Database) SQLDialect() string {
	if d.driver == config.DatabaseDriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// SQLX exposes the gorm connection pool through sqlx for hand-built queries.
func (d *Database) SQLX() (*sqlx.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, err
	}
	driverName := "sqlite3"
	if d.driver == config.DatabaseDriverPostgres {
		driverName = "pgx"
	}
	return sqlx.NewDb(sqlDB, driverName), nil
}

// Ping checks connectivity within a short deadline.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
