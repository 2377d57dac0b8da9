package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-reservations/internal/config"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Tables in creation order; foreign keys point backwards in this list.
var tableModels = []any{
	(*models.User)(nil),
	(*models.Location)(nil),
	(*models.Event)(nil),
	(*models.Reservation)(nil),
}

// Open connects to the configured database, retrying while the server comes up.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	if cfg.Driver == DriverSQLite {
		return OpenSQLite(cfg.DSN)
	}

	driverName, err := sqlDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 1
	}

	var sqldb *sql.DB
	for i := 0; i < retries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", cfg.Driver, i+1, retries))
		sqldb, err = sql.Open(driverName, cfg.DSN)
		if err == nil {
			if err = sqldb.PingContext(ctx); err == nil {
				break
			}
			sqldb.Close()
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
		if i < retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, retries, err)
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Driver))

	switch cfg.Driver {
	case DriverMySQL:
		return bun.NewDB(sqldb, mysqldialect.New()), nil
	default:
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
}

func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", nil
	case DriverMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// OpenSQLite opens an sqlite database on a single connection, which serialises
// transactions the way row locks do on the server databases.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates every table from the bun models if it does not exist yet.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range tableModels {
		q := db.NewCreateTable().Model(model).IfNotExists()
		if db.Dialect().Name() != dialect.SQLite {
			q = q.WithForeignKeys()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func DropSchema(ctx context.Context, db *bun.DB) error {
	for i := len(tableModels) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tableModels[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tableModels[i], err)
		}
	}
	return nil
}

// SupportsRowLocks reports whether SELECT ... FOR UPDATE is available.
func SupportsRowLocks(db bun.IDB) bool {
	switch db.Dialect().Name() {
	case dialect.PG, dialect.MySQL:
		return true
	default:
		return false
	}
}

// IsUniqueViolation recognises duplicate-key errors from every supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation recognises writes that reference a missing row.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1452
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
