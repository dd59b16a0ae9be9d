package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
)

// Opener opens the *sql.DB the manager reserves its single connection from.
// It must not block on network I/O: the manager bounds the first connection itself.
type Opener func(ctx context.Context, cfg dbx.ConnConfig) (*sql.DB, error)

// OpenDB is the default Opener.
//
// The configured driver is resolved through dbx.ResolveDriverName and must be registered
// with database/sql, otherwise an error matching dbx.ErrDriverMissing is returned.
// pgx and mysql are opened through their native configuration types, so credentials and
// timeouts are applied without string concatenation. Any other registered driver receives
// the URL unchanged.
func OpenDB(_ context.Context, cfg dbx.ConnConfig) (*sql.DB, error) {
	driver := dbx.ResolveDriverName(cfg.Driver)
	if !slices.Contains(sql.Drivers(), driver) {
		return nil, fmt.Errorf("%w: %q (resolved from %q)", dbx.ErrDriverMissing, driver, cfg.Driver)
	}

	switch driver {
	case dbx.DriverPgx:
		connConfig, err := pgxConnConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", dbx.ErrConnectFailure, err)
		}

		return stdlib.OpenDB(*connConfig), nil
	case dbx.DriverMySQL:
		mysqlConfig, err := mysqlConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", dbx.ErrConnectFailure, err)
		}

		connector, err := mysql.NewConnector(mysqlConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", dbx.ErrConnectFailure, err)
		}

		return sql.OpenDB(connector), nil
	case dbx.DriverSQLite:
		return openWithDSN(driver, sqliteDSN(cfg))
	default:
		return openWithDSN(driver, cfg.URL)
	}
}

func openWithDSN(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dbx.ErrConnectFailure, err)
	}

	return db, nil
}
