package shipment

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/logx"
)

const (
	tableExportations = "exportations"
	tableDeliveries   = "deliveries"
	tableUsers        = "users"

	defaultAdminUser = "admin"
	// Placeholder credential seeded on an empty users table. It is expected to be
	// replaced before the ledger is shared.
	defaultAdminPasswordHash = "admin123_hashed"
)

// SchemaStatements returns the DDL of the ledger tables for the dialect.
//
// Dates are kept as ISO-8601 text so the three supported databases round-trip them
// the same way.
func SchemaStatements(d dbx.Dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	exportation_id VARCHAR(50) NOT NULL UNIQUE,
	product_type VARCHAR(100) NOT NULL,
	amount DECIMAL(10,2) NOT NULL,
	destination VARCHAR(100) NOT NULL,
	exportation_date VARCHAR(10),
	unit_price DECIMAL(10,2),
	currency VARCHAR(3) DEFAULT 'USD',
	has_delivery BOOLEAN DEFAULT FALSE,
	status VARCHAR(50) DEFAULT 'Pending',
	notes TEXT,
	customer_name VARCHAR(100),
	customer_email VARCHAR(100),
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, tableExportations, d.IdentityColumn),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	exportation_id VARCHAR(50) NOT NULL,
	carrier_name VARCHAR(100),
	tracking_number VARCHAR(100),
	delivery_address TEXT,
	delivery_date VARCHAR(10),
	status VARCHAR(50) DEFAULT 'Pending',
	notes TEXT,
	shipping_method VARCHAR(50),
	shipping_cost DECIMAL(10,2),
	shipping_currency VARCHAR(3) DEFAULT 'USD',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, tableDeliveries, d.IdentityColumn),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	username VARCHAR(50) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	is_active BOOLEAN DEFAULT TRUE,
	last_login TIMESTAMP NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, tableUsers, d.IdentityColumn),
	}
}

// createSchema creates the tables and seeds the default admin user when the users
// table is empty. It is idempotent.
func createSchema(ctx context.Context, q dbx.Querier, d dbx.Dialect) error {
	for _, stmt := range SchemaStatements(d) {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "error creating ledger schema")
		}
	}

	var users int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableUsers).Scan(&users); err != nil {
		return errors.Wrap(err, "error counting users")
	}

	if users > 0 {
		return nil
	}

	insert := fmt.Sprintf("INSERT INTO %s (username, password_hash, is_active) VALUES (%s)",
		tableUsers, d.Placeholders(1, 3))
	if _, err := q.ExecContext(ctx, insert, defaultAdminUser, defaultAdminPasswordHash, true); err != nil {
		return errors.Wrap(err, "error seeding default user")
	}

	logx.GetLogger().LogInfo(ctx, "Default admin user created")

	return nil
}

// SchemaInitializer returns a hook for sqldb.WithAfterConnect that makes sure the
// schema exists every time the manager establishes a connection.
//
// The hook runs while the manager is connecting, so it works on the connection it is
// given and never goes back through the manager.
func SchemaInitializer(d dbx.Dialect) func(ctx context.Context, conn *sql.Conn) error {
	return func(ctx context.Context, conn *sql.Conn) error {
		return createSchema(ctx, conn, d)
	}
}
