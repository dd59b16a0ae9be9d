package dbx

import (
	"fmt"
	"strings"
)

// Driver names registered with database/sql by the drivers this module links.
const (
	DriverPgx    = "pgx"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var driverAliases = map[string]string{
	"com.mysql.cj.jdbc.driver": DriverMySQL,
	"com.mysql.jdbc.driver":    DriverMySQL,
	"mariadb":                  DriverMySQL,
	"org.postgresql.driver":    DriverPgx,
	"postgres":                 DriverPgx,
	"postgresql":               DriverPgx,
	"org.sqlite.jdbc":          DriverSQLite,
	"sqlite3":                  DriverSQLite,
}

// ResolveDriverName maps a configured driver identifier to a database/sql driver name.
// Unknown identifiers are returned trimmed but otherwise unchanged, so that a driver
// registered by the application can still be used.
func ResolveDriverName(driver string) string {
	name := strings.TrimSpace(driver)
	if alias, ok := driverAliases[strings.ToLower(name)]; ok {
		return alias
	}

	return name
}

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name string
	// IdentityColumn is the column definition of an auto generated primary key.
	IdentityColumn string
	// Returning reports whether generated keys are read with a RETURNING clause
	// instead of sql.Result.LastInsertId.
	Returning bool
	// numbered placeholders ($1, $2, ...) instead of "?".
	numbered bool
}

// DialectFor returns the dialect of the given driver identifier.
func DialectFor(driver string) Dialect {
	switch ResolveDriverName(driver) {
	case DriverPgx:
		return Dialect{Name: DriverPgx, IdentityColumn: "BIGSERIAL PRIMARY KEY", Returning: true, numbered: true}
	case DriverSQLite:
		return Dialect{Name: DriverSQLite, IdentityColumn: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	default:
		return Dialect{Name: DriverMySQL, IdentityColumn: "BIGINT AUTO_INCREMENT PRIMARY KEY"}
	}
}

// Placeholder returns the bind parameter for the 1-based position idx.
func (d Dialect) Placeholder(idx int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", idx)
	}

	return "?"
}

// Placeholders returns a comma separated list of n bind parameters starting at position from.
func (d Dialect) Placeholders(from, n int) string {
	params := make([]string, 0, n)
	for i := 0; i < n; i++ {
		params = append(params, d.Placeholder(from+i))
	}

	return strings.Join(params, ", ")
}

// InsertStatement builds an INSERT statement for the given table and columns.
// When the dialect uses RETURNING, the statement returns the returningColumn.
func (d Dialect) InsertStatement(table string, columns []string, returningColumn string) string {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		d.Placeholders(1, len(columns)))

	if d.Returning && returningColumn != "" {
		query = fmt.Sprintf("%s RETURNING %s", query, returningColumn)
	}

	return query
}
