package sqldb

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
)

const (
	jdbcPrefix       = "jdbc:"
	jdbcSQLitePrefix = "jdbc:sqlite:"
	mysqlDefaultPort = "3306"
)

// stripJDBC removes the "jdbc:" scheme prefix, if any.
func stripJDBC(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if strings.HasPrefix(strings.ToLower(trimmed), jdbcPrefix) {
		return trimmed[len(jdbcPrefix):]
	}

	return trimmed
}

// pgxConnConfig builds the pgx configuration.
//
// Accepted URL forms: "jdbc:postgresql://host:port/db?params", "postgres://..." and the
// keyword/value DSN understood by pgx. Username and password override the URL credentials
// when set. The socket timeout is enforced server side with statement_timeout.
func pgxConnConfig(cfg dbx.ConnConfig) (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(stripJDBC(cfg.URL))
	if err != nil {
		return nil, errors.Wrap(err, "invalid postgres url")
	}

	if cfg.Username != "" {
		connConfig.User = cfg.Username
	}

	if cfg.Password != "" {
		connConfig.Password = cfg.Password
	}

	if cfg.ConnectionTimeout > 0 {
		connConfig.ConnectTimeout = cfg.ConnectionTimeout
	}

	if cfg.SocketTimeout > 0 {
		if connConfig.RuntimeParams == nil {
			connConfig.RuntimeParams = map[string]string{}
		}

		connConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.SocketTimeout.Milliseconds(), 10)
	}

	return connConfig, nil
}

// mysqlConfig builds the go-sql-driver configuration.
//
// JDBC URLs ("jdbc:mysql://host:port/db?params") are decomposed into host and database;
// their query parameters are JDBC connector properties and are not forwarded. Anything
// else is parsed as a native go-sql-driver DSN.
func mysqlConfig(cfg dbx.ConnConfig) (*mysql.Config, error) {
	var (
		mysqlCfg *mysql.Config
		err      error
	)

	raw := stripJDBC(cfg.URL)
	if strings.HasPrefix(strings.ToLower(raw), "mysql://") || strings.HasPrefix(strings.ToLower(raw), "mariadb://") {
		mysqlCfg, err = mysqlConfigFromURL(raw)
	} else {
		mysqlCfg, err = mysql.ParseDSN(raw)
	}

	if err != nil {
		return nil, errors.Wrap(err, "invalid mysql url")
	}

	if cfg.Username != "" {
		mysqlCfg.User = cfg.Username
	}

	if cfg.Password != "" {
		mysqlCfg.Passwd = cfg.Password
	}

	if cfg.ConnectionTimeout > 0 {
		mysqlCfg.Timeout = cfg.ConnectionTimeout
	}

	if cfg.SocketTimeout > 0 {
		mysqlCfg.ReadTimeout = cfg.SocketTimeout
		mysqlCfg.WriteTimeout = cfg.SocketTimeout
	}

	mysqlCfg.ParseTime = true
	// RowsAffected reports matched rows, like the other drivers.
	mysqlCfg.ClientFoundRows = true

	return mysqlCfg, nil
}

func mysqlConfigFromURL(raw string) (*mysql.Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	if u.Host == "" {
		return nil, errors.Errorf("missing host in %q", raw)
	}

	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = mysqlDefaultPort
	}

	mysqlCfg := mysql.NewConfig()
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = net.JoinHostPort(host, port)
	mysqlCfg.DBName = strings.TrimPrefix(u.Path, "/")

	if u.User != nil {
		mysqlCfg.User = u.User.Username()
		if pwd, ok := u.User.Password(); ok {
			mysqlCfg.Passwd = pwd
		}
	}

	return mysqlCfg, nil
}

// sqliteDSN converts "jdbc:sqlite:<path>" to the modernc DSN and sets the busy timeout
// from the socket timeout when the DSN carries no parameters of its own.
func sqliteDSN(cfg dbx.ConnConfig) string {
	dsn := strings.TrimSpace(cfg.URL)
	if strings.HasPrefix(strings.ToLower(dsn), jdbcSQLitePrefix) {
		dsn = dsn[len(jdbcSQLitePrefix):]
	}

	if cfg.SocketTimeout > 0 && !strings.Contains(dsn, "?") {
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(%d)", dsn, cfg.SocketTimeout.Milliseconds())
	}

	return dsn
}
