package dbx

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Default connection settings, applied key by key when a value is missing.
const (
	DefaultDriver              = "mysql"
	DefaultURL                 = "jdbc:mysql://localhost:3308/exportation_panelera"
	DefaultUsername            = "root"
	DefaultPoolSize            = 5
	DefaultConnectionTimeout   = 5 * time.Second
	DefaultSocketTimeout       = 10 * time.Second
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultValidationTimeout   = 2 * time.Second
	DefaultReconnectInterval   = 30 * time.Second
)

// ConnConfig represents the configuration required for the managed database connection.
//
// Fields:
//   - Driver: driver identifier. Go driver names ("pgx", "mysql", "sqlite") and the
//     JDBC class names used by older deployments are both accepted, see ResolveDriverName.
//   - URL: connection string. JDBC style URLs ("jdbc:mysql://host:3306/db") are converted
//     to the driver DSN when the connection is opened.
//   - Username, Password: credentials, applied on top of the URL.
//   - PoolSize: accepted for compatibility. The manager always holds a single connection.
//   - ConnectionTimeout: bound for establishing the connection and the post-connect validation.
//   - SocketTimeout: read/write (or statement) timeout passed to the driver.
//   - HealthCheckInterval: minimum time between two validation probes of a held connection.
//   - ValidationTimeout: bound for one validation probe.
//   - ReconnectInterval: cadence of the background connection checker.
type ConnConfig struct {
	Driver              string
	URL                 string
	Username            string
	Password            string
	PoolSize            int
	ConnectionTimeout   time.Duration
	SocketTimeout       time.Duration
	HealthCheckInterval time.Duration
	ValidationTimeout   time.Duration
	ReconnectInterval   time.Duration
}

// WithDefaults returns a copy of the configuration where every missing value is replaced
// by its default. Credentials are left untouched.
func (c ConnConfig) WithDefaults() ConnConfig {
	if strings.TrimSpace(c.Driver) == "" {
		c.Driver = DefaultDriver
	}

	if strings.TrimSpace(c.URL) == "" {
		c.URL = DefaultURL
	}

	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}

	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}

	if c.SocketTimeout <= 0 {
		c.SocketTimeout = DefaultSocketTimeout
	}

	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = DefaultHealthCheckInterval
	}

	if c.ValidationTimeout <= 0 {
		c.ValidationTimeout = DefaultValidationTimeout
	}

	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}

	return c
}

// Validate reports whether the configuration can be used to open a connection.
func (c ConnConfig) Validate() error {
	if strings.TrimSpace(c.Driver) == "" {
		return errors.WithMessage(ErrInvalidConfig, "driver is EMPTY")
	}

	if strings.TrimSpace(c.URL) == "" {
		return errors.WithMessage(ErrInvalidConfig, "url is EMPTY")
	}

	return nil
}

// Summary renders the configuration for diagnostics, with the password masked.
func (c ConnConfig) Summary() string {
	return fmt.Sprintf(
		"Database Configuration:\n"+
			"  Driver: %s\n"+
			"  URL: %s\n"+
			"  Username: %s\n"+
			"  Password: %s\n"+
			"  Pool Size: %d\n"+
			"  Connection Timeout: %d ms\n"+
			"  Socket Timeout: %d ms",
		c.Driver,
		c.URL,
		c.Username,
		strings.Repeat("*", len(c.Password)),
		c.PoolSize,
		c.ConnectionTimeout.Milliseconds(),
		c.SocketTimeout.Milliseconds(),
	)
}
