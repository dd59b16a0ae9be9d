package configx

import (
	"time"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
)

// Config - config interface.
type Config interface {
	GetServiceName() string
	GetVersion() string
	GetEnvironment() string
	GetLogLevel() string
	GetLoggingConfig() *LoggingConfig
	GetDatabaseConfig() *DatabaseConfig
	IsLocalEnvironment() bool
}

// BaseConfig - app config struct.
// This struct represents the base configuration for the application and is expected to be in the following YAML format:
/*
name: "exportctl"
environment: "local"
version: "1.0"
logging:
  level: "debug"
database:
  driver: "com.mysql.cj.jdbc.Driver"
  url: "jdbc:mysql://localhost:3308/exportation_panelera"
  username: "root"
  password: ""
  poolSize: 5
  connectionTimeoutMs: 5000
  socketTimeoutMs: 10000
  healthCheckIntervalMs: 30000
  validationTimeoutMs: 2000
  reconnectIntervalMs: 30000
*/
type BaseConfig struct {
	Name        string          `mapstructure:"name"`
	Environment string          `mapstructure:"environment"`
	Version     string          `mapstructure:"version"`
	Logging     *LoggingConfig  `mapstructure:"logging"`
	Database    *DatabaseConfig `mapstructure:"database"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig - the database section. Durations are expressed in milliseconds.
type DatabaseConfig struct {
	Driver                string `mapstructure:"driver"`
	URL                   string `mapstructure:"url"`
	Username              string `mapstructure:"username"`
	Password              string `mapstructure:"password"`
	PoolSize              int    `mapstructure:"poolSize"`
	ConnectionTimeoutMs   int64  `mapstructure:"connectionTimeoutMs"`
	SocketTimeoutMs       int64  `mapstructure:"socketTimeoutMs"`
	HealthCheckIntervalMs int64  `mapstructure:"healthCheckIntervalMs"`
	ValidationTimeoutMs   int64  `mapstructure:"validationTimeoutMs"`
	ReconnectIntervalMs   int64  `mapstructure:"reconnectIntervalMs"`
}

// ConnConfig converts the section into the connection settings used by the database layer.
// Missing or non-positive values fall back to the defaults of dbx.ConnConfig.
func (db *DatabaseConfig) ConnConfig() dbx.ConnConfig {
	if db == nil {
		return dbx.ConnConfig{Username: dbx.DefaultUsername}.WithDefaults()
	}

	return dbx.ConnConfig{
		Driver:              db.Driver,
		URL:                 db.URL,
		Username:            db.Username,
		Password:            db.Password,
		PoolSize:            db.PoolSize,
		ConnectionTimeout:   millis(db.ConnectionTimeoutMs),
		SocketTimeout:       millis(db.SocketTimeoutMs),
		HealthCheckInterval: millis(db.HealthCheckIntervalMs),
		ValidationTimeout:   millis(db.ValidationTimeoutMs),
		ReconnectInterval:   millis(db.ReconnectIntervalMs),
	}.WithDefaults()
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (cfg BaseConfig) GetServiceName() string {
	return cfg.Name
}

func (cfg BaseConfig) GetVersion() string {
	return cfg.Version
}

func (cfg BaseConfig) GetEnvironment() string {
	return cfg.Environment
}

func (cfg BaseConfig) IsLocalEnvironment() bool {
	return checkIfLocalEnv(cfg.Environment)
}

func (cfg BaseConfig) GetLoggingConfig() *LoggingConfig {
	return cfg.Logging
}

func (cfg BaseConfig) GetLogLevel() string {
	if cfg.Logging == nil {
		return ""
	}

	return cfg.Logging.Level
}

func (cfg BaseConfig) GetDatabaseConfig() *DatabaseConfig {
	return cfg.Database
}
