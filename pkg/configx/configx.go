package configx

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
)

const defaultConfigBaseName = "property"

// LoadConfigForEnv reads property.yaml (or property-<env>.yaml) from the working directory.
func LoadConfigForEnv(config Config) error {
	return ReadConfiguration(getEnvPropertyFileName(defaultConfigBaseName), config)
}

// LoadConfigFromPathForEnv - search the property-<ENV> properties in the given search path (for ex. "./config" )
func LoadConfigFromPathForEnv(searchPath string, config Config) error {
	if searchPath == "" {
		return LoadConfigForEnv(config)
	}

	searchPath = strings.TrimSuffix(searchPath, "/")

	return ReadConfiguration(getEnvPropertyFileName(fmt.Sprintf("%s/%s", searchPath, defaultConfigBaseName)), config)
}

// ReadConfiguration reads the configuration from the file and environment variables.
//
// A missing file is not an error: every key keeps its default and can still be
// overridden from the environment (DATABASE_URL, LOGGING_LEVEL, ...).
func ReadConfiguration(configFilePath string, config Config) error {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configFilePath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Replace dots in keys with underscores in environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err == nil {
		log.Printf("Reading configuration from config file: %s. Environment variables OVERRIDE file values.", configFilePath)
	} else {
		log.Printf("No configuration file found at %s, using defaults and environment variables.", configFilePath)
	}

	if err := v.Unmarshal(config); err != nil {
		return errors.Wrap(err, "unable to decode into config struct")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "exportctl")
	v.SetDefault("environment", "local")
	v.SetDefault("version", "dev")
	v.SetDefault("logging.level", "info")

	v.SetDefault("database.driver", dbx.DefaultDriver)
	v.SetDefault("database.url", dbx.DefaultURL)
	v.SetDefault("database.username", dbx.DefaultUsername)
	v.SetDefault("database.password", "")
	v.SetDefault("database.poolSize", dbx.DefaultPoolSize)
	v.SetDefault("database.connectionTimeoutMs", dbx.DefaultConnectionTimeout.Milliseconds())
	v.SetDefault("database.socketTimeoutMs", dbx.DefaultSocketTimeout.Milliseconds())
	v.SetDefault("database.healthCheckIntervalMs", dbx.DefaultHealthCheckInterval.Milliseconds())
	v.SetDefault("database.validationTimeoutMs", dbx.DefaultValidationTimeout.Milliseconds())
	v.SetDefault("database.reconnectIntervalMs", dbx.DefaultReconnectInterval.Milliseconds())
}

func getEnvPropertyFileName(baseFileName string) string {
	env := strings.ToUpper(os.Getenv("ENVIRONMENT"))
	if !checkIfLocalEnv(env) {
		return fmt.Sprintf("%s-%s.yaml", baseFileName, strings.ToLower(env))
	}

	return fmt.Sprintf("%s.yaml", baseFileName)
}

func checkIfLocalEnv(env string) bool {
	switch strings.ToUpper(env) {
	case "DEV", "STAGE", "PROD":
		return false
	default:
		return true
	}
}
