package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Storage backend names accepted by STORAGE_BACKEND.
const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
	BackendMemory   = "memory"
)

// Config holds all configuration for the filament tracking service
type Config struct {
	// Server Configuration
	HTTPPort string `mapstructure:"http_port"`

	// Storage Configuration
	StorageBackend string `mapstructure:"storage_backend"`
	DataDir        string `mapstructure:"data_dir"`

	// Database Configuration (postgres backend)
	DatabaseHost string `mapstructure:"database_host"`
	DatabasePort string `mapstructure:"database_port"`
	DatabaseUser string `mapstructure:"database_user"`
	DatabasePass string `mapstructure:"database_pass"`
	DatabaseName string `mapstructure:"database_name"`

	// Remote blob service (http backend)
	BlobEndpoint string `mapstructure:"blob_endpoint"`
	BlobToken    string `mapstructure:"blob_token"`

	// Access gate
	AuthEnabled bool   `mapstructure:"auth_enabled"`
	TokenFile   string `mapstructure:"token_file"`

	// Logging
	Debug bool `mapstructure:"debug"`
}

// LoadConfig loads configuration from environment variables with defaults.
// When a config file path is given it is read through viper and overrides
// the environment values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendBadger),
		DataDir:        getEnv("DATA_DIR", "./data"),

		DatabaseHost: getEnv("DB_HOST", "localhost"),
		DatabasePort: getEnv("DB_PORT", "5432"),
		DatabaseUser: getEnv("DB_USER", "postgres"),
		DatabasePass: getEnv("DB_PASS", "postgrespassword"),
		DatabaseName: getEnv("DB_NAME", "filament_tracking"),

		BlobEndpoint: getEnv("BLOB_ENDPOINT", ""),
		BlobToken:    getEnv("BLOB_TOKEN", ""),

		AuthEnabled: getEnv("AUTH_ENABLED", "false") == "true",
		TokenFile:   getEnv("TOKEN_FILE", "./data/tokens.json"),

		Debug: getEnv("DEBUG", "false") == "true",
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := viper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("decoding config file: %w", err)
		}
	}

	return cfg, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePass,
		c.DatabaseName,
	)
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendBadger:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the badger backend")
		}
	case BackendPostgres:
		if c.DatabaseHost == "" || c.DatabaseName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the postgres backend")
		}
	case BackendHTTP:
		if c.BlobEndpoint == "" {
			return fmt.Errorf("BLOB_ENDPOINT is required for the http backend")
		}
	case BackendMemory:
		// nothing to validate, data is gone on restart
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	if c.AuthEnabled && c.TokenFile == "" {
		return fmt.Errorf("TOKEN_FILE is required when AUTH_ENABLED is true")
	}

	return nil
}

// Helper function to get environment variable with default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
