package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rpattn/versionaudit/internal/db"
)

// Config aggregates runtime configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Logger   LoggerConfig
	Report   ReportConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// ReportConfig bounds report batches.
type ReportConfig struct {
	Workers      int
	MaxDocuments int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Logger: LoggerConfig{Level: "info"},
		Report: ReportConfig{Workers: 4, MaxDocuments: 500},
	}
}

// Load reads config.yaml from configPath, then applies VERSIONAUDIT_*
// environment overrides. A .env file in the working directory is loaded
// first when present. Loaded reports whether a config file was found.
func Load(configPath string) (cfg Config, loaded bool, err error) {
	_ = godotenv.Load()

	cfg = Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix("VERSIONAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_conns",
		"server.addr",
		"server.allowed_origins",
		"logger.level",
		"report.workers",
		"report.max_documents",
	} {
		if bindErr := v.BindEnv(key); bindErr != nil {
			return Config{}, false, fmt.Errorf("bind env %s: %w", key, bindErr)
		}
	}

	if readErr := v.ReadInConfig(); readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return Config{}, false, fmt.Errorf("read config: %w", readErr)
		}
	} else {
		loaded = true
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("database.max_conns") {
		cfg.Database.MaxConns = v.GetInt32("database.max_conns")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("logger.level") {
		cfg.Logger.Level = v.GetString("logger.level")
	}
	if v.IsSet("report.workers") {
		cfg.Report.Workers = v.GetInt("report.workers")
	}
	if v.IsSet("report.max_documents") {
		cfg.Report.MaxDocuments = v.GetInt("report.max_documents")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, loaded, err
	}
	return cfg, loaded, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if c.Database.Port <= 0 {
		return fmt.Errorf("database.port must be positive, got %d", c.Database.Port)
	}
	if c.Report.Workers <= 0 {
		return fmt.Errorf("report.workers must be positive, got %d", c.Report.Workers)
	}
	if c.Report.MaxDocuments <= 0 {
		return fmt.Errorf("report.max_documents must be positive, got %d", c.Report.MaxDocuments)
	}
	return nil
}
