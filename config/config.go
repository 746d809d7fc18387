package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// the HTTP server, the relational store, the market-data API, and the ETL run itself.
//
// Example YAML/ENV equivalent:
//
//	SERVER_PORT=8080
//	DB_DRIVER=sqlite3
//	SQLITE_PATH=stock_data.db
//	ALPHAVANTAGE_API_KEY=demo
//	SYMBOLS=AAPL,GOOG,MSFT
//	SCHEDULE_AT=00:30
type Config struct {
	Server       ServerConfig       // HTTP server configuration
	Database     DatabaseConfig     // Relational store settings
	AlphaVantage AlphaVantageConfig // Market-data API settings
	ETL          ETLConfig          // Symbol list and schedule
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// DatabaseConfig selects and configures the relational store.
//
// Driver is either "sqlite3" (default: a single local file at SQLitePath)
// or "postgres" (connection details under Postgres).
type DatabaseConfig struct {
	Driver     string
	SQLitePath string
	Postgres   PostgresConfig
}

// PostgresConfig defines connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string // computed DSN used by database/sql to connect
}

// AlphaVantageConfig holds settings for the Alpha Vantage time-series API.
//
// Fields:
//   - BaseURL: API host (the /query path is appended by the client).
//   - APIKey: credential token; treated as an opaque string.
//   - OutputSize: "compact" (latest 100 days) or "full" (full history).
//   - TimeoutSeconds: HTTP client timeout for one request.
type AlphaVantageConfig struct {
	BaseURL        string
	APIKey         string
	OutputSize     string
	TimeoutSeconds int
}

// ETLConfig holds the symbol list and the daily schedule time.
type ETLConfig struct {
	Symbols    []string // uppercase ticker symbols, e.g. ["AAPL", "GOOG", "MSFT"]
	ScheduleAt string   // daily run time in "HH:MM" (UTC)
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
// All services should import this package and read from AppConfig instead of
// reloading environment variables directly.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or invalid, validateConfig() will
//     terminate the app with a descriptive log message.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("DB_DRIVER", "sqlite3")
	viper.SetDefault("SQLITE_PATH", "stock_data.db")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "stockpulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co")
	viper.SetDefault("OUTPUT_SIZE", "compact")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)

	viper.SetDefault("SYMBOLS", "AAPL,GOOG,MSFT")
	viper.SetDefault("SCHEDULE_AT", "00:30")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	// Populate global config instance
	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Driver:     viper.GetString("DB_DRIVER"),
			SQLitePath: viper.GetString("SQLITE_PATH"),
			Postgres: PostgresConfig{
				Host:     viper.GetString("POSTGRES_HOST"),
				Port:     viper.GetInt("POSTGRES_PORT"),
				User:     viper.GetString("POSTGRES_USER"),
				Password: viper.GetString("POSTGRES_PASSWORD"),
				DBName:   viper.GetString("POSTGRES_DB"),
				SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			},
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL:        viper.GetString("ALPHAVANTAGE_BASE_URL"),
			APIKey:         viper.GetString("ALPHAVANTAGE_API_KEY"),
			OutputSize:     viper.GetString("OUTPUT_SIZE"),
			TimeoutSeconds: viper.GetInt("HTTP_TIMEOUT_SECONDS"),
		},
		ETL: ETLConfig{
			Symbols:    parseSymbols(viper.GetString("SYMBOLS")),
			ScheduleAt: viper.GetString("SCHEDULE_AT"),
		},
	}

	// Construct Postgres DSN (used by database/sql when DB_DRIVER=postgres)
	AppConfig.Database.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Database.Postgres.User,
		AppConfig.Database.Postgres.Password,
		AppConfig.Database.Postgres.Host,
		AppConfig.Database.Postgres.Port,
		AppConfig.Database.Postgres.DBName,
		AppConfig.Database.Postgres.SSLMode,
	)

	// Validate critical fields
	validateConfig()
}

// parseSymbols splits a comma-separated ticker list, trimming whitespace and
// uppercasing each entry. Empty entries are dropped.
func parseSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing or invalid.
//
// This avoids unexpected runtime failures due to incomplete configuration.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.AlphaVantage.APIKey == "" {
		missing = append(missing, "ALPHAVANTAGE_API_KEY")
	}
	if len(AppConfig.ETL.Symbols) == 0 {
		missing = append(missing, "SYMBOLS")
	}

	switch AppConfig.Database.Driver {
	case "sqlite3":
		if AppConfig.Database.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case "postgres":
		if AppConfig.Database.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if AppConfig.Database.Postgres.DBName == "" {
			missing = append(missing, "POSTGRES_DB")
		}
	default:
		log.Fatalf("Unsupported DB_DRIVER %q (want sqlite3 or postgres)\n", AppConfig.Database.Driver)
	}

	if s := AppConfig.AlphaVantage.OutputSize; s != "compact" && s != "full" {
		log.Fatalf("Invalid OUTPUT_SIZE %q (want compact or full)\n", s)
	}

	if len(missing) > 0 {
		log.Fatalf("Missing required environment variables: %v\n", missing)
	}
}
