// Package config reads the configuration of the payroll engine from the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/paycycle/backend/pkg/tables"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig
	Log      LogConfig
	Payroll  PayrollConfig
	Alerts   AlertConfig
	Metrics  MetricsConfig
	Tables   tables.Config
}

// DatabaseConfig selects the database. PostgreSQL is used when a host is
// set, SQLite at DSN otherwise.
type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type LogConfig struct {
	Format string
	Level  zerolog.Level
}

type PayrollConfig struct {
	Workers int
	Actor   string
}

type AlertConfig struct {
	Silence []string // Glob patterns of alert kinds that are not logged
}

type MetricsConfig struct {
	Pushgateway string
}

// Postgres reports whether the database is a PostgreSQL server.
func (d DatabaseConfig) Postgres() bool {
	return d.Host != ""
}

// PostgresDSN returns the connection string for PostgreSQL.
func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Load reads the configuration from the environment. Variables from a .env
// file in the working directory are loaded first if the file exists, they
// never override variables that are already set.
func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	config := &Config{}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		DSN:      getEnv("DB_DSN", "data/payroll.db"),
		Host:     getEnv("DB_HOST", ""),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	config.Log = LogConfig{
		Format: getEnv("LOG_FORMAT", "json"),
		Level:  level,
	}

	workers, err := strconv.Atoi(getEnv("PAYROLL_WORKERS", "4"))
	if err != nil || workers < 1 {
		return nil, fmt.Errorf("invalid PAYROLL_WORKERS: must be a positive number, is '%s'", os.Getenv("PAYROLL_WORKERS"))
	}

	config.Payroll = PayrollConfig{
		Workers: workers,
		Actor:   getEnv("PAYROLL_ACTOR", "system"),
	}

	config.Alerts = AlertConfig{Silence: getEnvSlice("ALERT_SILENCE")}
	config.Metrics = MetricsConfig{Pushgateway: getEnv("METRICS_PUSHGATEWAY", "")}

	config.Tables, err = loadTables()
	if err != nil {
		return nil, err
	}

	if err := config.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadTables overrides the default statutory values with the ones set in
// the environment.
func loadTables() (tables.Config, error) {
	cfg := tables.DefaultConfig()

	decimals := []struct {
		name   string
		target *decimal.Decimal
	}{
		{"PAYROLL_PENSION_RATE", &cfg.PensionRate},
		{"PAYROLL_PENSION_CAP", &cfg.PensionCap},
		{"PAYROLL_RISK_RATE", &cfg.RiskRate},
		{"PAYROLL_RISK_CAP", &cfg.RiskCap},
		{"PAYROLL_EMPLOYEE_PENSION_RATE", &cfg.EmployeePensionRate},
		{"PAYROLL_EMPLOYEE_PENSION_CAP", &cfg.EmployeePensionCap},
		{"PAYROLL_FAMILY_ALLOWANCE_EXTRA", &cfg.FamilyAllowanceExtra},
	}

	for _, d := range decimals {
		value, ok := os.LookupEnv(d.name)
		if !ok {
			continue
		}

		parsed, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return tables.Config{}, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.target = parsed
	}

	if value, ok := os.LookupEnv("PAYROLL_TAX_BRACKETS"); ok {
		brackets, err := ParseBrackets(value)
		if err != nil {
			return tables.Config{}, fmt.Errorf("invalid PAYROLL_TAX_BRACKETS: %w", err)
		}
		cfg.TaxBrackets = brackets
	}

	if value, ok := os.LookupEnv("PAYROLL_FAMILY_ALLOWANCE"); ok {
		scale, err := ParseScale(value)
		if err != nil {
			return tables.Config{}, fmt.Errorf("invalid PAYROLL_FAMILY_ALLOWANCE: %w", err)
		}
		cfg.FamilyScale = scale
	}

	return cfg, nil
}

// ParseBrackets parses tax brackets in the form
// "threshold:rate,threshold:rate", e.g. "0:0,150000:0.20,300000:0.30".
func ParseBrackets(s string) ([]tables.Bracket, error) {
	var brackets []tables.Bracket
	for _, part := range strings.Split(s, ",") {
		threshold, rate, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("bracket '%s' is not in the form threshold:rate", part)
		}

		t, err := decimal.NewFromString(strings.TrimSpace(threshold))
		if err != nil {
			return nil, fmt.Errorf("bracket '%s': %w", part, err)
		}

		r, err := decimal.NewFromString(strings.TrimSpace(rate))
		if err != nil {
			return nil, fmt.Errorf("bracket '%s': %w", part, err)
		}

		brackets = append(brackets, tables.Bracket{Threshold: t, Rate: r})
	}

	return brackets, nil
}

// ParseScale parses a comma separated list of amounts.
func ParseScale(s string) ([]decimal.Decimal, error) {
	var scale []decimal.Decimal
	for _, part := range strings.Split(s, ",") {
		v, err := decimal.NewFromString(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("amount '%s': %w", part, err)
		}
		scale = append(scale, v)
	}

	return scale, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvSlice(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}

	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
