// Package config loads catalog service settings from defaults, an
// optional YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"ProductCatalog/internal/catalog"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"

	IDStrategySequence = catalog.IDStrategySequence
	IDStrategyClock    = catalog.IDStrategyClock

	// FileEnv names the variable holding the YAML file path.
	FileEnv = "CATALOG_CONFIG"
)

// Config holds service configuration values.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Store      string `yaml:"store"`
	DBDSN      string `yaml:"db_dsn"`
	IDStrategy string `yaml:"id_strategy"`

	StrictValidation bool `yaml:"strict_validation"`
	WriteLimitPerMin int  `yaml:"write_limit_per_min"`

	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsToken   string `yaml:"metrics_token"`

	// BaseURL is where clients reach the API.
	BaseURL string `yaml:"base_url"`
}

func Defaults() Config {
	return Config{
		Port:              "8082",
		LogLevel:          "info",
		Store:             StoreMemory,
		IDStrategy:        IDStrategySequence,
		NATSSubjectPrefix: "catalog",
		MetricsEnabled:    true,
		BaseURL:           "http://localhost:8082",
	}
}

// Load reads the YAML file named by CATALOG_CONFIG, if any, then applies
// environment overrides and validates the result.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "CATALOG_LOG_LEVEL")
	setString(&cfg.Store, "CATALOG_STORE")
	setString(&cfg.DBDSN, "CATALOG_DB_DSN")
	setString(&cfg.IDStrategy, "CATALOG_ID_STRATEGY")
	setString(&cfg.NATSURL, "CATALOG_NATS_URL")
	setString(&cfg.NATSSubjectPrefix, "CATALOG_NATS_SUBJECT_PREFIX")
	setString(&cfg.MetricsToken, "CATALOG_METRICS_TOKEN")
	setString(&cfg.BaseURL, "CATALOG_BASE_URL")

	return errors.Join(
		setBool(&cfg.StrictValidation, "CATALOG_STRICT_VALIDATION"),
		setBool(&cfg.MetricsEnabled, "CATALOG_METRICS_ENABLED"),
		setInt(&cfg.WriteLimitPerMin, "CATALOG_WRITE_LIMIT_PER_MIN"),
	)
}

func (c Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreMemory:
	case StorePostgres, StoreMySQL:
		if strings.TrimSpace(c.DBDSN) == "" {
			errs = append(errs, fmt.Errorf("db_dsn is required for store %q", c.Store))
		}
	default:
		errs = append(errs, fmt.Errorf("store %q: want %s, %s or %s", c.Store, StoreMemory, StorePostgres, StoreMySQL))
	}

	switch c.IDStrategy {
	case IDStrategySequence, IDStrategyClock:
	default:
		errs = append(errs, fmt.Errorf("id_strategy %q: want %s or %s", c.IDStrategy, IDStrategySequence, IDStrategyClock))
	}

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.WriteLimitPerMin < 0 {
		errs = append(errs, fmt.Errorf("write_limit_per_min %d must not be negative", c.WriteLimitPerMin))
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}
