// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${ENV} expansion
//  2. Environment variables (fallback)
//
// A dotenv credentials file (.creds/.env by default) is loaded into the
// process environment first, so both sources can reference its values.
//
// Example usage:
//
//	_ = config.LoadEnvFile(".creds/.env")
//	cfg := config.LoadOrEnv()
//	if err := cfg.Validate(); err != nil { ... }
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults shared by the YAML and environment loaders.
const (
	DefaultEnvFile       = ".creds/.env"
	DefaultDatabasePath  = "preorder_gather.db"
	DefaultCachePath     = "catalog_cache.json"
	DefaultBaseURL       = "https://connect.squareup.com/v2"
	DefaultSquareVersion = "2025-02-20"
	DefaultItemPrefix    = "PRE-ORDER"
	DefaultWriteCooldown = time.Second
)

// Configuration errors. Validate returns them wrapped.
var (
	ErrMissingAPIKey      = errors.New("square api key is not set")
	ErrMissingLocation    = errors.New("square location id is not set")
	ErrMissingSpreadsheet = errors.New("spreadsheet id is not set")
	ErrMissingCredentials = errors.New("sheets credentials file is not set")
	ErrMissingCachePath   = errors.New("catalog cache path is not set")
)

// Config represents the entire application configuration
type Config struct {
	Square        SquareConfig        `yaml:"square"`
	Sheets        SheetsConfig        `yaml:"sheets"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SquareConfig holds the commerce API settings
type SquareConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Version      string        `yaml:"version"`
	LocationID   string        `yaml:"location_id"`
	OrderStates  []string      `yaml:"order_states"`
	FollowCursor bool          `yaml:"follow_cursor"`
	MaxPages     int           `yaml:"max_pages"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SheetsConfig holds the output spreadsheet settings
type SheetsConfig struct {
	CredentialsFile string        `yaml:"credentials_file"`
	SpreadsheetID   string        `yaml:"spreadsheet_id"`
	SummarySheet    string        `yaml:"summary_sheet"`
	CustomersSheet  string        `yaml:"customers_sheet"` // prefix for per-customer sheets
	IndexSheet      string        `yaml:"index_sheet"`
	DesignersSheet  string        `yaml:"designers_sheet"`
	WriteCooldown   time.Duration `yaml:"write_cooldown"`
}

// CatalogConfig holds catalog cache and category matching settings
type CatalogConfig struct {
	CachePath                string   `yaml:"cache_path"`
	CategoryIDs              []string `yaml:"category_ids"`
	DesignerParentCategoryID string   `yaml:"designer_parent_category_id"`
	MatchPlainItems          *bool    `yaml:"match_plain_items"`
}

// PlainItemsMatch reports whether plain items match on their own categories.
// Defaults to true when unset.
func (c CatalogConfig) PlainItemsMatch() bool {
	return c.MatchPlainItems == nil || *c.MatchPlainItems
}

// PipelineConfig holds classification and reconciliation settings
type PipelineConfig struct {
	ItemPrefix            string   `yaml:"item_prefix"`
	ExcludedOrderIDs      []string `yaml:"excluded_order_ids"`
	ForceProcessCustomers []string `yaml:"force_process_customers"`
	MergeStrategy         string   `yaml:"merge_strategy"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds the read-only HTTP API settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${SQUARE_API_KEY})
	expanded := os.ExpandEnv(string(data))

	cfg := Config{Square: SquareConfig{FollowCursor: true}}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Square: SquareConfig{
			APIKey:       os.Getenv("SQUARE_API_KEY"),
			BaseURL:      getEnv("SQUARE_BASE_URL", DefaultBaseURL),
			Version:      getEnv("SQUARE_VERSION", DefaultSquareVersion),
			LocationID:   os.Getenv("SQUARE_LOCATION_ID"),
			OrderStates:  getEnvList("SQUARE_ORDER_STATES"),
			FollowCursor: getEnv("SQUARE_FOLLOW_CURSOR", "true") == "true",
			MaxPages:     getEnvInt("SQUARE_MAX_PAGES", 0),
		},
		Sheets: SheetsConfig{
			CredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
			SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		},
		Catalog: CatalogConfig{
			CachePath:                getEnv("CATALOG_CACHE_PATH", DefaultCachePath),
			CategoryIDs:              getEnvList("CATALOG_CATEGORY_IDS"),
			DesignerParentCategoryID: os.Getenv("CATALOG_DESIGNER_PARENT_ID"),
		},
		Pipeline: PipelineConfig{
			ItemPrefix:            getEnv("ITEM_PREFIX", DefaultItemPrefix),
			ExcludedOrderIDs:      getEnvList("EXCLUDED_ORDER_IDS"),
			ForceProcessCustomers: getEnvList("FORCE_PROCESS_CUSTOMERS"),
			MergeStrategy:         os.Getenv("MERGE_STRATEGY"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("PREORDER_DB_PATH", DefaultDatabasePath),
		},
		API: APIConfig{
			Port: getEnvInt("API_PORT", 8085),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
				File:   os.Getenv("LOG_FILE"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if c.Square.BaseURL == "" {
		c.Square.BaseURL = DefaultBaseURL
	}
	if c.Square.Version == "" {
		c.Square.Version = DefaultSquareVersion
	}
	if len(c.Square.OrderStates) == 0 {
		c.Square.OrderStates = []string{"OPEN"}
	}
	if c.Square.Timeout == 0 {
		c.Square.Timeout = 30 * time.Second
	}
	if c.Sheets.SummarySheet == "" {
		c.Sheets.SummarySheet = "Pre-Order Summary"
	}
	if c.Sheets.IndexSheet == "" {
		c.Sheets.IndexSheet = "Customers"
	}
	if c.Sheets.DesignersSheet == "" {
		c.Sheets.DesignersSheet = "Designers"
	}
	if c.Sheets.WriteCooldown == 0 {
		c.Sheets.WriteCooldown = DefaultWriteCooldown
	}
	if c.Catalog.CachePath == "" {
		c.Catalog.CachePath = DefaultCachePath
	}
	if c.Pipeline.ItemPrefix == "" {
		c.Pipeline.ItemPrefix = DefaultItemPrefix
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = DefaultDatabasePath
	}
	if c.API.Port == 0 {
		c.API.Port = 8085
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// ValidateOptions says which outputs a run will touch.
type ValidateOptions struct {
	// NeedsSink is false when both outputs are skipped or the run is dry.
	NeedsSink bool
}

// Validate checks the settings a run needs before any network call.
func (c *Config) Validate(opts ValidateOptions) error {
	var errs []error
	if c.GetAPIKey(c.Square.APIKey, "SQUARE_API_KEY", "SQUARE_ACCESS_TOKEN") == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.Square.LocationID == "" {
		errs = append(errs, ErrMissingLocation)
	}
	if c.Catalog.CachePath == "" {
		errs = append(errs, ErrMissingCachePath)
	}
	if opts.NeedsSink {
		if c.Sheets.SpreadsheetID == "" {
			errs = append(errs, ErrMissingSpreadsheet)
		}
		if c.Sheets.CredentialsFile == "" {
			errs = append(errs, ErrMissingCredentials)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList splits a comma-separated environment variable
func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Square.APIKey, "SQUARE_API_KEY")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	// First, try the config value
	if configValue != "" {
		return configValue
	}

	// Then try each environment variable in order
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
