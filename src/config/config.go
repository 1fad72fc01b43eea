package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"nifty-dashboard/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DASHBOARD_"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, a sibling .env file and
// DASHBOARD_* environment variables, in increasing precedence.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	modelConfig := defaults()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 3. .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{MConfig: modelConfig}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// NewDefaultConfig returns the built-in configuration without reading files.
func NewDefaultConfig() *Config {
	return &Config{MConfig: defaults()}
}

// -----------------------------------------------------------------------------

func defaults() *models.MConfig {
	return &models.MConfig{
		Name:     "nifty-dashboard",
		Host:     "127.0.0.1",
		Port:     8050,
		LogLevel: "INFO",
		GrpcHost: "127.0.0.1",
		GrpcPort: 50051,
		Storage: models.MStorageConfig{
			DBType:      "sqlite",
			DBPath:      "quotes.cache.db",
			Schema:      "nifty_dashboard",
			Retention:   "720h",
			CleanupCron: "0 30 3 * * *",
		},
		Network: models.MNetworkConfig{
			RequestTimeout:     15,
			MaxRetries:         2,
			ConcurrentRequests: 4,
		},
		Provider: models.MProviderConfig{
			Chain:    []string{"yahoo"},
			YahooURL: "https://query1.finance.yahoo.com",
		},
		Symbols: models.MSymbolsConfig{
			Source:         "wikipedia",
			URL:            "https://en.wikipedia.org/wiki/NIFTY_50",
			TableIndex:     2,
			ExchangeSuffix: ".NS",
		},
		Dashboard: models.MDashboardConfig{
			FreshnessTTL:   "6h",
			DefaultPeriod:  string(models.PeriodMax),
			MovingAverages: []int{50, 100, 200},
			Currency:       "₹",
			SessionIdle:    "2h",
			AllowedOrigins: []string{"http://127.0.0.1:", "http://localhost:"},
			MaxMemoryMB:    512,
		},
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", envPrefix, key, v, err)
		}
		*dst = n
		return nil
	}

	str("HOST", &c.Host)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("LOG_DIR", &c.LogDir)
	str("DB_TYPE", &c.Storage.DBType)
	str("DB_PATH", &c.Storage.DBPath)
	str("DB_URL", &c.Storage.DBConnectionString)
	str("SYMBOL_SOURCE", &c.Symbols.Source)
	str("SYMBOL_CSV", &c.Symbols.CSVPath)
	str("FRESHNESS_TTL", &c.Dashboard.FreshnessTTL)
	str("CSV_DIR", &c.Provider.CSVDir)
	if v, ok := os.LookupEnv(envPrefix + "PROVIDERS"); ok {
		c.Provider.Chain = splitList(v)
	}

	if err := num("PORT", &c.Port); err != nil {
		return err
	}
	return num("GRPC_PORT", &c.GrpcPort)
}

// -----------------------------------------------------------------------------

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database type %q", c.Storage.DBType)
	}
	if _, err := time.ParseDuration(c.Storage.Retention); err != nil {
		return fmt.Errorf("invalid storage retention %q: %w", c.Storage.Retention, err)
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Providers
	if len(c.Provider.Chain) == 0 {
		return fmt.Errorf("at least one market data provider must be configured")
	}
	for _, name := range c.Provider.Chain {
		switch name {
		case "yahoo":
		case "csv":
			if c.Provider.CSVDir == "" {
				return fmt.Errorf("csv provider requires provider.csv_dir")
			}
		default:
			return fmt.Errorf("unknown provider %q", name)
		}
	}

	// Symbols
	switch c.Symbols.Source {
	case "wikipedia":
		if c.Symbols.URL == "" {
			return fmt.Errorf("wikipedia symbol source requires symbols.url")
		}
	case "csv":
		if c.Symbols.CSVPath == "" {
			return fmt.Errorf("csv symbol source requires symbols.csv_path")
		}
	case "postgres":
		if c.Symbols.PostgresRef == "" || c.Storage.DBConnectionString == "" {
			return fmt.Errorf("postgres symbol source requires symbols.postgres_ref and storage.db_connection_string")
		}
	case "static":
		if len(c.Symbols.Static) == 0 {
			return fmt.Errorf("static symbol source requires at least one symbol")
		}
	default:
		return fmt.Errorf("unknown symbol source %q", c.Symbols.Source)
	}

	// Dashboard
	if ttl, err := time.ParseDuration(c.Dashboard.FreshnessTTL); err != nil || ttl <= 0 {
		return fmt.Errorf("freshness ttl must be a positive duration, got %q", c.Dashboard.FreshnessTTL)
	}
	if _, err := time.ParseDuration(c.Dashboard.SessionIdle); err != nil {
		return fmt.Errorf("invalid session idle timeout %q: %w", c.Dashboard.SessionIdle, err)
	}
	if _, err := models.ParsePeriod(c.Dashboard.DefaultPeriod); err != nil {
		return fmt.Errorf("invalid default period: %w", err)
	}
	if len(c.Dashboard.MovingAverages) == 0 {
		return fmt.Errorf("at least one moving average window must be configured")
	}
	for _, w := range c.Dashboard.MovingAverages {
		if w <= 0 {
			return fmt.Errorf("moving average window must be positive, got %d", w)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------
// Typed accessors (values are checked by Validate)
// -----------------------------------------------------------------------------

func (c *Config) FreshnessTTL() time.Duration {
	d, _ := time.ParseDuration(c.Dashboard.FreshnessTTL)
	return d
}

func (c *Config) SessionIdle() time.Duration {
	d, _ := time.ParseDuration(c.Dashboard.SessionIdle)
	return d
}

func (c *Config) Retention() time.Duration {
	d, _ := time.ParseDuration(c.Storage.Retention)
	return d
}

func (c *Config) DefaultPeriod() models.Period {
	p, err := models.ParsePeriod(c.Dashboard.DefaultPeriod)
	if err != nil {
		return models.PeriodMax
	}
	return p
}

func (c *Config) MovingAverageWindows() models.MovingAverageSet {
	windows := make([]models.MovingAverageWindow, 0, len(c.Dashboard.MovingAverages))
	for _, w := range c.Dashboard.MovingAverages {
		windows = append(windows, models.MovingAverageWindow(w))
	}
	return models.NewMovingAverageSet(windows...)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Network.RequestTimeout) * time.Second
}
