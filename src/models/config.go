package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	LogFormat string           `yaml:"log_format"`
	LogDir    string           `yaml:"log_dir"`
	GrpcHost  string           `yaml:"grpc_host"`
	GrpcPort  int              `yaml:"grpc_port"`
	Storage   MStorageConfig   `yaml:"storage"`
	Network   MNetworkConfig   `yaml:"network"`
	Provider  MProviderConfig  `yaml:"provider"`
	Symbols   MSymbolsConfig   `yaml:"symbols"`
	Dashboard MDashboardConfig `yaml:"dashboard"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite | postgres | memory
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	Schema             string `yaml:"schema"`
	Retention          string `yaml:"retention"`
	CleanupCron        string `yaml:"cleanup_cron"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MProviderConfig struct {
	Chain    []string `yaml:"chain"` // yahoo | csv, tried in order
	YahooURL string   `yaml:"yahoo_url"`
	CSVDir   string   `yaml:"csv_dir"`
}

type MSymbolsConfig struct {
	Source         string   `yaml:"source"` // wikipedia | csv | postgres | static
	URL            string   `yaml:"url"`
	TableIndex     int      `yaml:"table_index"`
	CSVPath        string   `yaml:"csv_path"`
	PostgresRef    string   `yaml:"postgres_ref"` // schema.table.field
	ExchangeSuffix string   `yaml:"exchange_suffix"`
	Static         []string `yaml:"static"`
}

type MDashboardConfig struct {
	FreshnessTTL   string   `yaml:"freshness_ttl"`
	DefaultPeriod  string   `yaml:"default_period"`
	MovingAverages []int    `yaml:"moving_averages"`
	Currency       string   `yaml:"currency"`
	SessionIdle    string   `yaml:"session_idle"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxMemoryMB    int      `yaml:"max_memory_mb"`
}
