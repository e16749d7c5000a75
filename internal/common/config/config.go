package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Catalog       CatalogConfig           `mapstructure:"catalog"`
	Weather       WeatherConfig           `mapstructure:"weather"`
	Scoring       ScoringConfig           `mapstructure:"scoring"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

type AppConfig struct {
	Name         string `mapstructure:"name"`
	Version      string `mapstructure:"version"`
	Environment  string `mapstructure:"environment"`
	HTTPAddress  string `mapstructure:"http_address"`
	RegistryPath string `mapstructure:"registry_path"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the lib/pq connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CatalogConfig selects and tunes the venue catalog store.
type CatalogConfig struct {
	Backend      string `mapstructure:"backend"` // postgres | elasticsearch | memory
	Table        string `mapstructure:"table"`
	Index        string `mapstructure:"index"`
	GeoKey       string `mapstructure:"geo_key"`
	GeoEnabled   bool   `mapstructure:"geo_enabled"`
	CacheEnabled bool   `mapstructure:"cache_enabled"`
	CacheTTL     int    `mapstructure:"cache_ttl"` // seconds
	SeedFile     string `mapstructure:"seed_file"`
	DefaultLimit int    `mapstructure:"default_limit"`
}

type WeatherConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	BaseURL          string  `mapstructure:"base_url"`
	APIKey           string  `mapstructure:"api_key"`
	Timeout          int     `mapstructure:"timeout"`    // milliseconds
	CacheTTL         int     `mapstructure:"cache_ttl"`  // seconds
	RateLimit        float64 `mapstructure:"rate_limit"` // requests per second
	RateBurst        int     `mapstructure:"rate_burst"`
	MaxRetries       int     `mapstructure:"max_retries"`
	BreakerThreshold uint32  `mapstructure:"breaker_threshold"`
	BreakerTimeout   int     `mapstructure:"breaker_timeout"` // milliseconds
}

// ScoringConfig tunes the calculator and the recommendation engine.
type ScoringConfig struct {
	CapacityStrategy   string             `mapstructure:"capacity_strategy"` // auto | ratio | deviation
	StandardWeights    map[string]float64 `mapstructure:"standard_weights"`
	ProximityWeights   map[string]float64 `mapstructure:"proximity_weights"`
	DefaultTopN        int                `mapstructure:"default_top_n"`
	ParallelThreshold  int                `mapstructure:"parallel_threshold"`
	MaxWorkers         int                `mapstructure:"max_workers"`
	CapacityFloorRatio float64            `mapstructure:"capacity_floor_ratio"`
	PriceCeilingSlack  float64            `mapstructure:"price_ceiling_slack"`
	CatalogTimeout     int                `mapstructure:"catalog_timeout"` // milliseconds
	WeatherTimeout     int                `mapstructure:"weather_timeout"` // milliseconds
	HeatThresholdC     float64            `mapstructure:"heat_threshold_c"`
	RainKeywords       []string           `mapstructure:"rain_keywords"`
}

// WorkerConfig holds the settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
