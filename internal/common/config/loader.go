package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"
	BackendMemory        = "memory"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top, applies env overrides and defaults, then validates.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile loads a single YAML file, still honouring env overrides.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideSecrets(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// overrideSecrets fills credentials that are conventionally injected
// through plain env vars rather than the nested key form.
func overrideSecrets(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Weather.APIKey == "" {
		cfg.Weather.APIKey = os.Getenv("WEATHER_API_KEY")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "venue-recommender"
	}
	if cfg.App.HTTPAddress == "" {
		cfg.App.HTTPAddress = ":8080"
	}
	if cfg.App.RegistryPath == "" {
		cfg.App.RegistryPath = "configs/activity-registry.json"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = BackendPostgres
	}
	if cfg.Catalog.Table == "" {
		cfg.Catalog.Table = "venues"
	}
	if cfg.Catalog.Index == "" {
		cfg.Catalog.Index = "venues"
	}
	if cfg.Catalog.GeoKey == "" {
		cfg.Catalog.GeoKey = "venues_geo_v1"
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = 60
	}
	if cfg.Catalog.DefaultLimit == 0 {
		cfg.Catalog.DefaultLimit = 200
	}

	if cfg.Weather.Timeout == 0 {
		cfg.Weather.Timeout = 3000
	}
	if cfg.Weather.CacheTTL == 0 {
		cfg.Weather.CacheTTL = 1800
	}
	if cfg.Weather.RateLimit == 0 {
		cfg.Weather.RateLimit = 10
	}
	if cfg.Weather.RateBurst == 0 {
		cfg.Weather.RateBurst = 5
	}
	if cfg.Weather.BreakerThreshold == 0 {
		cfg.Weather.BreakerThreshold = 5
	}
	if cfg.Weather.BreakerTimeout == 0 {
		cfg.Weather.BreakerTimeout = 30000
	}

	if cfg.Scoring.CapacityStrategy == "" {
		cfg.Scoring.CapacityStrategy = "auto"
	}
	if cfg.Scoring.DefaultTopN == 0 {
		cfg.Scoring.DefaultTopN = 10
	}
	if cfg.Scoring.ParallelThreshold == 0 {
		cfg.Scoring.ParallelThreshold = 64
	}
	if cfg.Scoring.CapacityFloorRatio == 0 {
		cfg.Scoring.CapacityFloorRatio = 0.5
	}
	if cfg.Scoring.PriceCeilingSlack == 0 {
		cfg.Scoring.PriceCeilingSlack = 0.5
	}
	if cfg.Scoring.CatalogTimeout == 0 {
		cfg.Scoring.CatalogTimeout = 5000
	}
	if cfg.Scoring.WeatherTimeout == 0 {
		cfg.Scoring.WeatherTimeout = 3000
	}
	if cfg.Scoring.HeatThresholdC == 0 {
		cfg.Scoring.HeatThresholdC = 35
	}
	if len(cfg.Scoring.RainKeywords) == 0 {
		cfg.Scoring.RainKeywords = []string{"rain", "drizzle", "shower", "thunderstorm"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1
	}

	for key, w := range cfg.Workers {
		if w.MaxJobsActive == 0 {
			w.MaxJobsActive = 5
		}
		if w.Timeout == 0 {
			w.Timeout = 30000
		}
		if w.MaxRetries == 0 {
			w.MaxRetries = 3
		}
		cfg.Workers[key] = w
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	switch cfg.Catalog.Backend {
	case BackendPostgres:
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.host and database.postgres.database are required for the postgres catalog")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case BackendElasticsearch:
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses is required for the elasticsearch catalog")
		}
	case BackendMemory:
		if cfg.Catalog.SeedFile == "" {
			return fmt.Errorf("catalog.seed_file is required for the memory catalog")
		}
	default:
		return fmt.Errorf("unknown catalog.backend %q", cfg.Catalog.Backend)
	}

	if NeedsRedis(cfg) && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when catalog cache, geo index or weather is enabled")
	}

	if cfg.Weather.Enabled && cfg.Weather.BaseURL == "" {
		return fmt.Errorf("weather.base_url is required when weather is enabled")
	}

	switch cfg.Scoring.CapacityStrategy {
	case "auto", "ratio", "deviation":
	default:
		return fmt.Errorf("scoring.capacity_strategy must be auto, ratio or deviation, got %q", cfg.Scoring.CapacityStrategy)
	}

	for name, weights := range map[string]map[string]float64{
		"standard_weights":  cfg.Scoring.StandardWeights,
		"proximity_weights": cfg.Scoring.ProximityWeights,
	} {
		for criterion, w := range weights {
			if w < 0 {
				return fmt.Errorf("scoring.%s.%s must not be negative", name, criterion)
			}
		}
	}

	return nil
}

// NeedsRedis reports whether any enabled component keeps state in redis.
func NeedsRedis(cfg *Config) bool {
	return cfg.Catalog.CacheEnabled || cfg.Catalog.GeoEnabled || cfg.Weather.Enabled
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if w, exists := cfg.Workers[workerName]; exists {
		return w
	}
	wc := WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
	// unlisted workers inherit the broker-wide settings
	if cfg.Camunda.MaxJobsActive > 0 {
		wc.MaxJobsActive = cfg.Camunda.MaxJobsActive
	}
	if cfg.Camunda.Timeout > 0 {
		wc.Timeout = cfg.Camunda.Timeout
	}
	return wc
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if w, exists := cfg.Workers[workerName]; exists {
		return w.Enabled
	}
	return true
}
