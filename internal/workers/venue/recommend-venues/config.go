package recommendvenues

import (
	"fmt"
	"time"

	"venue-recommender/internal/common/config"
)

type Config struct {
	Enabled     bool
	Timeout     time.Duration
	MaxRetries  int
	DefaultTopN int
	MaxTopN     int
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Timeout:     15 * time.Second,
		MaxRetries:  3,
		DefaultTopN: 10,
		MaxTopN:     50,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DefaultTopN <= 0 {
		return fmt.Errorf("default topN must be positive")
	}
	if c.MaxTopN < c.DefaultTopN {
		return fmt.Errorf("max topN %d is below default topN %d", c.MaxTopN, c.DefaultTopN)
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}
	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	wc := config.GetWorkerConfig(appConfig, TaskType)
	cfg.Enabled = wc.Enabled
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	cfg.MaxRetries = wc.MaxRetries
	if appConfig.Scoring.DefaultTopN > 0 {
		cfg.DefaultTopN = appConfig.Scoring.DefaultTopN
		if cfg.MaxTopN < cfg.DefaultTopN {
			cfg.MaxTopN = cfg.DefaultTopN
		}
	}
	return cfg
}
