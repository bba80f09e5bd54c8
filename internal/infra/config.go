package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChainConfig describes one EVM chain the inspector can read from.
type ChainConfig struct {
	ID     int64  `yaml:"id"`
	Name   string `yaml:"name"`
	RPCURL string `yaml:"rpc_url"`
}

// Config holds the full application configuration.
// Loaded once at bootstrap; sensitive values can be overridden from
// the environment after the file is parsed.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Chains []ChainConfig `yaml:"chains"`

	PriceAPI struct {
		BaseURL    string  `yaml:"base_url"`
		WSURL      string  `yaml:"ws_url"`
		APIKey     string  `yaml:"api_key"`
		PerSecond  float64 `yaml:"per_second"` // client-side rate limit
		TimeoutSec int     `yaml:"timeout_sec"`
	} `yaml:"price_api"`

	Cache struct {
		MetadataStaleMin int `yaml:"metadata_stale_min"`
		SupplyStaleMin   int `yaml:"supply_stale_min"`
		BalanceStaleSec  int `yaml:"balance_stale_sec"`
		PriceStaleSec    int `yaml:"price_stale_sec"`
	} `yaml:"cache"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = AppName
	}
	if cfg.PriceAPI.PerSecond <= 0 {
		cfg.PriceAPI.PerSecond = 1 // external API allows 1 req/s sustained
	}
	if cfg.PriceAPI.TimeoutSec <= 0 {
		cfg.PriceAPI.TimeoutSec = 10
	}
	if cfg.Cache.MetadataStaleMin <= 0 {
		cfg.Cache.MetadataStaleMin = 10
	}
	if cfg.Cache.SupplyStaleMin <= 0 {
		cfg.Cache.SupplyStaleMin = 5
	}
	if cfg.Cache.BalanceStaleSec <= 0 {
		cfg.Cache.BalanceStaleSec = 30
	}
	if cfg.Cache.PriceStaleSec <= 0 {
		cfg.Cache.PriceStaleSec = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain is required")
	}
	seen := make(map[int64]bool, len(c.Chains))
	for _, ch := range c.Chains {
		if ch.ID <= 0 {
			return fmt.Errorf("chain %q: id must be positive", ch.Name)
		}
		if seen[ch.ID] {
			return fmt.Errorf("duplicate chain id %d", ch.ID)
		}
		seen[ch.ID] = true
		if !strings.HasPrefix(ch.RPCURL, "http://") && !strings.HasPrefix(ch.RPCURL, "https://") {
			return fmt.Errorf("chain %d: invalid RPC URL: %s", ch.ID, ch.RPCURL)
		}
	}

	if c.PriceAPI.BaseURL != "" &&
		!strings.HasPrefix(c.PriceAPI.BaseURL, "http://") &&
		!strings.HasPrefix(c.PriceAPI.BaseURL, "https://") {
		return fmt.Errorf("invalid price API URL: %s", c.PriceAPI.BaseURL)
	}
	if c.PriceAPI.WSURL != "" &&
		!strings.HasPrefix(c.PriceAPI.WSURL, "ws://") &&
		!strings.HasPrefix(c.PriceAPI.WSURL, "wss://") {
		return fmt.Errorf("invalid price API WS URL: %s", c.PriceAPI.WSURL)
	}

	return nil
}

// Chain returns the chain config for an id.
func (c *Config) Chain(id int64) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.ID == id {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

// overrideWithEnv applies environment variables over file values.
// The API key should come from the environment, not the config file.
func overrideWithEnv(cfg *Config) {
	if cfg.PriceAPI.APIKey != "" {
		fmt.Println("⚠️  SECURITY WARNING: price API key found in config file.")
		fmt.Println("   Recommendation: set TOKENSCOPE_PRICE_API_KEY instead.")
	}

	if key := os.Getenv("TOKENSCOPE_PRICE_API_KEY"); key != "" {
		cfg.PriceAPI.APIKey = key
	}
	if url := os.Getenv("TOKENSCOPE_PRICE_API_URL"); url != "" {
		cfg.PriceAPI.BaseURL = url
	}
}
