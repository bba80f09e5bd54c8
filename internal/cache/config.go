package cache

import (
	"fmt"
	"strings"
	"time"

	"tokenscope/internal/domain"
)

// QueryConfig controls staleness and retry policy for one query category.
// Every field is explicit; there is no partial-merge of option bags.
type QueryConfig struct {
	StaleTime  time.Duration // max age before a cached value must be refetched
	MaxRetries int           // additional attempts after the first failure
	RetryBase  time.Duration // exponential backoff base
	RetryMax   time.Duration // backoff cap
}

func (c QueryConfig) validate(name string) error {
	if c.StaleTime <= 0 {
		return fmt.Errorf("%s: stale time must be positive", name)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%s: retries must not be negative", name)
	}
	if c.RetryBase <= 0 || c.RetryMax < c.RetryBase {
		return fmt.Errorf("%s: invalid retry backoff bounds", name)
	}
	return nil
}

// Config holds per-category query configs.
// Slow-changing metadata lives for minutes; balances and prices for
// seconds, refreshed by re-request or by the live feed.
type Config struct {
	Metadata QueryConfig // symbol, name, decimals
	Supply   QueryConfig // totalSupply
	Balance  QueryConfig // balanceOf
	Price    QueryConfig // market quotes
}

// DefaultConfig returns the documented default policy.
func DefaultConfig() Config {
	return Config{
		Metadata: QueryConfig{StaleTime: 10 * time.Minute, MaxRetries: 2, RetryBase: 200 * time.Millisecond, RetryMax: 2 * time.Second},
		Supply:   QueryConfig{StaleTime: 5 * time.Minute, MaxRetries: 2, RetryBase: 200 * time.Millisecond, RetryMax: 2 * time.Second},
		Balance:  QueryConfig{StaleTime: 30 * time.Second, MaxRetries: 3, RetryBase: 200 * time.Millisecond, RetryMax: 2 * time.Second},
		Price:    QueryConfig{StaleTime: 30 * time.Second, MaxRetries: 3, RetryBase: 200 * time.Millisecond, RetryMax: 2 * time.Second},
	}
}

// Validate checks all category configs at construction time.
func (c Config) Validate() error {
	if err := c.Metadata.validate("metadata"); err != nil {
		return err
	}
	if err := c.Supply.validate("supply"); err != nil {
		return err
	}
	if err := c.Balance.validate("balance"); err != nil {
		return err
	}
	if err := c.Price.validate("price"); err != nil {
		return err
	}
	return nil
}

// forField maps an on-chain field to its category config. Balance
// fields carry a holder suffix, so they match on prefix.
func (c Config) forField(f domain.Field) QueryConfig {
	switch {
	case f == domain.FieldTotalSupply:
		return c.Supply
	case strings.HasPrefix(string(f), string(domain.FieldBalance)):
		return c.Balance
	case f == domain.FieldPrice:
		return c.Price
	default:
		return c.Metadata
	}
}
