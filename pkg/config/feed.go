package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// FeedConfig configures the remote paged product listing.
type FeedConfig struct {
	BaseURL        string               `koanf:"baseurl"`
	PageSize       int                  `koanf:"pagesize"`
	Timeout        time.Duration        `koanf:"timeout"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

// String returns a string representation of the feed configuration.
func (c *FeedConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Feed ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  pagesize: %d\n", c.PageSize))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  circuitbreaker.consecutivefailures: %d\n", c.CircuitBreaker.ConsecutiveFailures))
	b.WriteString(fmt.Sprintf("  circuitbreaker.errorratepercent: %d\n", c.CircuitBreaker.ErrorRatePercent))
	b.WriteString(fmt.Sprintf("  circuitbreaker.opentimeout: %v\n", c.CircuitBreaker.OpenTimeout))
	return b.String()
}

func (c *FeedConfig) Validate() error {
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("feed base URL must be absolute: %q", c.BaseURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("feed page size must be greater than 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be greater than 0")
	}
	return c.CircuitBreaker.Validate()
}

func (c *CircuitBreakerConfig) Validate() error {
	if c.ConsecutiveFailures <= 0 {
		return fmt.Errorf("circuitbreaker.consecutivefailures must be greater than 0")
	}
	if c.ErrorRatePercent < 0 || c.ErrorRatePercent > 100 {
		return fmt.Errorf("circuitbreaker.errorratepercent must be between 0 and 100")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("circuitbreaker.opentimeout must be greater than 0")
	}
	return nil
}
