package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthConfig points the session gate at an identity-toolkit compatible REST API.
type AuthConfig struct {
	BaseURL string        `koanf:"baseurl"`
	APIKey  string        `koanf:"apikey"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the auth configuration.
func (c *AuthConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Auth ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  apikey: %s\n", mask(c.APIKey)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *AuthConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("auth base URL is not configured")
	}
	if c.APIKey == "" {
		return fmt.Errorf("auth API key is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("auth timeout must be greater than 0")
	}
	return nil
}
