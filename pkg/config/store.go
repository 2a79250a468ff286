package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	StoreDriverBolt  = "bolt"
	StoreDriverRedis = "redis"
)

// StoreConfig selects and configures the local catalog store driver.
type StoreConfig struct {
	Driver  string        `koanf:"driver"`
	Path    string        `koanf:"path"`
	Timeout time.Duration `koanf:"timeout"`
	Redis   RedisConfig   `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// String returns a string representation of the store configuration.
func (c *StoreConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Store ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  path: %s\n", c.Path))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	if c.Driver == StoreDriverRedis {
		b.WriteString(fmt.Sprintf("  redis.addr: %s\n", c.Redis.Addr))
		b.WriteString(fmt.Sprintf("  redis.password: %s\n", mask(c.Redis.Password)))
		b.WriteString(fmt.Sprintf("  redis.db: %d\n", c.Redis.DB))
	}
	return b.String()
}

func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case StoreDriverBolt:
		if c.Path == "" {
			return fmt.Errorf("store path is required for the %s driver", StoreDriverBolt)
		}
	case StoreDriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("store redis address is required for the %s driver", StoreDriverRedis)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("store timeout must be greater than 0")
	}
	return nil
}

// mask hides a secret while still showing whether it is set.
func mask(secret string) string {
	if secret == "" {
		return "<not configured>"
	}
	return "****"
}
