package config

import (
	"strings"
	"time"

	"github.com/abgdnv/catalogsync/pkg/config"
	"github.com/abgdnv/catalogsync/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// EnvPrefix is the prefix of environment overrides, e.g. CATALOG_STORE_DRIVER.
const EnvPrefix = "catalog"

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Log        config.LogConfig       `koanf:"log"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	Store      config.StoreConfig     `koanf:"store"`
	Blob       config.BlobConfig      `koanf:"blob"`
	Feed       config.FeedConfig      `koanf:"feed"`
	Auth       config.AuthConfig      `koanf:"auth"`
	NATS       config.NATSConfig      `koanf:"nats"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
}

// Defaults returns the built-in configuration, overridden by config.yaml, .env and CATALOG_* variables.
func Defaults() map[string]any {
	return map[string]any{
		"log.level": "info",

		"shutdown.timeout": 10 * time.Second,

		"server.host":               "127.0.0.1",
		"server.port":               8088,
		"server.maxHeaderBytes":     1 << 20,
		"server.timeout.read":       15 * time.Second,
		"server.timeout.write":      30 * time.Second,
		"server.timeout.idle":       60 * time.Second,
		"server.timeout.readHeader": 5 * time.Second,

		"store.driver":     config.StoreDriverBolt,
		"store.path":       "catalog.db",
		"store.timeout":    5 * time.Second,
		"store.redis.addr": "localhost:6379",

		"blob.endpoint": "localhost:9000",
		"blob.bucket":   "catalog",
		"blob.prefix":   "images",
		"blob.timeout":  30 * time.Second,

		"feed.baseurl":                            "https://fakestoreapi.com",
		"feed.pagesize":                           10,
		"feed.timeout":                            10 * time.Second,
		"feed.circuitbreaker.consecutivefailures": 5,
		"feed.circuitbreaker.errorratepercent":    60,
		"feed.circuitbreaker.opentimeout":         30 * time.Second,

		"auth.baseurl": "https://identitytoolkit.googleapis.com/v1",
		"auth.timeout": 10 * time.Second,

		"nats.enabled": false,
		"nats.url":     "nats://localhost:4222",
		"nats.timeout": 5 * time.Second,

		"telemetry.enabled":                  false,
		"telemetry.traces.sampleratio":       1.0,
		"telemetry.traces.otlphttp.endpoint": "localhost:4318",
		"telemetry.traces.otlphttp.insecure": true,
		"telemetry.traces.otlphttp.timeout":  5 * time.Second,
	}
}

// Load reads the application configuration.
func Load(file string) (*Config, error) {
	return configloader.Load[*Config](configloader.Options{
		Prefix:   EnvPrefix,
		File:     file,
		Defaults: Defaults(),
	})
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Store.String())
	b.WriteString(c.Blob.String())
	b.WriteString(c.Feed.String())
	b.WriteString(c.Auth.String())
	b.WriteString(c.NATS.String())
	b.WriteString(c.Telemetry.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Log,
		&c.Shutdown,
		&c.Store,
		&c.Blob,
		&c.Feed,
		&c.Auth,
		&c.NATS,
		&c.Telemetry,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
