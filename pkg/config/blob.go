package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// BlobConfig configures the S3-compatible object store that receives product media.
type BlobConfig struct {
	Endpoint  string        `koanf:"endpoint"`
	AccessKey string        `koanf:"accesskey"`
	SecretKey string        `koanf:"secretkey"`
	Bucket    string        `koanf:"bucket"`
	Secure    bool          `koanf:"secure"`
	PublicURL string        `koanf:"publicurl"`
	Prefix    string        `koanf:"prefix"`
	Timeout   time.Duration `koanf:"timeout"`
}

// String returns a string representation of the blob store configuration.
func (c *BlobConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Blob ---\n")
	b.WriteString(fmt.Sprintf("  endpoint: %s\n", c.Endpoint))
	b.WriteString(fmt.Sprintf("  accesskey: %s\n", mask(c.AccessKey)))
	b.WriteString(fmt.Sprintf("  secretkey: %s\n", mask(c.SecretKey)))
	b.WriteString(fmt.Sprintf("  bucket: %s\n", c.Bucket))
	b.WriteString(fmt.Sprintf("  secure: %t\n", c.Secure))
	b.WriteString(fmt.Sprintf("  publicurl: %s\n", c.PublicURL))
	b.WriteString(fmt.Sprintf("  prefix: %s\n", c.Prefix))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *BlobConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("blob endpoint is not configured")
	}
	if c.Bucket == "" {
		return fmt.Errorf("blob bucket is not configured")
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("blob public URL must be absolute: %q", c.PublicURL)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("blob timeout must be greater than 0")
	}
	return nil
}
