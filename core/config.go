package core

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTrustedCertDomains are the certificate-hosting domains accepted when
// fetching the SNS signing certificate. Suffix label match, not substring.
var DefaultTrustedCertDomains = []string{"amazonaws.com", "amazon.com"}

type SendConfig struct {
	Region       string  `koanf:"region" mapstructure:"region"`
	ReturnPath   string  `koanf:"return_path" mapstructure:"return_path"`
	AutoThrottle float64 `koanf:"auto_throttle" mapstructure:"auto_throttle"`
}

// StorageConfig satisfies the persistence client's config contract so it can
// be handed to the store layer as-is.
type StorageConfig struct {
	Driver      string        `koanf:"driver" mapstructure:"driver"`
	DSN         string        `koanf:"dsn" mapstructure:"dsn"`
	Debug       bool          `koanf:"debug" mapstructure:"debug"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
}

func (c StorageConfig) GetDebug() bool {
	return c.Debug
}

func (c StorageConfig) GetDriver() string {
	return c.Driver
}

func (c StorageConfig) GetServer() string {
	return c.DSN
}

func (c StorageConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c StorageConfig) GetOtelIdentifier() string {
	return "go-ses-events"
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`

	// VerifySignatures gates webhook signature verification. Disabling it is
	// the explicit escape hatch for local development; there is no
	// half-verified mode.
	VerifySignatures   bool     `koanf:"verify_signatures" mapstructure:"verify_signatures"`
	TrustedCertDomains []string `koanf:"trusted_cert_domains" mapstructure:"trusted_cert_domains"`

	BlacklistOnBounce    bool `koanf:"blacklist_on_bounce" mapstructure:"blacklist_on_bounce"`
	BlacklistOnComplaint bool `koanf:"blacklist_on_complaint" mapstructure:"blacklist_on_complaint"`
	UseBlacklist         bool `koanf:"use_blacklist" mapstructure:"use_blacklist"`

	// InboundHandler selects the received-mail content handler by capability
	// tag ("raw", "s3", "sns").
	InboundHandler string `koanf:"inbound_handler" mapstructure:"inbound_handler"`

	Send    SendConfig    `koanf:"send" mapstructure:"send"`
	Storage StorageConfig `koanf:"storage" mapstructure:"storage"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:        "ses-events",
		VerifySignatures:   true,
		TrustedCertDomains: append([]string(nil), DefaultTrustedCertDomains...),
		InboundHandler:     "raw",
		Send: SendConfig{
			Region:       "us-east-1",
			AutoThrottle: 0.5,
		},
		Storage: StorageConfig{
			Driver:      "sqlite3",
			DSN:         "file:ses_events.db?_foreign_keys=on",
			PingTimeout: 5 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.VerifySignatures && len(c.TrustedCertDomains) == 0 {
		return fmt.Errorf("core: trusted_cert_domains is required when verify_signatures is enabled")
	}
	for _, domain := range c.TrustedCertDomains {
		if strings.TrimSpace(domain) == "" {
			return fmt.Errorf("core: trusted cert domain entries must not be empty")
		}
	}
	if c.Send.AutoThrottle < 0 {
		return fmt.Errorf("core: send.auto_throttle must not be negative")
	}
	if strings.TrimSpace(c.Storage.DSN) != "" && strings.TrimSpace(c.Storage.Driver) == "" {
		return fmt.Errorf("core: storage.driver is required when storage.dsn is set")
	}
	return nil
}
