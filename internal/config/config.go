// Package config loads intelshare configuration from an optional YAML file
// and environment variables. Every key has a default, so a bare environment
// yields a working in-memory server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jmerrifield20/intelshare/internal/anonymize"
	"github.com/jmerrifield20/intelshare/internal/trust"
)

// Config is the full configuration tree.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Platform  PlatformConfig  `mapstructure:"platform"`
	Trust     TrustConfig     `mapstructure:"trust"`
	Sharing   SharingConfig   `mapstructure:"sharing"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Anonymize AnonymizeConfig `mapstructure:"anonymize"`

	// File is the config file that was read, empty if none was found.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	RateLimitRPS float64  `mapstructure:"rate_limit_rps"`
	MaxBodyBytes int64    `mapstructure:"max_body_bytes"`
}

// DatabaseConfig selects the store. An empty URL runs on in-memory stores.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type PlatformConfig struct {
	Name         string `mapstructure:"name"`
	PublisherOrg string `mapstructure:"publisher_org"`
}

type TrustConfig struct {
	// Fixture is a JSON organization fixture loaded when running on
	// in-memory stores.
	Fixture       string             `mapstructure:"fixture"`
	CacheTTL      time.Duration      `mapstructure:"cache_ttl"`
	EvictInterval time.Duration      `mapstructure:"evict_interval"`
	Defaults      trust.DefaultTable `mapstructure:"defaults"`
}

type SharingConfig struct {
	Workers int `mapstructure:"workers"`
}

// LedgerConfig schedules background verification of the share ledger.
// VerifySchedule is a cron expression or "@disabled".
type LedgerConfig struct {
	VerifySchedule string `mapstructure:"verify_schedule"`
}

type AnonymizeConfig struct {
	StrictPatterns bool              `mapstructure:"strict_patterns"`
	TLDCategories  map[string]string `mapstructure:"tld_categories"`
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	d := trust.StandardDefaults()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.max_body_bytes", 8<<20)
	v.SetDefault("database.url", "")
	v.SetDefault("platform.name", anonymize.DefaultPlatform)
	v.SetDefault("platform.publisher_org", "")
	v.SetDefault("trust.fixture", "")
	v.SetDefault("trust.cache_ttl", "0s")
	v.SetDefault("trust.evict_interval", "1m")
	v.SetDefault("trust.defaults.peer", d.Peer)
	v.SetDefault("trust.defaults.cross", d.Cross)
	v.SetDefault("trust.defaults.unknown", d.Unknown)
	v.SetDefault("trust.defaults.kinds", map[string]float64{})
	v.SetDefault("sharing.workers", 0)
	v.SetDefault("ledger.verify_schedule", "@every 1h")
	v.SetDefault("anonymize.strict_patterns", false)
	v.SetDefault("anonymize.tld_categories", map[string]string{})
}

// Load reads intelshare.yaml from the first of paths that has one
// (default "configs" then "."), applies environment overrides such as
// DATABASE_URL or TRUST_CACHE_TTL, and validates the result.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = []string{"configs", "."}
	}

	v := viper.New()
	v.SetConfigName("intelshare")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if err := c.Trust.Defaults.Validate(); err != nil {
		return fmt.Errorf("trust.defaults: %w", err)
	}
	if c.Trust.CacheTTL < 0 {
		return fmt.Errorf("trust.cache_ttl must not be negative")
	}
	if c.Sharing.Workers < 0 {
		return fmt.Errorf("sharing.workers must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Anonymizer builds the object anonymizer described by the configuration.
func (c *Config) Anonymizer() *anonymize.Anonymizer {
	table := anonymize.NewTable(anonymize.NewTLDTable(c.Anonymize.TLDCategories))
	return anonymize.New(table, anonymize.Options{
		Platform:       c.Platform.Name,
		StrictPatterns: c.Anonymize.StrictPatterns,
	})
}

// ResolverConfig returns the resolver configuration.
func (c *Config) ResolverConfig() trust.Config {
	return trust.Config{Defaults: c.Trust.Defaults, CacheTTL: c.Trust.CacheTTL}
}
