// Package config holds runtime settings for the KnowTation core.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config carries the network and storage settings the core is constructed
// with. Kind numbers and the relay list are explicit configuration, not
// process globals.
type Config struct {
	Relays         []string      `yaml:"relays"           env:"KNOWTATION_RELAYS" env-separator:"," env-default:"wss://relay.damus.io,wss://nos.lol"`
	DatabasePath   string        `yaml:"database_path"    env:"KNOWTATION_DB"      env-default:"knowtation.db"`
	QueryLimit     int           `yaml:"query_limit"      env:"KNOWTATION_QUERY_LIMIT" env-default:"100"`
	NetworkTimeout time.Duration `yaml:"network_timeout"  env:"KNOWTATION_NETWORK_TIMEOUT" env-default:"10s"`

	PublicKind     int `yaml:"public_kind"     env:"KNOWTATION_PUBLIC_KIND"     env-default:"50000"`
	PrivateKind    int `yaml:"private_kind"    env:"KNOWTATION_PRIVATE_KIND"    env-default:"50001"`
	RetractionKind int `yaml:"retraction_kind" env:"KNOWTATION_RETRACTION_KIND" env-default:"5"`
}

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. An empty path loads from ENV and
// defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the core cannot run with.
func (c *Config) Validate() error {
	if len(c.Relays) == 0 {
		return fmt.Errorf("at least one relay is required")
	}
	if c.QueryLimit <= 0 {
		return fmt.Errorf("query_limit must be positive")
	}
	if c.NetworkTimeout <= 0 {
		return fmt.Errorf("network_timeout must be positive")
	}
	return nil
}
