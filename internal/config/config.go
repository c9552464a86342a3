// Package config provides application configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lumenkit/lumenvault/internal/session"
)

// Config holds all application configuration.
type Config struct {
	Vault   VaultConfig
	Network NetworkConfig
	Unlock  UnlockConfig
	Log     LogConfig
}

// VaultConfig holds local storage settings.
type VaultConfig struct {
	Dir    string
	DBFile string
}

// NetworkConfig holds Stellar network and relay endpoints.
type NetworkConfig struct {
	HorizonURL    string
	BackendURL    string
	Passphrase    string
	SubmitTimeout time.Duration
}

// UnlockConfig holds session defaults applied when the store carries no
// saved preferences.
type UnlockConfig struct {
	TTL        time.Duration
	AutoExtend bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables prefixed with
// LUMENVAULT_.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LUMENVAULT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Vault: VaultConfig{
			Dir:    v.GetString("vault.dir"),
			DBFile: v.GetString("vault.db_file"),
		},
		Network: NetworkConfig{
			HorizonURL:    v.GetString("network.horizon_url"),
			BackendURL:    v.GetString("network.backend_url"),
			Passphrase:    v.GetString("network.passphrase"),
			SubmitTimeout: v.GetDuration("network.submit_timeout"),
		},
		Unlock: UnlockConfig{
			TTL:        v.GetDuration("unlock.ttl"),
			AutoExtend: v.GetBool("unlock.auto_extend"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("vault.dir", defaultVaultDir())
	v.SetDefault("vault.db_file", "vault.db")

	v.SetDefault("network.horizon_url", "https://horizon-testnet.stellar.org")
	v.SetDefault("network.backend_url", "http://localhost:8000")
	v.SetDefault("network.passphrase", "Test SDF Network ; September 2015")
	v.SetDefault("network.submit_timeout", 30*time.Second)

	v.SetDefault("unlock.ttl", session.DefaultTTL)
	v.SetDefault("unlock.auto_extend", false)

	v.SetDefault("log.level", "info")
}

func defaultVaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lumenvault"
	}
	return filepath.Join(home, ".lumenvault")
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.Vault.Dir == "" {
		return fmt.Errorf("vault directory is required")
	}
	if c.Network.HorizonURL == "" {
		return fmt.Errorf("horizon URL is required")
	}
	if c.Network.Passphrase == "" {
		return fmt.Errorf("network passphrase is required")
	}
	if c.Unlock.TTL < session.MinTTL || c.Unlock.TTL > session.MaxTTL {
		return fmt.Errorf("unlock TTL must be between %s and %s", session.MinTTL, session.MaxTTL)
	}
	return nil
}

// DBPath returns the full path of the vault database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.Vault.Dir, c.Vault.DBFile)
}
