package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const DefaultRelayURL = "wss://relay.tether.dev"

type Config struct {
	Server struct {
		Address  string `mapstructure:"address"`
		HTTPPort string `mapstructure:"http_port"`
	} `mapstructure:"server"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "text" | "json"
		File   string `mapstructure:"file"`
	} `mapstructure:"logging"`

	Database struct {
		Driver string `mapstructure:"driver"` // "sqlite" | "postgres" | "mysql" | ""
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Relay struct {
		Enabled     bool   `mapstructure:"enabled"`
		URL         string `mapstructure:"url"`
		AutoConnect bool   `mapstructure:"auto_connect"`
	} `mapstructure:"relay"`

	Workspaces struct {
		Roots []string `mapstructure:"roots"`
	} `mapstructure:"workspaces"`

	v  *viper.Viper
	mu sync.Mutex
}

// RelaySettings is the user-controlled subset that drives connect/disconnect.
type RelaySettings struct {
	Enabled     bool   `json:"enabled"`
	RelayURL    string `json:"relayUrl"`
	AutoConnect bool   `json:"autoConnect"`
}

func (c *Config) RelaySettings() RelaySettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RelaySettings{
		Enabled:     c.Relay.Enabled,
		RelayURL:    c.Relay.URL,
		AutoConnect: c.Relay.AutoConnect,
	}
}

// SetRelaySettings persists the new settings to the config file.
// A missing config file is not an error: the values still apply in-memory.
func (c *Config) SetRelaySettings(s RelaySettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(s.RelayURL) == "" {
		s.RelayURL = DefaultRelayURL
	}
	c.Relay.Enabled = s.Enabled
	c.Relay.URL = s.RelayURL
	c.Relay.AutoConnect = s.AutoConnect
	if c.v == nil {
		return nil
	}
	c.v.Set("relay.enabled", s.Enabled)
	c.v.Set("relay.url", s.RelayURL)
	c.v.Set("relay.auto_connect", s.AutoConnect)
	if err := c.v.WriteConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return c.v.SafeWriteConfig()
		}
		return err
	}
	return nil
}

// Load reads the config file (path may be empty: ~/.tether/config.yaml,
// then ./config.yaml) and applies TETHER_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tether"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TETHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// config file is optional; anything else is a real error
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if strings.TrimSpace(cfg.Relay.URL) == "" {
		cfg.Relay.URL = DefaultRelayURL
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.http_port", "7870")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", defaultDBPath())

	v.SetDefault("relay.enabled", false)
	v.SetDefault("relay.url", DefaultRelayURL)
	v.SetDefault("relay.auto_connect", true)

	v.SetDefault("workspaces.roots", []string{})
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tether.db"
	}
	return filepath.Join(home, ".tether", "tether.db")
}
