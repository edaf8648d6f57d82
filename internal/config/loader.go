package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "TICKETLENS",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "TICKETLENS",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (TICKETLENS_*)
// 3. Project config (.ticketlens.yaml in current directory)
// 4. User config (~/.config/ticketlens/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".ticketlens")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config.
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "ticketlens"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	// Server defaults
	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 8090)
	l.v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})

	// Backend defaults. The api_key default registers the key so the
	// environment variable is picked up during Unmarshal.
	l.v.SetDefault("backend.base_url", "https://api.openai.com/v1")
	l.v.SetDefault("backend.api_key", "")

	// Analysis defaults
	l.v.SetDefault("analysis.model", "gpt-4o-mini")
	l.v.SetDefault("analysis.chunk_size", 200)
	l.v.SetDefault("analysis.max_concurrency", 4)
	l.v.SetDefault("analysis.call_timeout", "2m")
	l.v.SetDefault("analysis.anonymize", true)

	// Pipeline defaults
	l.v.SetDefault("pipeline.model", "gpt-4o")
	l.v.SetDefault("pipeline.call_timeout", "3m")
	l.v.SetDefault("pipeline.anonymize", true)

	// Agent defaults
	l.v.SetDefault("agents.model", "gpt-4o")
	l.v.SetDefault("agents.max_group", 4)
	l.v.SetDefault("agents.call_timeout", "2m")
	l.v.SetDefault("agents.metrics_window", 500)

	// Generation defaults
	l.v.SetDefault("generation.model", "gpt-4o-mini")
	l.v.SetDefault("generation.id_floor", 1001)
	l.v.SetDefault("generation.call_timeout", "2m")

	// Retry defaults
	l.v.SetDefault("retry.max_attempts", 3)
	l.v.SetDefault("retry.base_delay", "1s")
	l.v.SetDefault("retry.max_delay", "30s")
	l.v.SetDefault("retry.jitter_max", "1s")
	l.v.SetDefault("retry.multiplier", 2.0)

	// Store defaults
	l.v.SetDefault("store.driver", "sqlite")
	l.v.SetDefault("store.path", ".ticketlens/tickets.db")

	// Diagnostics defaults
	l.v.SetDefault("diag.capacity", 256)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}
