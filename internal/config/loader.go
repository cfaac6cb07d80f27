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
		envPrefix: "CRASHTRACK",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "CRASHTRACK",
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
// 2. Environment variables (CRASHTRACK_*)
// 3. Project config (.crashtrack/config.yaml in current directory)
// 4. User config (~/.config/crashtrack/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".crashtrack")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "crashtrack"))
		}
	}

	// Read config file (ignore not found)
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
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("receiver.socket_path", "")
	l.v.SetDefault("receiver.resolve_frames", "receiver")
	l.v.SetDefault("receiver.resolve_timeout", "10s")
	l.v.SetDefault("receiver.additional_files", []string{})
	l.v.SetDefault("receiver.enrich_host_info", true)

	l.v.SetDefault("emitter.collect_stacktrace", true)
	l.v.SetDefault("emitter.max_frames", 64)

	l.v.SetDefault("upload.endpoint", "file://./crashtrack-reports")
	l.v.SetDefault("upload.api_key", "")
	l.v.SetDefault("upload.timeout", "30s")

	l.v.SetDefault("spool.dir", ".crashtrack/spool")
	l.v.SetDefault("spool.sweep_interval", "1m")

	l.v.SetDefault("store.path", ".crashtrack/crashes.db")

	l.v.SetDefault("intake.addr", "127.0.0.1:8095")
	l.v.SetDefault("intake.dir", ".crashtrack/intake")
}
