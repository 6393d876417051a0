// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"patrol.module/internal/constants"
)

// Config holds the process settings read at startup.
type Config struct {
	Verbosity      int    `mapstructure:"verbosity"`
	DumpPath       string `mapstructure:"dump_path"`
	CrashReporting bool   `mapstructure:"crash_reporting"`
	LogFile        string `mapstructure:"log_file"`
	LogFormat      string `mapstructure:"log_format"`
	MaxLogEntries  int    `mapstructure:"max_log_entries"`

	// Runtime only, never persisted.
	HomePath string `mapstructure:"-"`
	SafeMode bool   `mapstructure:"-"`
}

// Loader reads the configuration from one home directory.
type Loader struct {
	v        *viper.Viper
	home     string
	safeMode bool
	changed  map[string]interface{}
}

// DefaultHome returns the user configuration directory for patrol.
func DefaultHome() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, constants.AppName)
}

// NewLoader prepares a loader for home (DefaultHome when empty). In safe
// mode the configuration file is never read.
func NewLoader(home string, safeMode bool) *Loader {
	if home == "" {
		home = DefaultHome()
	}

	v := viper.New()
	v.SetDefault("verbosity", 0)
	v.SetDefault("dump_path", os.TempDir())
	v.SetDefault("crash_reporting", true)
	v.SetDefault("log_file", "")
	v.SetDefault("log_format", "text")
	v.SetDefault("max_log_entries", 2000)
	v.SetConfigName("config")
	v.AddConfigPath(home)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("dump_path", constants.EnvPrefix+"_DUMP_PATH")

	return &Loader{v: v, home: home, safeMode: safeMode, changed: make(map[string]interface{})}
}

// Home returns the directory the loader reads from.
func (l *Loader) Home() string { return l.home }

// Load reads defaults, the config file (unless in safe mode) and the
// environment. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	if !l.safeMode {
		if err := l.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.HomePath = l.home
	cfg.SafeMode = l.safeMode
	return &cfg, nil
}

// Watch re-reads the config file whenever it changes and passes the result
// to onChange. Nothing is watched in safe mode or without a config file.
func (l *Loader) Watch(onChange func(*Config)) {
	if l.safeMode || l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil || ValidateConfig(cfg) != nil {
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// IsSet reports whether key has a value.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// Get returns the value of key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set stores value under key without saving.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
	l.changed[key] = value
}

// Save writes the config file in the home directory: the settings already
// in the file plus those changed with Set. Defaults and values taken from
// the environment are not written.
func (l *Loader) Save() error {
	if l.safeMode {
		return fmt.Errorf("configuration cannot be saved in safe mode")
	}
	if err := os.MkdirAll(l.home, 0700); err != nil {
		return err
	}

	out := viper.New()
	path := l.v.ConfigFileUsed()
	if path == "" {
		path = filepath.Join(l.home, "config.json")
	} else {
		out.SetConfigFile(path)
		if err := out.ReadInConfig(); err != nil {
			return err
		}
	}
	for key, value := range l.changed {
		out.Set(key, value)
	}
	return out.WriteConfigAs(path)
}

// Keys lists the persisted settings.
func Keys() []string {
	return []string{"verbosity", "dump_path", "crash_reporting", "log_file", "log_format", "max_log_entries"}
}
