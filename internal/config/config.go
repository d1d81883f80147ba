// Package config handles application configuration using Viper.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/centennial-infotech/portal/internal/errors"
	"github.com/centennial-infotech/portal/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. PORTAL_API_URL.
const EnvPrefix = "PORTAL"

// DirName is the per-user directory under $HOME.
const DirName = ".portal"

// Config holds the application configuration.
type Config struct {
	API           APIConfig           `mapstructure:"api" yaml:"api" json:"api"`
	Storage       StorageConfig       `mapstructure:"storage" yaml:"storage" json:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications" json:"notifications"`
	Log           LogConfig           `mapstructure:"log" yaml:"log" json:"log"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`
	Metrics       MetricsConfig       `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// APIConfig describes the backend.
type APIConfig struct {
	URL     string        `mapstructure:"url" yaml:"url" json:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Retries int           `mapstructure:"retries" yaml:"retries" json:"retries"`
}

// StorageConfig selects where the session is persisted.
type StorageConfig struct {
	Backend   string      `mapstructure:"backend" yaml:"backend" json:"backend"`
	Path      string      `mapstructure:"path" yaml:"path" json:"path"`
	Namespace string      `mapstructure:"namespace" yaml:"namespace" json:"namespace"`
	Redis     RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`
}

// RedisConfig is used when storage.backend is redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty" json:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db" json:"db"`
}

// NotificationsConfig controls the notification poller.
type NotificationsConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval" json:"interval"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
}

// MetricsConfig controls the prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`
}

// StorageOptions converts the storage section for storage.Open.
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{
		Backend:   c.Storage.Backend,
		Path:      c.Storage.Path,
		Namespace: c.Storage.Namespace,
		Redis: storage.RedisConfig{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
		},
	}
}

// Loader reads configuration from file, .env and environment.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader for configPath, or the default location when empty.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v, path: configPath}
}

// Viper exposes the underlying instance so commands can bind flags.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads the config file (a missing file is fine) and returns the merged result.
func (l *Loader) Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if l.path != "" {
		l.v.SetConfigFile(l.path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigRead, "cannot locate home directory", err)
		}
		l.v.AddConfigPath(dir)
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to read configuration", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to decode configuration", err)
	}

	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the file that was read, or the default location if none was.
func (l *Loader) Path() string {
	if used := l.v.ConfigFileUsed(); used != "" {
		return used
	}
	if l.path != "" {
		return l.path
	}
	dir, err := Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Get returns a single merged value by dotted key.
func (l *Loader) Get(key string) (any, bool) {
	if !l.v.IsSet(key) {
		return nil, false
	}
	return l.v.Get(key), true
}

// Validate rejects values that would fail later in a less obvious way.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return errors.NewConfigInvalidError("api.url", "must not be empty")
	}
	if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		return errors.NewConfigInvalidError("api.url", fmt.Sprintf("%q is not an http(s) URL", c.API.URL))
	}
	if c.API.Timeout <= 0 {
		return errors.NewConfigInvalidError("api.timeout", "must be positive")
	}
	if c.API.Retries < 0 {
		return errors.NewConfigInvalidError("api.retries", "must not be negative")
	}
	switch strings.ToLower(c.Storage.Backend) {
	case storage.BackendFile, storage.BackendMemory:
	case storage.BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.NewConfigInvalidError("storage.redis.addr", "required for the redis backend")
		}
	default:
		return errors.NewConfigInvalidError("storage.backend", fmt.Sprintf("unknown backend %q", c.Storage.Backend))
	}
	if c.Notifications.Interval < time.Second {
		return errors.NewConfigInvalidError("notifications.interval", "must be at least 1s")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.NewConfigInvalidError("telemetry.sample_rate", "must be between 0 and 1")
	}
	return nil
}

// Dir returns ~/.portal.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

func setDefaults(v *viper.Viper) {
	dir, _ := Dir()

	v.SetDefault("api.url", "http://localhost:5000")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.retries", 2)
	v.SetDefault("storage.backend", storage.BackendFile)
	v.SetDefault("storage.path", filepath.Join(dir, "session"))
	v.SetDefault("storage.namespace", "default")
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("notifications.interval", 60*time.Second)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", filepath.Join(dir, "portal.log"))
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("metrics.addr", "")
}

// loadDotEnv reads .env from the working directory. Variables already set win.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrap(errors.ErrCodeConfigRead, "failed to read .env", err)
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
