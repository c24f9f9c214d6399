package config

import (
	"errors"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `env:"APP_ENV" env-default:"development"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8088"`

	DBType string `env:"STORAGE_BACKEND" env-default:"file"`
	DBDSN  string `env:"POSTGRES_DSN"`

	FileUsers         string `env:"USERS_FILE" env-default:"data/users.json"`
	FileEntries       string `env:"ENTRIES_FILE" env-default:"data/time_entries.json"`
	FileNotifications string `env:"NOTIFICATIONS_FILE" env-default:"data/idle_notifications.json"`
	FilePreferences   string `env:"PREFERENCES_FILE" env-default:"data/time_preferences.json"`

	CacheBackend string `env:"CACHE_BACKEND" env-default:"memory"`
	RedisAddr    string `env:"REDIS_ADDR" env-default:"localhost:6379"`

	AuthServiceURL string `env:"AUTH_SERVICE_URL"`
	LocalAuthToken string `env:"LOCAL_AUTH_TOKEN" env-default:"MOCK-TOKEN"`

	IdleScanSeconds       int `env:"IDLE_SCAN_SECONDS" env-default:"60"`
	CacheReconcileSeconds int `env:"CACHE_RECONCILE_SECONDS" env-default:"300"`
	CacheSnapshotTTLHours int `env:"CACHE_SNAPSHOT_TTL_HOURS" env-default:"24"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load() *Config {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			panic("failed to read config: " + err.Error())
		}
		if err := cfg.Validate(); err != nil {
			panic("Invalid config: " + err.Error())
		}
	})
	return cfg
}

func (c *Config) Validate() error {
	if c.DBType == "postgres" && c.DBDSN == "" {
		return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	if c.DBType != "postgres" && c.DBType != "file" {
		return errors.New("STORAGE_BACKEND must be one of: postgres, file")
	}
	if c.CacheBackend != "redis" && c.CacheBackend != "memory" {
		return errors.New("CACHE_BACKEND must be one of: redis, memory")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.Env != "development" && c.AuthServiceURL == "" {
		return errors.New("AUTH_SERVICE_URL is required outside development")
	}
	if c.IdleScanSeconds <= 0 || c.CacheReconcileSeconds <= 0 {
		return errors.New("scan intervals must be positive")
	}
	return nil
}
