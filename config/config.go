// Package config reads shelf settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"

	"github.com/davidvella/shelf/currency"
)

// Storage backends.
const (
	StorageBinary = "binary"
	StoragePebble = "pebble"
	StorageMemory = "memory"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Locale  LocaleConfig
}

type AppConfig struct {
	Environment string // development, production
	LogLevel    string
}

type StorageConfig struct {
	Backend            string
	Path               string // binary file
	PebbleDir          string
	PebbleCacheSize    int64
	PebbleMaxOpenFiles int
}

type LocaleConfig struct {
	Locale   string // BCP 47 tag, e.g. en-US
	Currency string // overrides the locale's currency when set
}

// Load reads .env, if present, then the environment. Values already set in
// the environment win over .env.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("SHELF_ENV", "development"),
			LogLevel:    getEnv("SHELF_LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Backend:            getEnv("SHELF_STORAGE", StorageBinary),
			Path:               getEnv("SHELF_PATH", "books.db"),
			PebbleDir:          getEnv("SHELF_PEBBLE_DIR", "books.pebble"),
			PebbleCacheSize:    int64(getEnvInt("SHELF_PEBBLE_CACHE_SIZE", 8<<20)),
			PebbleMaxOpenFiles: getEnvInt("SHELF_PEBBLE_MAX_OPEN_FILES", 64),
		},
		Locale: LocaleConfig{
			Locale:   getEnv("SHELF_LOCALE", "en-US"),
			Currency: getEnv("SHELF_CURRENCY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	return validation.Errors{
		"app":     c.App.Validate(),
		"storage": c.Storage.Validate(),
		"locale":  c.Locale.Validate(),
	}.Filter()
}

func (c AppConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Environment, validation.Required, validation.In("development", "production")),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled")),
	)
}

func (c StorageConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(StorageBinary, StoragePebble, StorageMemory)),
		validation.Field(&c.Path, validation.When(c.Backend == StorageBinary, validation.Required)),
		validation.Field(&c.PebbleDir, validation.When(c.Backend == StoragePebble, validation.Required)),
		validation.Field(&c.PebbleCacheSize, validation.Min(int64(0))),
		validation.Field(&c.PebbleMaxOpenFiles, validation.Min(0)),
	)
}

func (c LocaleConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Locale, validation.Required),
		validation.Field(&c.Currency, validation.By(func(value interface{}) error {
			code, _ := value.(string)
			if code != "" && !currency.IsValid(code) {
				return fmt.Errorf("invalid currency code %q", code)
			}
			return nil
		})),
	)
}

// DefaultCurrency returns the configured currency, or the currency of the
// configured locale.
func (c *Config) DefaultCurrency() (string, error) {
	if c.Locale.Currency != "" {
		return c.Locale.Currency, nil
	}
	return currency.FromLocale(c.Locale.Locale)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
