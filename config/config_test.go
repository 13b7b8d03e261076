package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SHELF_ENV",
	"SHELF_LOG_LEVEL",
	"SHELF_STORAGE",
	"SHELF_PATH",
	"SHELF_PEBBLE_DIR",
	"SHELF_PEBBLE_CACHE_SIZE",
	"SHELF_PEBBLE_MAX_OPEN_FILES",
	"SHELF_LOCALE",
	"SHELF_CURRENCY",
}

// clearEnv blanks every shelf variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, StorageBinary, cfg.Storage.Backend)
	assert.Equal(t, "books.db", cfg.Storage.Path)
	assert.Equal(t, "books.pebble", cfg.Storage.PebbleDir)
	assert.Equal(t, int64(8<<20), cfg.Storage.PebbleCacheSize)
	assert.Equal(t, 64, cfg.Storage.PebbleMaxOpenFiles)
	assert.Equal(t, "en-US", cfg.Locale.Locale)
	assert.Empty(t, cfg.Locale.Currency)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHELF_STORAGE=pebble\nSHELF_PEBBLE_DIR=/tmp/shelf\nSHELF_LOCALE=de-DE\n"), 0o600))
	t.Setenv("SHELF_LOCALE", "ja-JP")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoragePebble, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/shelf", cfg.Storage.PebbleDir)
	assert.Equal(t, "ja-JP", cfg.Locale.Locale)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown backend", key: "SHELF_STORAGE", val: "s3"},
		{name: "unknown environment", key: "SHELF_ENV", val: "staging"},
		{name: "unknown log level", key: "SHELF_LOG_LEVEL", val: "loud"},
		{name: "bad currency", key: "SHELF_CURRENCY", val: "usd"},
		{name: "negative cache", key: "SHELF_PEBBLE_CACHE_SIZE", val: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SHELF_TEST_INT", "12")
	assert.Equal(t, 12, getEnvInt("SHELF_TEST_INT", 3))

	t.Setenv("SHELF_TEST_INT", "twelve")
	assert.Equal(t, 3, getEnvInt("SHELF_TEST_INT", 3))
}

func TestConfig_DefaultCurrency(t *testing.T) {
	tests := []struct {
		name    string
		locale  LocaleConfig
		want    string
		wantErr bool
	}{
		{name: "explicit", locale: LocaleConfig{Locale: "en-US", Currency: "GBP"}, want: "GBP"},
		{name: "from us locale", locale: LocaleConfig{Locale: "en-US"}, want: "USD"},
		{name: "from german locale", locale: LocaleConfig{Locale: "de-DE"}, want: "EUR"},
		{name: "from japanese locale", locale: LocaleConfig{Locale: "ja-JP"}, want: "JPY"},
		{name: "unparseable locale", locale: LocaleConfig{Locale: "not a locale!"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Locale: tt.locale}
			got, err := cfg.DefaultCurrency()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
