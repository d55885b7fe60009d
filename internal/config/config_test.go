package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "EMLFS_SCHEME", "EMLFS_CACHE_MAX_ENTRIES", "EMLFS_CACHE_VALIDATE_MTIME", "EMLFS_SANITIZE_HTML", "EMLFS_METRICS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, &Config{
		LogLevel:           "info",
		Scheme:             "email",
		CacheMaxEntries:    0,
		CacheValidateMTime: true,
		SanitizeHTML:       false,
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EMLFS_SCHEME", "mailfs")
	t.Setenv("EMLFS_CACHE_MAX_ENTRIES", "64")
	t.Setenv("EMLFS_CACHE_VALIDATE_MTIME", "false")
	t.Setenv("EMLFS_SANITIZE_HTML", "1")
	t.Setenv("EMLFS_METRICS_ADDR", "127.0.0.1:9100")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "mailfs", cfg.Scheme)
	assert.Equal(t, 64, cfg.CacheMaxEntries)
	assert.False(t, cfg.CacheValidateMTime)
	assert.True(t, cfg.SanitizeHTML)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestLoadConfig_SchemeLowered(t *testing.T) {
	t.Setenv("EMLFS_SCHEME", "Email")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "email", cfg.Scheme)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("EMLFS_CACHE_MAX_ENTRIES", "lots")
	t.Setenv("EMLFS_CACHE_VALIDATE_MTIME", "maybe")
	t.Setenv("LOG_LEVEL", "chatty")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.CacheMaxEntries)
	assert.True(t, cfg.CacheValidateMTime)
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{Scheme: "email"}},
		{name: "scheme with digits", cfg: Config{Scheme: "mail+fs2"}},
		{name: "empty scheme", cfg: Config{Scheme: ""}, wantErr: "not a valid URI scheme"},
		{name: "scheme with colon", cfg: Config{Scheme: "em:ail"}, wantErr: "not a valid URI scheme"},
		{name: "leading digit", cfg: Config{Scheme: "1mail"}, wantErr: "not a valid URI scheme"},
		{name: "file scheme", cfg: Config{Scheme: "file"}, wantErr: "must not be"},
		{name: "file scheme upper case", cfg: Config{Scheme: "FILE"}, wantErr: "must not be"},
		{name: "negative cache bound", cfg: Config{Scheme: "email", CacheMaxEntries: -1}, wantErr: "EMLFS_CACHE_MAX_ENTRIES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
