package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dom/doctree/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, "Administrador", cfg.AdminName)
	assert.Equal(t, filepath.Join("data", "documentos.json"), cfg.DocumentsPath())
	assert.Equal(t, filepath.Join("data", "usuarios.json"), cfg.UsersPath())
	assert.False(t, cfg.CookieSecure)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9100")
	t.Setenv("DATA_DIR", "/var/lib/doctree")
	t.Setenv("SESSION_TTL_SECONDS", "120")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "/var/lib/doctree/documentos.json", cfg.DocumentsPath())
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "zero ttl", env: map[string]string{"JWT_SECRET": "s", "SESSION_TTL_SECONDS": "0"}},
		{name: "negative sweep", env: map[string]string{"JWT_SECRET": "s", "SESSION_SWEEP_SECONDS": "-5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
