package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithSecret(t *testing.T) {
	t.Setenv("MOVIEMANIA_AUTH__JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.AllowQueryToken)
	assert.Empty(t, cfg.Notifications.UDPAddr, "udp feed is opt-in")
}

func TestLoadUDPFeedFromEnv(t *testing.T) {
	t.Setenv("MOVIEMANIA_AUTH__JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("MOVIEMANIA_NOTIFICATIONS__UDP_ADDR", ":7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Notifications.UDPAddr)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("MOVIEMANIA_AUTH__JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moviemania.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
storage:
  backend: sqlite
  sqlite_path: /tmp/mm.db
auth:
  jwt_secret: from-file
  token_ttl: 4h
`), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "9090")
	t.Setenv("MOVIEMANIA_SERVER__CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "legacy PORT overrides the file")
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 4*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Auth.JWTSecret = "secret"
	require.NoError(t, cfg.Validate())

	cfg.Storage.Backend = "mongo"
	cfg.Bootstrap.Username = "root"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `storage.backend "mongo"`)
	assert.Contains(t, err.Error(), "bootstrap.username and bootstrap.password")
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "auth.jwt_secret", envTransform("MOVIEMANIA_AUTH__JWT_SECRET"))
	assert.Equal(t, "env", envTransform("MOVIEMANIA_ENV"))
	assert.Equal(t, "", envTransform(ConfigPathEnvVar))
	assert.Equal(t, "server.port", legacyTransform("PORT"))
	assert.Equal(t, "", legacyTransform("HOME"))
}

func TestProcessSliceFields(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, k.Set("server.cors_origins", " https://a.example , ,https://b.example"))

	require.NoError(t, processSliceFields(k))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, k.Strings("server.cors_origins"))

	require.NoError(t, k.Set("server.cors_origins", []string{"https://c.example,d"}))
	require.NoError(t, processSliceFields(k))
	assert.Equal(t, []string{"https://c.example,d"}, k.Strings("server.cors_origins"), "lists from YAML are kept as-is")
}
