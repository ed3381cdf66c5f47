package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, env := range []string{"PORT", "DATABASE_URL", "PUBLIC_DIR"} {
		t.Setenv(env, "")
	}
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, DefaultPublicDir, cfg.Server.PublicDir)
	assert.Equal(t, DefaultDatabaseURL, cfg.Database.URL)
	assert.Equal(t, 30, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15, cfg.Database.MaxIdleConns)
	assert.True(t, cfg.Seed.Enable)
	assert.Equal(t, DefaultFixture, cfg.Seed.Fixture)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("KILOVOLT_TEST_PASSWORD", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t, `
server:
  port: "8081"
  public_dir: ./web
database:
  url: postgres://app:${KILOVOLT_TEST_PASSWORD}@db:5432/kilovolt
  max_open_conns: 5
seed:
  enable: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "./web", cfg.Server.PublicDir)
	assert.Equal(t, "postgres://app:s3cret@db:5432/kilovolt", cfg.Database.URL)
	assert.Equal(t, 5, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15, cfg.Database.MaxIdleConns)
	assert.False(t, cfg.Seed.Enable)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"8081\"\n")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://other:5432/kilovolt")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres://other:5432/kilovolt", cfg.Database.URL)

	t.Setenv("KILOVOLT_SERVER_PORT", "7070")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port, "prefixed variable wins over PORT")
}

func TestLoadConfigBrokenFile(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", ServerConfig{Port: ":8080"}.Addr())
	assert.Equal(t, ":8080", ServerConfig{Port: "8080"}.Addr())
}
