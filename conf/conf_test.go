package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "forgehub", cfg.Server.Name)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.Server.RequestTimeout)
	assert.Equal(t, "X-Forge-Trace-Id", cfg.Server.Trace.TraceHeader)
	assert.Equal(t, "X-Forge-Request-Id", cfg.Server.Trace.RequestHeader)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Log.Outputs)

	assert.Equal(t, "memory", cfg.Storage.Mode)
	assert.Equal(t, "sqlite", cfg.Storage.Dialect)

	assert.Equal(t, "memory", cfg.Bus.Mode)
	assert.Equal(t, "forgehub:events", cfg.Bus.ChannelPrefix)

	assert.Equal(t, "git.forgehub.dev", cfg.Repos.GitURL)

	assert.True(t, cfg.GC.Enabled)
	assert.Equal(t, "0 * * * *", cfg.GC.CRON)
	assert.Equal(t, 720*time.Hour, cfg.GC.Retention)
	assert.Equal(t, 200, cfg.GC.BatchSize)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := `
server:
  port: 9090
  base_path: /forge
  cors:
    enabled: true
    allowed_origins: ["https://app.example.com"]
storage:
  mode: sql
  dialect: sqlite
  dsn: forge.db
gc:
  enabled: false
  retention: 24h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forgehub.yaml"), []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/forge", cfg.Server.BasePath)
	assert.True(t, cfg.Server.CORS.Enabled)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORS.AllowedOrigins)

	assert.Equal(t, "sql", cfg.Storage.Mode)
	assert.Equal(t, "forge.db", cfg.Storage.DSN)

	assert.False(t, cfg.GC.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.GC.Retention)

	assert.Equal(t, "forgehub", cfg.Server.Name, "defaults survive partial files")
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("FORGEHUB_SERVER_PORT", "9001")
	t.Setenv("FORGEHUB_STORAGE_MODE", "sql")
	t.Setenv("FORGEHUB_REPOS_GIT_URL", "git.corp.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "sql", cfg.Storage.Mode)
	assert.Equal(t, "git.corp.internal", cfg.Repos.GitURL)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "forgehub.yaml"), []byte("server: ["), 0o600))

	_, err := Load()
	require.Error(t, err)
}

func chdir(t *testing.T, dir string) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
