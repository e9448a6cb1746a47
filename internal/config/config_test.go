package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("AMAZING_MARVIN_API_KEY", "")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Report.DefaultDays)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, time.Hour, cfg.CleanupGrace())
	assert.True(t, errors.Is(cfg.Validate(), ErrMissingAPIKey))
}

func TestLoadFile_ParsesTOMLAndEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[marvin]
api_key = "from-file"
max_retries = 1

[cache]
ttl_minutes = 3

[report]
top_projects = 10
timezone = "Europe/Stockholm"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	t.Setenv("AMAZING_MARVIN_API_KEY", "from-env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Marvin.APIKey)
	assert.Equal(t, 1, cfg.Marvin.MaxRetries)
	assert.Equal(t, 30, cfg.Marvin.TimeoutSeconds, "unset keys keep defaults")
	assert.Equal(t, 3*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 10, cfg.Report.TopProjects)
	assert.Equal(t, "Europe/Stockholm", cfg.Location().String())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[marvin\napi_key = "), 0600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Marvin.APIKey = "k"
	cfg.Report.Timezone = "Mars/Olympus"

	assert.Error(t, cfg.Validate())
	assert.Equal(t, time.Local, cfg.Location())
}

func TestWriteDefault_DoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	require.NoError(t, WriteDefault(path))

	t.Setenv("AMAZING_MARVIN_API_KEY", "")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Digest, cfg.Digest)

	require.NoError(t, os.WriteFile(path, []byte("[report]\ndefault_days = 3\n"), 0600))
	require.NoError(t, WriteDefault(path))
	cfg, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Report.DefaultDays)
}
