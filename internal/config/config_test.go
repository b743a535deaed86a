package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
name = "test"
tick_rate = "33ms"
ordering = "graph"

[[schedule]]
phase = "update"
system = "script"
priority = 0.2
after = ["movement"]
run_if = "not paused"

[inspector]
enabled = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Engine.Name)
	assert.Equal(t, 33*time.Millisecond, cfg.Engine.TickRate)
	assert.Equal(t, "graph", cfg.Engine.Ordering)
	assert.Equal(t, 1024, cfg.Engine.InitialCapacity, "default kept")
	assert.NotZero(t, cfg.Engine.StartTime)

	require.Len(t, cfg.Schedule, 1)
	s := cfg.Schedule[0]
	require.NotNil(t, s.Priority)
	assert.Equal(t, 0.2, *s.Priority)
	assert.Equal(t, []string{"movement"}, s.After)
	assert.Equal(t, "not paused", s.RunIf)

	assert.True(t, cfg.Inspector.Enabled)
	assert.Equal(t, "127.0.0.1:7070", cfg.Inspector.BindAddress)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load("../../config/engine.toml")
	require.NoError(t, err)
	assert.Equal(t, "graph", cfg.Engine.Ordering)
	assert.NotEmpty(t, cfg.Schedule)
}
