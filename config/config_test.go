package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOXELARENA_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 200, cfg.World.TerrainBlocks)
	assert.Equal(t, DepartureBroadcast, cfg.Sync.DeparturePolicy)
	assert.Equal(t, 100*time.Millisecond, cfg.Client.EmitInterval)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
world:
  seed: 42
  terrain_blocks: 12
sync:
  departure_policy: lazy
  write_timeout: 2s
client:
  emit_interval: 250ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, int64(42), cfg.World.Seed)
	assert.Equal(t, 12, cfg.World.TerrainBlocks)
	// 未出现在文件中的字段保留默认值
	assert.Equal(t, 20.0, cfg.World.MaxBlockSize)
	assert.Equal(t, DepartureLazy, cfg.Sync.DeparturePolicy)
	assert.Equal(t, 2*time.Second, cfg.Sync.WriteTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.EmitInterval)
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("VOXELARENA_CONFIG", "")
	t.Setenv("VOXELARENA_ADDR", ":7070")
	t.Setenv("VOXELARENA_SEED", "99")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, int64(99), cfg.World.Seed)
}

func TestFileWinsOverEnv(t *testing.T) {
	t.Setenv("VOXELARENA_ADDR", ":7070")
	path := writeConfig(t, "server:\n  addr: \":9100\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	path := writeConfig(t, "sync:\n  departure_policy: sometimes\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "departure_policy")
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"zero emit interval":  {"client:\n  emit_interval: 0s\n", "client.emit_interval"},
		"negative tick rate":  {"client:\n  tick_rate: -1\n", "client.tick_rate"},
		"negative graph size": {"graph:\n  nodes: -3\n", "graph.nodes"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
