package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWritesFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, InitLogger(Options{File: path, Level: "info"}))

	Named("world").Infof("player %s joined", "A")
	Log.Debug("hidden below info")
	SyncLogger()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "player A joined")
	assert.Contains(t, string(b), "world")
	assert.NotContains(t, string(b), "hidden below info")
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })
	assert.Error(t, InitLogger(Options{Level: "chatty"}))
}
