package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_RoundTrip(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.DataDir = t.TempDir()

	require.NoError(t, SaveSettings(cfg.DataDir, Settings{StyleMode: "action_oriented", UseRemote: true}))
	require.NoError(t, ApplySettings(cfg))

	assert.Equal(t, "action_oriented", cfg.Insight.StyleMode)
	assert.True(t, cfg.Insight.UseRemote)
}

func TestSettings_MissingFileKeepsConfig(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.DataDir = t.TempDir()
	cfg.Insight.StyleMode = "reframing"

	require.NoError(t, ApplySettings(cfg))
	assert.Equal(t, "reframing", cfg.Insight.StyleMode)
}

func TestSettings_RejectsUnknownMode(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.DataDir = t.TempDir()
	require.NoError(t, os.WriteFile(SettingsPath(cfg.DataDir), []byte("style_mode: poetry\n"), 0o644))

	err := ApplySettings(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "style_mode")
}
