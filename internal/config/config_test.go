package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.LLM.APIKey, "default config must never carry a literal API key")
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tcsynth", cfg.Name)
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key-value")
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "test-key-value", cfg.LLM.APIKey)
}

func TestSaveNeverWritesAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "super-secret"
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret")
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Provider = "not-a-real-provider"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveBudgets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Execution.WorkerPoolSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Loop.MaxIterations = -1
	assert.Error(t, cfg.Validate())
}

func TestTimeoutHelpersFallBackOnBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "not-a-duration"
	cfg.Execution.CompileTimeout = "not-a-duration"
	cfg.Execution.RunTimeout = "not-a-duration"
	cfg.Loop.MaxWallClock = "not-a-duration"

	assert.Equal(t, 120e9, float64(cfg.GetLLMTimeout()))
	assert.Equal(t, 20e9, float64(cfg.GetCompileTimeout()))
	assert.Equal(t, 5e9, float64(cfg.GetRunTimeout()))
	assert.Equal(t, 600e9, float64(cfg.GetMaxWallClock()))
}
