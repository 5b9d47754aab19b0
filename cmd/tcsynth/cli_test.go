package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tcsynth/internal/model"
)

func writeBundle(t *testing.T, dir string, bundle model.ProblemBundle) string {
	t.Helper()
	path := filepath.Join(dir, "bundle.json")
	data := []byte(`{
		"Statement": "` + bundle.Statement + `",
		"OracleLang": "` + bundle.OracleLang + `",
		"OracleSrc": "",
		"TargetCount": 5
	}`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadBundleParsesJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, model.ProblemBundle{Statement: "sum two ints", OracleLang: "python3"})

	bundle, err := loadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "sum two ints", bundle.Statement)
	assert.Equal(t, "python3", bundle.OracleLang)
	assert.Equal(t, 5, bundle.TargetCount)
}

func TestLoadBundleMissingFileReturnsError(t *testing.T) {
	_, err := loadBundle(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadBundleInvalidJSONReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := loadBundle(path)
	assert.Error(t, err)
}

func TestPrintSuiteWritesJSON(t *testing.T) {
	logger = zap.NewNop()
	err := printSuite(model.Suite{Cases: []model.TestCase{{Input: "1 2\n", Output: "3\n"}}})
	assert.NoError(t, err)
}

func TestLoadConfigQuietFallsBackToDefaults(t *testing.T) {
	cfgPath = filepath.Join(t.TempDir(), "does-not-exist.yaml")
	cfg, err := loadConfigQuiet()
	require.NoError(t, err)
	assert.Equal(t, "tcsynth", cfg.Name)
}
