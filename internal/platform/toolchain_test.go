package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFindsExplicitOverride(t *testing.T) {
	tc, err := Detect("/usr/bin/does-not-exist-g++", nil)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/does-not-exist-g++", tc.Compiler)
}

func TestDetectFindsTestlibHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "testlib.h"), []byte("// stub"), 0o644))

	tc, err := Detect("g++", []string{dir, "/nonexistent"})
	require.NoError(t, err)
	assert.Contains(t, tc.TestlibPaths, dir)
}

func TestDetectReturnsErrorWhenNothingFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := Detect("", nil)
	assert.ErrorIs(t, err, ErrToolchainMissing)
}
