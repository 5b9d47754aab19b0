package compiler

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcsynth/internal/model"
	"tcsynth/internal/platform"
)

func requireCompiler(t *testing.T) *platform.Toolchain {
	t.Helper()
	if _, err := exec.LookPath("g++"); err != nil {
		t.Skip("g++ not available in this environment")
	}
	tc, err := platform.Detect("", nil)
	require.NoError(t, err)
	return tc
}

func TestCompileValidSourceSucceeds(t *testing.T) {
	tc := requireCompiler(t)
	c := New(tc, 10*time.Second)
	dir := t.TempDir()

	res := c.Compile(context.Background(), dir, "gen", model.RoleGenerator, `
#include <cstdio>
int main() { printf("1\n"); return 0; }
`)
	require.True(t, res.Success, res.Diagnostics)
	assert.NotEmpty(t, res.ExecutablePath)
}

func TestCompileInvalidSourceReportsDiagnostics(t *testing.T) {
	tc := requireCompiler(t)
	c := New(tc, 10*time.Second)
	dir := t.TempDir()

	res := c.Compile(context.Background(), dir, "bad", model.RoleValidator, `this is not c++`)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestCompileWithoutToolchainFails(t *testing.T) {
	c := New(nil, 10*time.Second)
	res := c.Compile(context.Background(), t.TempDir(), "gen", model.RoleGenerator, "int main(){}")
	assert.False(t, res.Success)
	assert.Contains(t, res.Diagnostics, "toolchain")
}
