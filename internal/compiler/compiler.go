// Package compiler compiles generator/validator/checker source into a
// native executable using a detected C++ toolchain. Grounded on the
// teacher's sandboxed-exec idiom, generalized from "run a shell command"
// to "compile then exec the artifact".
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"tcsynth/internal/model"
	"tcsynth/internal/platform"
	"tcsynth/internal/telemetry"
)

// Compiler compiles C++ source into native executables in a scratch
// directory owned by the caller (the Supervisor, per LoopState).
type Compiler struct {
	Toolchain *platform.Toolchain
	Timeout   time.Duration
}

// New builds a Compiler bound to an already-detected toolchain.
func New(tc *platform.Toolchain, timeout time.Duration) *Compiler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Compiler{Toolchain: tc, Timeout: timeout}
}

// Compile writes source to workDir/<name>.cpp and compiles it to
// workDir/<name>(.exe on windows). role only affects logging/diagnostics
// labeling; the compile flags are role-independent.
func (c *Compiler) Compile(ctx context.Context, workDir, name string, role model.Role, source string) model.CompileResult {
	log := telemetry.Get(telemetry.CategoryCompiler)

	if c.Toolchain == nil {
		log.Error("compile requested with no detected toolchain (role=%s)", role)
		return model.CompileResult{Success: false, Diagnostics: model.ErrToolchainMissing.Error()}
	}

	srcPath := filepath.Join(workDir, name+".cpp")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return model.CompileResult{Success: false, Diagnostics: fmt.Sprintf("write source: %v", err)}
	}

	outPath := filepath.Join(workDir, name)
	if strings.Contains(c.Toolchain.Compiler, ".exe") || filepath.Ext(c.Toolchain.Compiler) == ".exe" {
		outPath += ".exe"
	}

	args := append([]string{}, c.Toolchain.BaseFlags...)
	for _, p := range c.Toolchain.TestlibPaths {
		args = append(args, "-I"+p)
	}
	if hasTestlibHeader(source) {
		args = append(args, c.Toolchain.StaticFlags...)
	}
	args = append(args, srcPath, "-o", outPath)

	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Toolchain.Compiler, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		log.Warn("compile timed out for %s (role=%s)", name, role)
		return model.CompileResult{Success: false, Diagnostics: fmt.Sprintf("compile timed out after %s", c.Timeout)}
	}
	if err != nil {
		log.Debug("compile failed for %s (role=%s): %s", name, role, stderr.String())
		return model.CompileResult{Success: false, Diagnostics: stderr.String()}
	}

	log.Info("compiled %s (role=%s) -> %s", name, role, outPath)
	return model.CompileResult{Success: true, ExecutablePath: outPath, Diagnostics: stderr.String()}
}

// hasTestlibHeader reports whether source includes testlib.h, the signal
// C2 uses to decide whether to prefer static linking.
func hasTestlibHeader(source string) bool {
	return strings.Contains(source, "testlib.h")
}
