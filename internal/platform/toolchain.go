// Package platform detects the native C++ toolchain available on the host
// and resolves the testlib include path, so the Native Compiler (C2) can
// stay platform-agnostic.
package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Toolchain describes a detected C++ compiler.
type Toolchain struct {
	Compiler     string   // e.g. "g++", "clang++"
	BaseFlags    []string // standard + optimization flags
	StaticFlags  []string // flags to prefer static linking, when the platform benefits
	TestlibPaths []string // -I search paths where a testlib.h was found, if any
}

// candidates lists compilers to probe for, in preference order. The first
// one found on PATH wins.
var candidates = []string{"g++", "clang++", "c++"}

// Detect probes PATH for a usable C++ compiler. compilerOverride, when
// non-empty, is tried first and, if absent from PATH, still returned
// as-is (the caller's exec will fail with a clear "not found").
func Detect(compilerOverride string, testlibSearchDirs []string) (*Toolchain, error) {
	compiler := compilerOverride
	if compiler == "" {
		for _, c := range candidates {
			if path, err := exec.LookPath(c); err == nil {
				compiler = path
				break
			}
		}
	}
	if compiler == "" {
		return nil, ErrToolchainMissing
	}

	tc := &Toolchain{
		Compiler:  compiler,
		BaseFlags: []string{"-std=c++17", "-O2", "-Wno-unused-result"},
	}

	if runtime.GOOS == "linux" {
		tc.StaticFlags = []string{"-static"}
	}

	tc.TestlibPaths = findTestlibDirs(testlibSearchDirs)
	return tc, nil
}

func findTestlibDirs(searchDirs []string) []string {
	var found []string
	for _, d := range searchDirs {
		if d == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(d, "testlib.h")); err == nil {
			found = append(found, d)
		}
	}
	return found
}
