// Package validrunner pipes a candidate input to a compiled validator via
// stdin and interprets its exit status and diagnostic text. Grounded on
// the teacher's process-execution idiom; the error-line heuristic and
// crash classification are new, domain-specific logic.
package validrunner

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tcsynth/internal/model"
	"tcsynth/internal/telemetry"
)

var errorLineRe = regexp.MustCompile(`(?i)line\s+(\d+)`)

// Runner runs a single compiled validator executable against candidate
// inputs via stdin.
type Runner struct {
	Timeout time.Duration
}

// NewRunner builds a Runner with the given per-invocation timeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Runner{Timeout: timeout}
}

// Run streams input to executablePath's stdin and classifies its exit.
func (r *Runner) Run(ctx context.Context, executablePath, input string) model.ValidationResult {
	log := telemetry.Get(telemetry.CategoryValidator)

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, executablePath)
	cmd.Stdin = bytes.NewBufferString(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		log.Warn("validator timed out")
		return model.ValidationResult{Valid: false, ErrorMessage: "validator timed out"}
	}

	if err == nil {
		return model.ValidationResult{Valid: true}
	}

	if crashed(err) {
		log.Error("validator crashed: %s", stderr.String())
		return model.ValidationResult{Valid: false, Crashed: true, ErrorMessage: stderr.String()}
	}

	msg := stderr.String()
	line := 0
	if m := errorLineRe.FindStringSubmatch(msg); len(m) == 2 {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			line = n
		}
	}
	log.Debug("validator rejected input at line %d: %s", line, msg)
	return model.ValidationResult{Valid: false, ErrorLine: line, ErrorMessage: msg}
}

// RunBatch validates each candidate input in order.
func (r *Runner) RunBatch(ctx context.Context, executablePath string, inputs []string) []model.ValidationResult {
	results := make([]model.ValidationResult, len(inputs))
	for i, in := range inputs {
		results[i] = r.Run(ctx, executablePath, in)
	}
	return results
}

// LooksLikeNewlineMismatch reports whether a rejection diagnostic hints at
// an EOLN/whitespace convention mismatch rather than a genuine semantic
// violation — the trigger for the Supervisor's one-shot normalization
// retry.
func LooksLikeNewlineMismatch(errorMessage string) bool {
	lower := strings.ToLower(errorMessage)
	return strings.Contains(lower, "eoln") || strings.Contains(lower, "expected")
}

// crashed reports whether err represents a platform crash signal
// (segmentation fault, access violation) rather than an ordinary
// non-zero exit used as a semantic rejection signal.
func crashed(err error) bool {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	if runtime.GOOS == "windows" {
		// testlib/validator executables exit with 0xC0000005 on access
		// violation when compiled with MinGW/MSVC toolchains.
		return exitErr.ExitCode() == -1073741819 || exitErr.ExitCode() == 3221225477
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return status.Signaled() && (status.Signal() == syscall.SIGSEGV || status.Signal() == syscall.SIGABRT || status.Signal() == syscall.SIGBUS)
}
