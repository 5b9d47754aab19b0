// Package genrunner invokes a compiled generator with CLI arguments and
// captures stdout as a candidate input, enforcing the trailing-newline
// convention. Grounded on the teacher's os/exec.CommandContext idiom,
// specialized to testlib-style generators.
package genrunner

import (
	"bytes"
	"context"
	"hash/fnv"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"tcsynth/internal/model"
	"tcsynth/internal/telemetry"
)

// CandidateResult is one generator invocation's outcome.
type CandidateResult struct {
	Success bool
	Input   string
	Command string
	Error   string
	Elapsed time.Duration
}

// Runner runs a single compiled generator executable with varying
// argument lists.
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

// Run executes executablePath with the tokens of command (minus the
// leading program marker token) as arguments, plus a deterministic seed
// derived from a stable hash of command, and returns the normalized
// candidate input.
func (r *Runner) Run(ctx context.Context, executablePath, command string) CandidateResult {
	log := telemetry.Get(telemetry.CategoryGenerator)

	args := tokenize(command)
	if len(args) > 0 {
		args = args[1:] // drop the program marker token
	}
	args = append(args, "--seed", strconv.FormatUint(stableSeed(command), 10))

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, executablePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		log.Warn("generator command %q timed out", command)
		return CandidateResult{Success: false, Command: command, Error: "timed out", Elapsed: elapsed}
	}
	if err != nil {
		log.Debug("generator command %q failed: %s", command, stderr.String())
		return CandidateResult{Success: false, Command: command, Error: stderr.String(), Elapsed: elapsed}
	}

	input := normalizeTrailingNewline(stdout.String())
	if strings.TrimSpace(input) == "" {
		return CandidateResult{Success: false, Command: command, Error: "EmptyGeneration", Elapsed: elapsed}
	}

	return CandidateResult{Success: true, Input: input, Command: command, Elapsed: elapsed}
}

// RunBatch runs commands in order against executablePath, stopping once
// maxCandidates successful candidates have been produced (or the command
// list is exhausted).
func (r *Runner) RunBatch(ctx context.Context, executablePath string, commands []string, maxCandidates int) []CandidateResult {
	var results []CandidateResult
	produced := 0
	for _, cmd := range commands {
		if maxCandidates > 0 && produced >= maxCandidates {
			break
		}
		res := r.Run(ctx, executablePath, cmd)
		results = append(results, res)
		if res.Success {
			produced++
		}
	}
	return results
}

// Candidates extracts the successful inputs from a batch result, in
// generator insertion order.
func Candidates(results []CandidateResult) []model.Candidate {
	out := make([]model.Candidate, 0, len(results))
	for _, r := range results {
		if r.Success {
			out = append(out, model.Candidate{Input: r.Input, Command: r.Command})
		}
	}
	return out
}

// normalizeTrailingNewline collapses any trailing run of whitespace to
// exactly one newline, per the Candidate invariant.
func normalizeTrailingNewline(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if trimmed == "" {
		return ""
	}
	return trimmed + "\n"
}

func tokenize(command string) []string {
	return strings.Fields(command)
}

// stableSeed hashes command with FNV-1a so identical commands always
// reproduce the same generator seed across runs.
func stableSeed(command string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(command))
	return h.Sum64()
}
