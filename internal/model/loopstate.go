package model

import "time"

// LoopState is the Supervisor's mutable per-invocation state. The
// Supervisor exclusively owns this value, the compiled executables it
// references, and the temporary directory they live in; every other
// component is stateless request/response.
type LoopState struct {
	BundleHash string

	Iteration int
	StartTime time.Time

	GeneratorSource  string
	GeneratorCmds    []string
	ValidatorSource  string
	UsingMinimalValidator bool

	GeneratorExecutablePath string
	ValidatorExecutablePath string

	LastValidationErrors []ValidationFeedback
	LastCompileErrors    string

	ConsecutiveSampleRejections int
	ConsecutiveValidatorCompileFailures int

	Accumulated []TestCase

	WorkDir string
}

// ValidationFeedback is one structured piece of feedback fed back to an
// agent's revision prompt: a worked example (or candidate) that failed
// validation, with enough detail (literal + escaped text, line count, per
// line contents) for the model to see exactly what went wrong.
type ValidationFeedback struct {
	Input        string
	InputEscaped string
	LineCount    int
	Lines        []string
	ErrorMessage string
	ErrorLine    int
}

// Elapsed returns the wall-clock time since the loop started.
func (s *LoopState) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}
