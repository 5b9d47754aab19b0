package model

import "time"

// RunResult is the typed outcome of running a compiled program as a
// generator or an oracle: a subprocess always returns one of these, never
// an exception.
type RunResult struct {
	Success  bool
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	ExitCode int
}

// ValidationResult is the Validator Runner's (C4) verdict on one candidate.
type ValidationResult struct {
	Valid        bool
	ErrorLine    int // 0 when unknown
	ErrorMessage string
	Crashed      bool // segfault/access-violation rather than a semantic reject
}

// CompileResult is the Native Compiler's (C2) outcome.
type CompileResult struct {
	Success        bool
	ExecutablePath string
	Diagnostics    string
}

// OracleAnalysis is the Oracle Analyzer's (C13) best-effort read of the
// oracle's expected input shape. A zero value (Source == "") means no
// analysis is available and callers should treat format inference as
// running from the bare statement alone.
type OracleAnalysis struct {
	MultipleTestCases    bool
	TestCountVariable    string
	InputLines           []string
	VariableRelationships []string
	SpecialNotes         []string
	Source               string // "llm" or "regex"
}

// CorpusNeighbor is one retrieved few-shot precedent from the Corpus
// Retriever (C15).
type CorpusNeighbor struct {
	StatementExcerpt string
	FormatSchema     FormatSchema
	Score            float64
}
