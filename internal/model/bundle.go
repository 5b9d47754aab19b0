// Package model holds the data types shared across the synthesis pipeline:
// the problem bundle handed in by the caller, the format schema inferred
// from it, the generator/validator programs produced by the agents, and the
// test cases produced by the loop.
package model

import "time"

// Example is one worked (input, output) pair supplied with a problem.
type Example struct {
	Input  string
	Output string
}

// ProblemBundle is the input to SynthesizeSuite: everything needed to
// synthesize a test-case suite for one competitive-programming problem.
type ProblemBundle struct {
	Statement   string
	Examples    []Example
	OracleLang  string
	OracleSrc   string
	Constraints string
	// TargetCount is the desired suite size N. Zero returns an empty suite
	// without invoking any agent.
	TargetCount int
}

// DefaultTargetCount is used when a caller does not specify one.
const DefaultTargetCount = 20

// Candidate is a single generated input, already newline-normalized.
type Candidate struct {
	Input   string
	Command string
}

// TestCase is one accepted (input, output) pair.
type TestCase struct {
	Input  string
	Output string
}

// Suite is the result of SynthesizeSuite.
type Suite struct {
	Cases           []TestCase
	Iterations      int
	GeneratorSource string
	ValidatorSource string
	Partial         bool
	PartialReason   string
	Elapsed         time.Duration
}
