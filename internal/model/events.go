package model

import "time"

// IterationStage names the point in the Supervisor's state machine an
// IterationEvent was emitted from, for the Session Dashboard's (C17)
// display — purely a label, never branched on by the loop itself.
type IterationStage string

const (
	StageGeneratorCompile IterationStage = "generator_compile"
	StageValidatorReady   IterationStage = "validator_ready"
	StageCandidatesFiltered IterationStage = "candidates_filtered"
	StageDiversityCheck   IterationStage = "diversity_check"
	StageSuiteComplete    IterationStage = "suite_complete"
	StageSuitePartial     IterationStage = "suite_partial"
	StageSuiteFailed      IterationStage = "suite_failed"
)

// IterationEvent is one observation the Supervisor publishes as it works,
// for the Session Dashboard (C17) to render. Never read back by the
// Supervisor itself — strictly one-way.
type IterationEvent struct {
	BundleHash      string
	Iteration       int
	Stage           IterationStage
	Accepted        int
	Rejected        int
	Accumulated     int
	TargetCount     int
	DistinctRatio   float64
	UsingMinimalValidator bool
	Detail          string
	Elapsed         time.Duration
}
