// Package supervisor implements the Supervisor (C11): the state machine
// that drives the Generator and Validator agents to convergence, runs the
// oracle over surviving candidates, and enforces output diversity. It is
// the only component that owns mutable per-invocation state (LoopState),
// the compiled executables, and the scratch directory they live in; every
// other component it calls is stateless request/response. Grounded on the
// teacher's top-level orchestration loops (the campaign/shard coordination
// shape: sequential high-level phases, each phase internally fanning out
// over a bounded worker pool via golang.org/x/sync/errgroup) generalized
// from "coordinate coding agents" to "coordinate generator/validator/oracle
// agents converging on a test suite".
package supervisor

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tcsynth/internal/agents/generator"
	"tcsynth/internal/agents/validator"
	"tcsynth/internal/compiler"
	"tcsynth/internal/config"
	"tcsynth/internal/formatinfer"
	"tcsynth/internal/genrunner"
	"tcsynth/internal/invariants"
	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
	"tcsynth/internal/oracleanalyzer"
	"tcsynth/internal/platform"
	"tcsynth/internal/retriever"
	"tcsynth/internal/sandbox"
	"tcsynth/internal/store"
	"tcsynth/internal/telemetry"
	"tcsynth/internal/validrunner"
)

// Options configures one SynthesizeSuite invocation, per the External
// Interfaces contract: options = { UseFormatInference, CompileFixAttempts,
// IterationCap, WallClockSeconds }.
type Options struct {
	UseFormatInference bool
	CompileFixAttempts int
	IterationCap       int
	WallClockSeconds   int
}

// DefaultOptions returns the documented defaults: format inference on,
// three compile-fix attempts, a 100-iteration safety cap, a 600s wall clock.
func DefaultOptions() Options {
	return Options{
		UseFormatInference: true,
		CompileFixAttempts: 3,
		IterationCap:       100,
		WallClockSeconds:   600,
	}
}

func (o Options) withDefaults() Options {
	if o.CompileFixAttempts <= 0 {
		o.CompileFixAttempts = 3
	}
	if o.IterationCap <= 0 {
		o.IterationCap = 100
	}
	if o.WallClockSeconds <= 0 {
		o.WallClockSeconds = 600
	}
	return o
}

// Supervisor wires every other component into the iteration loop. Store
// and Retriever are optional collaborators: a nil Store disables
// checkpointing, a nil Retriever disables corpus-precedent retrieval —
// neither ever turns into an error, per C14/C15's degrade-never-fail
// contracts.
type Supervisor struct {
	Gateway     *llmgateway.Gateway
	Compiler    *compiler.Compiler
	GenRunner   *genrunner.Runner
	ValidRunner *validrunner.Runner
	Oracle      *sandbox.Runner
	Store       *store.Store
	Retriever   *retriever.Retriever

	// Events, when non-nil, receives an IterationEvent at each notable
	// state-machine transition for the Session Dashboard (C17) to render.
	// Sends are best-effort and never block the loop: a full or absent
	// channel simply drops the event.
	Events chan<- model.IterationEvent

	WorkerPoolSize                 int
	DiversityWarnRatio             float64
	MaxConsecutiveSampleRejections int
}

// emit publishes ev on Events without blocking the caller, per C17's
// purely-observational contract.
func (s *Supervisor) emit(ev model.IterationEvent) {
	if s.Events == nil {
		return
	}
	select {
	case s.Events <- ev:
	default:
	}
}

// New builds a Supervisor from config-derived collaborators. tc may be nil
// (toolchain not detected); every Compile call then fails fast with
// model.ErrToolchainMissing, and SynthesizeSuite surfaces that as its
// terminal error before attempting any agent call.
func New(cfg *config.Config, gateway *llmgateway.Gateway, tc *platform.Toolchain, st *store.Store, rtr *retriever.Retriever) *Supervisor {
	pool := cfg.Execution.WorkerPoolSize
	if pool <= 0 {
		pool = runtime.NumCPU()
	}
	diversityWarnRatio := cfg.Loop.DiversityFloor
	if diversityWarnRatio <= 0 {
		diversityWarnRatio = 0.2
	}
	maxRejects := cfg.Loop.MaxConsecutiveRejects
	if maxRejects <= 0 {
		maxRejects = 3
	}

	return &Supervisor{
		Gateway:     gateway,
		Compiler:    compiler.New(tc, cfg.GetCompileTimeout()),
		GenRunner:   genrunner.NewRunner(cfg.GetRunTimeout()),
		ValidRunner: validrunner.NewRunner(cfg.GetRunTimeout()),
		Oracle:      sandbox.NewRunner(cfg.GetRunTimeout(), cfg.Execution.MaxOutputBytes),
		Store:       st,
		Retriever:   rtr,

		WorkerPoolSize:                 pool,
		DiversityWarnRatio:             diversityWarnRatio,
		MaxConsecutiveSampleRejections: maxRejects,
	}
}

func (s *Supervisor) poolLimit() int {
	if s.WorkerPoolSize <= 0 {
		return runtime.NumCPU()
	}
	return s.WorkerPoolSize
}

// SynthesizeSuite runs the Supervisor's 13-step state machine to
// convergence (or a terminal condition) for bundle, producing up to
// bundle.TargetCount test cases. A zero TargetCount returns an empty suite
// without invoking any agent. Apart from a failure to create its scratch
// directory, the only errors returned are the taxonomy's terminal ones:
// ErrToolchainMissing, ErrNoCandidates, ErrOracleAllFailed.
// Budget exhaustion is not an error — it yields a Suite marked Partial.
func (s *Supervisor) SynthesizeSuite(ctx context.Context, bundle model.ProblemBundle, opts Options) (model.Suite, error) {
	log := telemetry.Get(telemetry.CategorySupervisor)
	opts = opts.withDefaults()

	if bundle.TargetCount <= 0 {
		return model.Suite{}, nil
	}
	if s.Compiler.Toolchain == nil {
		return model.Suite{}, model.ErrToolchainMissing
	}

	bundleHash := store.BundleHash(bundle)
	state := s.resumeOrInit(bundleHash, bundle)

	// Namespaced by a random UUID rather than a PID or counter so two
	// invocations racing against the same bundle (e.g. a resumed run
	// started concurrently with a fresh one) never collide on WorkDir.
	workDir, err := os.MkdirTemp("", "tcsynth-loop-"+uuid.NewString()+"-*")
	if err != nil {
		return model.Suite{}, fmt.Errorf("supervisor: create work directory: %w", err)
	}
	state.WorkDir = workDir
	defer os.RemoveAll(workDir)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(opts.WallClockSeconds)*time.Second)
	defer cancel()

	schema := s.inferSchema(ctx, bundle, opts)

	for {
		// 1. Budget check.
		if state.Iteration >= opts.IterationCap || state.Elapsed() >= time.Duration(opts.WallClockSeconds)*time.Second {
			log.Warn("suite %s: budget exhausted at iteration %d (%d accumulated)", bundleHash, state.Iteration, len(state.Accumulated))
			if len(state.Accumulated) == 0 {
				s.emit(model.IterationEvent{BundleHash: bundleHash, Iteration: state.Iteration, Stage: model.StageSuiteFailed, Detail: model.ErrNoCandidates.Error(), Elapsed: state.Elapsed()})
				return model.Suite{}, model.ErrNoCandidates
			}
			s.emit(model.IterationEvent{BundleHash: bundleHash, Iteration: state.Iteration, Stage: model.StageSuitePartial, Accumulated: len(state.Accumulated), TargetCount: bundle.TargetCount, Detail: "BudgetExhausted", Elapsed: state.Elapsed()})
			return s.partialSuite(state, "BudgetExhausted"), nil
		}
		state.Iteration++

		// 2. Generator synthesis/revision.
		s.synthesizeOrReviseGenerator(ctx, bundle, state)

		// 3. Compile generator with auto-fix.
		if !s.compileWithAutoFix(ctx, state, model.RoleGenerator, opts.CompileFixAttempts) {
			log.Warn("suite %s: generator persistently failed to compile, skipping iteration %d", bundleHash, state.Iteration)
			s.emit(model.IterationEvent{BundleHash: bundleHash, Iteration: state.Iteration, Stage: model.StageGeneratorCompile, Detail: "compile failed", Elapsed: state.Elapsed()})
			s.checkpoint(bundleHash, state)
			continue
		}
		s.emit(model.IterationEvent{BundleHash: bundleHash, Iteration: state.Iteration, Stage: model.StageGeneratorCompile, Detail: "compiled", Elapsed: state.Elapsed()})

		// 4. Validator synthesis/revision.
		s.synthesizeOrReviseValidator(ctx, bundle, schema, state)

		// 5. Compile validator with auto-fix (one revise-and-recompile attempt, then minimal-validator fallback).
		s.compileValidatorWithFallback(ctx, bundle, state)

		// 6. Validator sanity on worked examples.
		if !s.sanityCheckValidator(ctx, bundle, state) {
			s.checkpoint(bundleHash, state)
			continue
		}
		s.emit(model.IterationEvent{BundleHash: bundleHash, Iteration: state.Iteration, Stage: model.StageValidatorReady, UsingMinimalValidator: state.UsingMinimalValidator, Elapsed: state.Elapsed()})

		// 7. Candidate generation (bounded concurrent fan-out).
		candidates := s.generateCandidates(ctx, state, bundle.TargetCount)

		// 8. Candidate filtering (bounded concurrent fan-out, with normalization retry).
		accepted, rejectedFeedback := s.filterCandidates(ctx, state, candidates)
		s.emit(model.IterationEvent{
			BundleHash: bundleHash, Iteration: state.Iteration, Stage: model.StageCandidatesFiltered,
			Accepted: len(accepted), Rejected: len(rejectedFeedback), TargetCount: bundle.TargetCount, Elapsed: state.Elapsed(),
		})

		// 9. Progress decision.
		state.Accumulated = append(state.Accumulated, accepted...)
		if len(state.Accumulated) > bundle.TargetCount {
			state.Accumulated = state.Accumulated[:bundle.TargetCount]
		}

		if len(state.Accumulated) >= bundle.TargetCount {
			// proceed to oracle run below
		} else if len(rejectedFeedback) == 0 {
			state.LastValidationErrors = nil
			state.LastCompileErrors = ""
			s.checkpoint(bundleHash, state)
			continue
		} else {
			state.LastValidationErrors = rejectedFeedback
			s.checkpoint(bundleHash, state)
			continue
		}

		// 10. Oracle run.
		testCases, oracleFailed := s.runOracle(ctx, bundle, state.Accumulated)
		if oracleFailed {
			s.emit(model.IterationEvent{BundleHash: bundleHash, Iteration: state.Iteration, Stage: model.StageSuiteFailed, Detail: model.ErrOracleAllFailed.Error(), Elapsed: state.Elapsed()})
			return model.Suite{}, model.ErrOracleAllFailed
		}

		// 11. Diversity enforcement.
		outputs := make([]string, len(testCases))
		for i, c := range testCases {
			outputs[i] = c.Output
		}
		ratio := 0.0
		if len(outputs) > 0 {
			ratio = float64(distinctOutputCount(outputs)) / float64(len(outputs))
		}
		s.emit(model.IterationEvent{BundleHash: bundleHash, Iteration: state.Iteration, Stage: model.StageDiversityCheck, DistinctRatio: ratio, Accumulated: len(testCases), TargetCount: bundle.TargetCount, Elapsed: state.Elapsed()})

		if s.rejectForDiversity(ctx, bundleHash, bundle, testCases, state) {
			state.Accumulated = nil
			s.checkpoint(bundleHash, state)
			continue
		}

		// 12/13. Checkpoint the finished suite and return it.
		suite := model.Suite{
			Cases:           testCases,
			Iterations:      state.Iteration,
			GeneratorSource: state.GeneratorSource,
			ValidatorSource: state.ValidatorSource,
			Elapsed:         state.Elapsed(),
		}
		if len(testCases) < bundle.TargetCount {
			// The oracle dropped some (but not all) candidates; §8's
			// testable property #3 requires a suite smaller than the
			// target to be marked partial rather than silently returned
			// as if it were complete.
			suite.Partial = true
			suite.PartialReason = "OracleDroppedCandidates"
		}
		s.saveSuite(bundleHash, suite)
		s.Retriever.Add(ctx, bundle.Statement, schema)
		completionStage := model.StageSuiteComplete
		if suite.Partial {
			completionStage = model.StageSuitePartial
		}
		s.emit(model.IterationEvent{BundleHash: bundleHash, Iteration: state.Iteration, Stage: completionStage, Accumulated: len(testCases), TargetCount: bundle.TargetCount, Detail: suite.PartialReason, Elapsed: state.Elapsed()})
		return suite, nil
	}
}

// resumeOrInit restores a checkpointed LoopState when one exists for
// bundleHash, otherwise starts fresh. A resumed state still recompiles its
// generator/validator from their restored source on this iteration, since
// the executables themselves do not survive across process invocations.
func (s *Supervisor) resumeOrInit(bundleHash string, bundle model.ProblemBundle) *model.LoopState {
	log := telemetry.Get(telemetry.CategorySupervisor)

	if s.Store != nil {
		if resumed, ok := s.Store.Resume(bundleHash); ok {
			log.Info("suite %s: resumed from checkpoint at iteration %d", bundleHash, resumed.Iteration)
			state := resumed
			state.GeneratorExecutablePath = ""
			state.ValidatorExecutablePath = ""
			return &state
		}
	}
	return &model.LoopState{BundleHash: bundleHash, StartTime: time.Now()}
}

func (s *Supervisor) checkpoint(bundleHash string, state *model.LoopState) {
	if s.Store == nil {
		return
	}
	log := telemetry.Get(telemetry.CategorySupervisor)
	if err := s.Store.SaveCheckpoint(bundleHash, *state); err != nil {
		log.Warn("suite %s: checkpoint failed, continuing without it: %v", bundleHash, err)
	}
}

func (s *Supervisor) saveSuite(bundleHash string, suite model.Suite) {
	if s.Store == nil {
		return
	}
	log := telemetry.Get(telemetry.CategorySupervisor)
	if err := s.Store.SaveSuite(bundleHash, suite); err != nil {
		log.Warn("suite %s: save failed: %v", bundleHash, err)
	}
}

func (s *Supervisor) partialSuite(state *model.LoopState, reason string) model.Suite {
	cases := make([]model.TestCase, 0, len(state.Accumulated))
	for _, c := range state.Accumulated {
		cases = append(cases, model.TestCase{Input: c.Input})
	}
	return model.Suite{
		Cases:           cases,
		Iterations:      state.Iteration,
		GeneratorSource: state.GeneratorSource,
		ValidatorSource: state.ValidatorSource,
		Partial:         true,
		PartialReason:   reason,
		Elapsed:         state.Elapsed(),
	}
}

// inferSchema runs C13 then C8 once per invocation (the schema informs
// every iteration's validator prompt, not just the first).
func (s *Supervisor) inferSchema(ctx context.Context, bundle model.ProblemBundle, opts Options) model.FormatSchema {
	if !opts.UseFormatInference {
		return model.FallbackSchema()
	}

	oracleHint := oracleanalyzer.AnalyzeOracle(ctx, s.Gateway, bundle.OracleSrc)

	var neighbors []model.CorpusNeighbor
	if s.Retriever != nil {
		neighbors = s.Retriever.Retrieve(ctx, bundle.Statement, 3)
	}

	return formatinfer.Infer(ctx, s.Gateway, bundle, neighbors, oracleHint)
}

// synthesizeOrReviseGenerator implements step 2: synthesize once, then
// revise only when the previous iteration left an error log behind.
func (s *Supervisor) synthesizeOrReviseGenerator(ctx context.Context, bundle model.ProblemBundle, state *model.LoopState) {
	if state.GeneratorSource == "" {
		program := generator.GenerateGeneratorProgram(ctx, s.Gateway, bundle)
		state.GeneratorSource = program.Source
		state.GeneratorCmds = program.Commands
		return
	}
	if len(state.LastValidationErrors) == 0 && state.LastCompileErrors == "" {
		return
	}
	program := generator.ReviseGeneratorProgram(ctx, s.Gateway, state.GeneratorSource, state.LastValidationErrors, state.LastCompileErrors)
	state.GeneratorSource = program.Source
	state.GeneratorCmds = program.Commands
}

func (s *Supervisor) synthesizeOrReviseValidator(ctx context.Context, bundle model.ProblemBundle, schema model.FormatSchema, state *model.LoopState) {
	if state.ValidatorSource == "" {
		state.ValidatorSource = validator.GenerateValidatorProgram(ctx, s.Gateway, bundle, schema).Source
		return
	}
	if state.ConsecutiveSampleRejections == 0 {
		return
	}
	sampleInputs, sampleResults := s.sampleResultsFor(ctx, bundle, state.ValidatorExecutablePath)
	state.ValidatorSource = validator.ReviseValidatorProgram(ctx, s.Gateway, state.ValidatorSource, sampleInputs, sampleResults, state.LastCompileErrors).Source
}

// compileWithAutoFix implements steps 3/5's shared retry shape: compile;
// on failure, revise the given role's source against the diagnostics and
// recompile, up to maxAttempts total tries.
func (s *Supervisor) compileWithAutoFix(ctx context.Context, state *model.LoopState, role model.Role, maxAttempts int) bool {
	source := state.GeneratorSource
	name := "generator"
	if role == model.RoleValidator {
		source = state.ValidatorSource
		name = "validator"
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result := s.Compiler.Compile(ctx, state.WorkDir, name, role, source)
		if result.Success {
			if role == model.RoleGenerator {
				state.GeneratorExecutablePath = result.ExecutablePath
				state.GeneratorSource = source
			} else {
				state.ValidatorExecutablePath = result.ExecutablePath
				state.ValidatorSource = source
			}
			return true
		}

		state.LastCompileErrors = result.Diagnostics
		if attempt == maxAttempts {
			break
		}
		if role == model.RoleGenerator {
			revised := generator.ReviseGeneratorProgram(ctx, s.Gateway, source, state.LastValidationErrors, result.Diagnostics)
			source = revised.Source
			state.GeneratorCmds = revised.Commands
		} else {
			revised := validator.ReviseValidatorProgram(ctx, s.Gateway, source, nil, nil, result.Diagnostics)
			source = revised.Source
		}
	}
	return false
}

// compileValidatorWithFallback implements step 5: one compile attempt,
// then one revise-and-recompile attempt, then the minimal-validator
// fallback built directly from the bundle's worked examples.
func (s *Supervisor) compileValidatorWithFallback(ctx context.Context, bundle model.ProblemBundle, state *model.LoopState) {
	log := telemetry.Get(telemetry.CategorySupervisor)

	if s.compileWithAutoFix(ctx, state, model.RoleValidator, 2) {
		return
	}

	log.Warn("suite %s: validator persistently failed to compile, falling back to the minimal validator", state.BundleHash)
	state.UsingMinimalValidator = true
	state.ValidatorSource = validator.BuildMinimalValidator(exampleInputs(bundle.Examples)).Source
	result := s.Compiler.Compile(ctx, state.WorkDir, "validator", model.RoleValidator, state.ValidatorSource)
	if result.Success {
		state.ValidatorExecutablePath = result.ExecutablePath
	}
}

func exampleInputs(examples []model.Example) []string {
	inputs := make([]string, len(examples))
	for i, e := range examples {
		inputs[i] = e.Input
	}
	return inputs
}

// sanityCheckValidator implements step 6: run the compiled validator
// against every worked example, build structured feedback for whichever
// were rejected, and force the minimal validator after three consecutive
// iterations of persistent rejection.
func (s *Supervisor) sanityCheckValidator(ctx context.Context, bundle model.ProblemBundle, state *model.LoopState) bool {
	log := telemetry.Get(telemetry.CategorySupervisor)

	if len(bundle.Examples) == 0 || state.ValidatorExecutablePath == "" {
		state.ConsecutiveSampleRejections = 0
		return true
	}

	anyRejected := false
	var feedback []model.ValidationFeedback
	for _, ex := range bundle.Examples {
		result := s.ValidRunner.Run(ctx, state.ValidatorExecutablePath, ex.Input)
		if result.Valid {
			continue
		}
		anyRejected = true
		feedback = append(feedback, buildValidationFeedback(ex.Input, result))
	}

	if !anyRejected {
		state.ConsecutiveSampleRejections = 0
		return true
	}

	state.ConsecutiveSampleRejections++
	state.LastValidationErrors = feedback
	log.Warn("suite %s: validator rejected %d worked example(s) (consecutive=%d)", state.BundleHash, len(feedback), state.ConsecutiveSampleRejections)

	if state.ConsecutiveSampleRejections >= s.consecutiveRejectLimit() {
		log.Warn("suite %s: forcing minimal validator after %d consecutive sample rejections", state.BundleHash, state.ConsecutiveSampleRejections)
		state.UsingMinimalValidator = true
		state.ValidatorSource = validator.BuildMinimalValidator(exampleInputs(bundle.Examples)).Source
		result := s.Compiler.Compile(ctx, state.WorkDir, "validator", model.RoleValidator, state.ValidatorSource)
		if result.Success {
			state.ValidatorExecutablePath = result.ExecutablePath
			state.ConsecutiveSampleRejections = 0
			return true
		}
	}
	return false
}

func (s *Supervisor) consecutiveRejectLimit() int {
	if s.MaxConsecutiveSampleRejections <= 0 {
		return 3
	}
	return s.MaxConsecutiveSampleRejections
}

func buildValidationFeedback(input string, result model.ValidationResult) model.ValidationFeedback {
	lines := strings.Split(input, "\n")
	return model.ValidationFeedback{
		Input:        input,
		InputEscaped: fmt.Sprintf("%q", input),
		LineCount:    len(lines),
		Lines:        lines,
		ErrorMessage: result.ErrorMessage,
		ErrorLine:    result.ErrorLine,
	}
}

// sampleResultsFor re-runs the validator over the worked examples for the
// validator-revision prompt's per-sample diagnostics.
func (s *Supervisor) sampleResultsFor(ctx context.Context, bundle model.ProblemBundle, execPath string) ([]string, []model.ValidationResult) {
	inputs := exampleInputs(bundle.Examples)
	if execPath == "" {
		return inputs, make([]model.ValidationResult, len(inputs))
	}
	results := make([]model.ValidationResult, len(inputs))
	for i, in := range inputs {
		results[i] = s.ValidRunner.Run(ctx, execPath, in)
	}
	return inputs, results
}

// generateCandidates implements step 7: run the compiled generator
// concurrently over up to 2*targetCount of its commands, bounded by the
// worker pool. Results land back in command order regardless of
// completion order, per the suite's insertion-order invariant.
func (s *Supervisor) generateCandidates(ctx context.Context, state *model.LoopState, targetCount int) []genrunner.CandidateResult {
	commands := state.GeneratorCmds
	want := 2 * targetCount
	if want > 0 && len(commands) > want {
		commands = commands[:want]
	}

	results := make([]genrunner.CandidateResult, len(commands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolLimit())
	for i, cmd := range commands {
		i, cmd := i, cmd
		g.Go(func() error {
			results[i] = s.GenRunner.Run(gctx, state.GeneratorExecutablePath, cmd)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// filterCandidates implements step 8: validate each generated candidate
// concurrently, attempting a one-shot newline-normalization retry on any
// rejection whose diagnostic suggests an EOLN/whitespace mismatch.
// Accepted candidates are returned in generator order; rejected ones are
// reduced to ValidationFeedback for the next revision prompt.
func (s *Supervisor) filterCandidates(ctx context.Context, state *model.LoopState, candidates []genrunner.CandidateResult) ([]model.TestCase, []model.ValidationFeedback) {
	type verdict struct {
		accepted bool
		input    string
		feedback model.ValidationFeedback
	}
	verdicts := make([]verdict, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolLimit())
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if !c.Success {
				return nil
			}
			result := s.ValidRunner.Run(gctx, state.ValidatorExecutablePath, c.Input)
			if result.Valid {
				verdicts[i] = verdict{accepted: true, input: c.Input}
				return nil
			}
			if validrunner.LooksLikeNewlineMismatch(result.ErrorMessage) {
				retryInput := toggleTrailingNewline(c.Input)
				retryResult := s.ValidRunner.Run(gctx, state.ValidatorExecutablePath, retryInput)
				if retryResult.Valid {
					verdicts[i] = verdict{accepted: true, input: retryInput}
					return nil
				}
			}
			verdicts[i] = verdict{feedback: buildValidationFeedback(c.Input, result)}
			return nil
		})
	}
	_ = g.Wait()

	var accepted []model.TestCase
	var rejected []model.ValidationFeedback
	for _, v := range verdicts {
		if v.accepted {
			accepted = append(accepted, model.TestCase{Input: v.input})
		} else if v.feedback.Input != "" {
			rejected = append(rejected, v.feedback)
		}
	}
	return accepted, rejected
}

func toggleTrailingNewline(input string) string {
	if strings.HasSuffix(input, "\n") {
		return strings.TrimRight(input, "\n")
	}
	return input + "\n"
}

// runOracle implements step 10: run the oracle concurrently against every
// accumulated candidate, pairing stdout with input and dropping pairs
// whose run failed. oracleFailed reports the terminal OracleAllFailed
// condition: a non-empty candidate set that produced zero surviving pairs.
func (s *Supervisor) runOracle(ctx context.Context, bundle model.ProblemBundle, accumulated []model.TestCase) (cases []model.TestCase, oracleFailed bool) {
	results := make([]model.RunResult, len(accumulated))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolLimit())
	for i, tc := range accumulated {
		i, tc := i, tc
		g.Go(func() error {
			results[i] = s.Oracle.Run(gctx, bundle.OracleLang, bundle.OracleSrc, tc.Input)
			return nil
		})
	}
	_ = g.Wait()

	cases = make([]model.TestCase, 0, len(accumulated))
	for i, r := range results {
		if r.Success {
			cases = append(cases, model.TestCase{Input: accumulated[i].Input, Output: r.Stdout})
		}
	}
	return cases, len(accumulated) > 0 && len(cases) == 0
}

// rejectForDiversity implements step 11. It evaluates C16's diversity rule
// over this iteration's surviving outputs; on a violation it builds a
// structured feedback entry naming the repeated output and reports true so
// the caller discards the accumulator and revises the generator. With no
// violation it accepts, first logging a warning when the distinct-output
// ratio is below the low-diversity warning ratio.
func (s *Supervisor) rejectForDiversity(ctx context.Context, bundleHash string, bundle model.ProblemBundle, cases []model.TestCase, state *model.LoopState) bool {
	log := telemetry.Get(telemetry.CategorySupervisor)

	outputs := make([]string, len(cases))
	for i, c := range cases {
		outputs[i] = c.Output
	}

	facts := invariants.Facts{
		SuiteID:             bundleHash,
		Outputs:             outputs,
		TargetCount:         bundle.TargetCount,
		ReservedIdentifiers: model.ReservedIdentifiers,
		DeclaredVariables:   nil, // C9's post-processing already renamed away any collision before this point
		DeclaredOptions:     declaredOptionNames(state.GeneratorSource),
		CommandFlags:        commandFlagNames(state.GeneratorCmds),
	}

	violations, err := invariants.Evaluate(ctx, facts)
	if err != nil {
		log.Warn("suite %s: invariant evaluation failed, accepting suite as-is: %v", bundleHash, err)
		return false
	}

	for _, v := range violations {
		if v.Kind != "DiversityFloorViolation" {
			continue
		}
		log.Warn("suite %s: diversity floor violated: %s", bundleHash, v.Detail)
		state.LastValidationErrors = []model.ValidationFeedback{{
			Input:        "",
			ErrorMessage: fmt.Sprintf("insufficient output diversity: %s; revise the generator to cover more branches of the problem", v.Detail),
		}}
		return true
	}

	distinct := distinctOutputCount(outputs)
	if len(outputs) > 0 && float64(distinct)/float64(len(outputs)) < s.diversityWarnRatio() {
		log.Warn("suite %s: low output diversity (%d distinct of %d), accepting anyway", bundleHash, distinct, len(outputs))
	}
	return false
}

func (s *Supervisor) diversityWarnRatio() float64 {
	if s.DiversityWarnRatio <= 0 {
		return 0.2
	}
	return s.DiversityWarnRatio
}

func distinctOutputCount(outputs []string) int {
	seen := make(map[string]bool, len(outputs))
	for _, o := range outputs {
		seen[strings.TrimRight(o, " \t\r\n")] = true
	}
	return len(seen)
}

// declaredOptionNames and commandFlagNames feed C16's reserved-identifier
// and undeclared-flag rules with real facts from this iteration's
// generator, even though C9's own post-processing already guarantees both
// rules hold by construction — this is the defense-in-depth confirmation
// pass, not the primary enforcement mechanism.
// optFlagRe mirrors generator.go's own unexported opt<T>("name", ...)
// pattern; duplicated here (rather than exported from that package) since
// this is a secondary, defense-in-depth reading of the same source text.
var optFlagRe = regexp.MustCompile(`\bopt\s*<[^>]*>\s*\(\s*"([a-zA-Z_][a-zA-Z0-9_]*)"`)

func declaredOptionNames(source string) []string {
	matches := optFlagRe.FindAllStringSubmatch(source, -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}

func commandFlagNames(commands []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range commands {
		for _, tok := range strings.Fields(cmd) {
			if !strings.HasPrefix(tok, "-") {
				continue
			}
			flag := strings.TrimLeft(tok, "-")
			if flag == "" || flag == "seed" || seen[flag] {
				continue
			}
			seen[flag] = true
			names = append(names, flag)
		}
	}
	sort.Strings(names)
	return names
}
