// Package checker implements the Checker Agent (C12): a keyword heuristic
// over the problem statement deciding whether the problem admits multiple
// valid outputs, and — when it does — synthesis of a testlib-style
// checker. Grounded on spec.md §4.C12 and the original oracle-format
// heuristics; the Supervisor never consumes this checker inside its main
// acceptance loop (see DESIGN.md's Open Question resolution) — it is
// produced for a downstream judge to use at grading time.
package checker

import (
	"context"
	"strings"

	"tcsynth/internal/extract"
	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
	"tcsynth/internal/promptbuilder"
	"tcsynth/internal/telemetry"
)

const generationTemperature = 0.3

// multiAnswerKeywords are phrases that, when present in a problem
// statement, signal the problem may admit more than one correct output.
var multiAnswerKeywords = []string{
	"any valid",
	"any correct",
	"print any",
	"output any",
	"if there are multiple",
	"if multiple",
	"any one of",
	"any permutation",
	"any assignment",
	"any order",
	"spanning tree",
	"topological order",
	"topological sort",
	"any matching",
	"any solution",
}

// DecideNeedsCustomChecker applies the keyword heuristic to statement,
// returning whether a custom checker is warranted and, if so, which
// keyword triggered the decision (used verbatim as the checker prompt's
// stated reason).
func DecideNeedsCustomChecker(statement string) (bool, string) {
	lower := strings.ToLower(statement)
	for _, kw := range multiAnswerKeywords {
		if strings.Contains(lower, kw) {
			return true, "statement phrase \"" + kw + "\" suggests multiple valid outputs"
		}
	}
	return false, ""
}

// GenerateCheckerProgram decides, via DecideNeedsCustomChecker, whether
// bundle's statement needs a custom checker; if not, it returns a program
// with NeedsCustom=false and the default whole-word-comparison checker is
// implied. If so, it calls the gateway with the checker template and
// extracts the resulting source.
func GenerateCheckerProgram(ctx context.Context, gateway *llmgateway.Gateway, bundle model.ProblemBundle) model.CheckerProgram {
	log := telemetry.Get(telemetry.CategoryCheckerAgent)

	needsCustom, reason := DecideNeedsCustomChecker(bundle.Statement)
	if !needsCustom {
		return model.CheckerProgram{NeedsCustom: false}
	}

	prompt := promptbuilder.BuildCheckerPrompt(bundle, reason)
	response, err := gateway.Generate(ctx, prompt, generationTemperature, 8192)
	if err != nil {
		log.Error("checker synthesis: gateway call failed: %v", err)
		return model.CheckerProgram{NeedsCustom: true, Reason: reason}
	}

	source, err := extract.ExtractSource(response)
	if err != nil {
		log.Warn("checker extraction failed: %v", err)
		return model.CheckerProgram{NeedsCustom: true, Reason: reason}
	}

	return model.CheckerProgram{NeedsCustom: true, Source: source, Reason: reason}
}

// ReviseCheckerProgram invokes the revision prompt with a compile-error
// log, symmetric to the generator/validator revision entry points.
func ReviseCheckerProgram(ctx context.Context, gateway *llmgateway.Gateway, program model.CheckerProgram, compileErrors string) model.CheckerProgram {
	log := telemetry.Get(telemetry.CategoryCheckerAgent)

	prompt := promptbuilder.BuildCheckerRevisionPrompt(program.Source, compileErrors)
	response, err := gateway.Generate(ctx, prompt, generationTemperature, 8192)
	if err != nil {
		log.Error("checker revision: gateway call failed: %v", err)
		return program
	}

	source, err := extract.ExtractSource(response)
	if err != nil {
		log.Warn("checker revision extraction failed: %v", err)
		return program
	}

	return model.CheckerProgram{NeedsCustom: true, Source: source, Reason: program.Reason}
}
