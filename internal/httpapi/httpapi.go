// Package httpapi carries the Checker Agent's (C12) grading-time entry
// point. The Supervisor's main loop never calls it (strict oracle-stdout
// equality is enough to accept a candidate), but a host judge still needs
// a checker program at grading time for problems with multiple valid
// outputs, so that call lives here rather than in the Supervisor. An HTTP
// transport wrapping this call is out of scope for this module; that
// wire shell is left for whatever host judge embeds it.
package httpapi

import (
	"context"

	"tcsynth/internal/agents/checker"
	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
)

// CheckerResponse is the wire shape of a grading-time checker request's
// result: either NeedsCustom is false (the default whole-word-comparison
// checker suffices) or Source carries a compiled-checker-ready program.
type CheckerResponse struct {
	NeedsCustom bool
	Source      string
	Reason      string
}

// ResolveChecker runs the Checker Agent (C12) for bundle and returns the
// wire-shaped result. A host judge calls this once at grading time,
// independently of SynthesizeSuite.
func ResolveChecker(ctx context.Context, gateway *llmgateway.Gateway, bundle model.ProblemBundle) CheckerResponse {
	needs, reason := checker.DecideNeedsCustomChecker(bundle.Statement)
	if !needs {
		return CheckerResponse{NeedsCustom: false, Reason: reason}
	}
	program := checker.GenerateCheckerProgram(ctx, gateway, bundle)
	return CheckerResponse{NeedsCustom: program.NeedsCustom, Source: program.Source, Reason: program.Reason}
}
