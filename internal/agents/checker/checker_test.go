package checker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
)

type fakeBackend struct {
	response string
	err      error
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return f.response, f.err
}

func TestDecideNeedsCustomCheckerDetectsMultiAnswerPhrase(t *testing.T) {
	needs, reason := DecideNeedsCustomChecker("Output any spanning tree of the graph.")
	assert.True(t, needs)
	assert.Contains(t, reason, "spanning tree")
}

func TestDecideNeedsCustomCheckerDefaultsToFalseForSingleAnswerProblems(t *testing.T) {
	needs, reason := DecideNeedsCustomChecker("Compute the sum of the array.")
	assert.False(t, needs)
	assert.Empty(t, reason)
}

func TestGenerateCheckerProgramSkipsGatewayWhenNotNeeded(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{err: assert.AnError})
	prog := GenerateCheckerProgram(context.Background(), gw, model.ProblemBundle{Statement: "Compute the sum."})
	assert.False(t, prog.NeedsCustom)
	assert.Empty(t, prog.Source)
}

func TestGenerateCheckerProgramExtractsSourceWhenNeeded(t *testing.T) {
	response := "<<CODE>>\nint main(int argc, char* argv[]) { registerTestlibCmd(argc, argv); }\n<<ENDCODE>>"
	gw := llmgateway.New(&fakeBackend{response: response})
	prog := GenerateCheckerProgram(context.Background(), gw, model.ProblemBundle{Statement: "print any valid topological order"})
	assert.True(t, prog.NeedsCustom)
	assert.Contains(t, prog.Source, "registerTestlibCmd")
	assert.NotEmpty(t, prog.Reason)
}

func TestReviseCheckerProgramReturnsOriginalOnGatewayFailure(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{err: assert.AnError})
	original := model.CheckerProgram{NeedsCustom: true, Source: "int main(){}", Reason: "r"}
	revised := ReviseCheckerProgram(context.Background(), gw, original, "error")
	assert.Equal(t, original, revised)
}
