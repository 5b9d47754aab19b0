package httpapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
)

type fakeChecker struct{ response string }

func (f *fakeChecker) Name() string { return "fake" }

func (f *fakeChecker) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return f.response, nil
}

func TestResolveCheckerSkipsCustomWhenNoKeywordMatches(t *testing.T) {
	gateway := llmgateway.New(&fakeChecker{})
	resp := ResolveChecker(context.Background(), gateway, model.ProblemBundle{
		Statement: "Given two integers a and b, print their sum.",
	})
	assert.False(t, resp.NeedsCustom)
	assert.Empty(t, resp.Source)
}

func TestResolveCheckerGeneratesCustomWhenKeywordMatches(t *testing.T) {
	gateway := llmgateway.New(&fakeChecker{response: "<<CODE>>\nint main(){}\n<<ENDCODE>>"})
	resp := ResolveChecker(context.Background(), gateway, model.ProblemBundle{
		Statement: "Output any valid topological order of the given DAG.",
	})
	require.True(t, resp.NeedsCustom)
	assert.Contains(t, resp.Source, "int main")
	assert.Contains(t, resp.Reason, "topological order")
}
