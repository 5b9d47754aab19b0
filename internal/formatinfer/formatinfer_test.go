package formatinfer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
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

func TestInferReturnsValidatedSchemaOnSuccess(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{response: sampleSchemaJSON})
	schema := Infer(context.Background(), gw, model.ProblemBundle{Statement: "stmt"}, nil, model.OracleAnalysis{})
	assert.Equal(t, "graph", schema.AlgorithmType)
	assert.NoError(t, schema.Validate())
}

func TestInferFallsBackOnGatewayFailure(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{err: errors.New("boom")})
	schema := Infer(context.Background(), gw, model.ProblemBundle{Statement: "stmt"}, nil, model.OracleAnalysis{})
	if diff := cmp.Diff(model.FallbackSchema(), schema); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestInferFallsBackOnUndecodableResponse(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{response: "not json at all"})
	schema := Infer(context.Background(), gw, model.ProblemBundle{Statement: "stmt"}, nil, model.OracleAnalysis{})
	if diff := cmp.Diff(model.FallbackSchema(), schema); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestInferFallsBackOnInvalidSchema(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{response: `{"has_test_count": true, "input_structure": {"lines": []}}`})
	schema := Infer(context.Background(), gw, model.ProblemBundle{Statement: "stmt"}, nil, model.OracleAnalysis{})
	if diff := cmp.Diff(model.FallbackSchema(), schema); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}
