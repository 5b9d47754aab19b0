package llmgateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	name string
	text string
	err  error
}

func (s *stubClient) Name() string { return s.name }
func (s *stubClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return s.text, s.err
}

func TestGatewayReturnsPrimaryOnSuccess(t *testing.T) {
	g := New(&stubClient{name: "primary", text: "hello"})
	text, err := g.Generate(context.Background(), "prompt", 0.5, 100)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestGatewayFallsBackOnPrimaryFailure(t *testing.T) {
	g := New(
		&stubClient{name: "primary", err: errors.New("boom")},
		&stubClient{name: "fallback", text: "rescued"},
	)
	text, err := g.Generate(context.Background(), "prompt", 0.5, 100)
	require.NoError(t, err)
	assert.Equal(t, "rescued", text)
}

func TestGatewayReturnsAllBackendsFailedWhenExhausted(t *testing.T) {
	g := New(
		&stubClient{name: "primary", err: errors.New("boom1")},
		&stubClient{name: "fallback", err: errors.New("boom2")},
	)
	_, err := g.Generate(context.Background(), "prompt", 0.5, 100)
	assert.ErrorIs(t, err, ErrAllBackendsFailed)
}
