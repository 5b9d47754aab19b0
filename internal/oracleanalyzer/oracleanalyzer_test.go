package oracleanalyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"tcsynth/internal/llmgateway"
)

type fakeBackend struct {
	response string
	err      error
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return f.response, f.err
}

const sampleLLMResponse = `MULTIPLE_TEST_CASES: yes
TEST_COUNT_VARIABLE: t
INPUT_STRUCTURE:
- Line 1: single integer n
- Line 2: array of n integers

VARIABLE_RELATIONSHIPS:
- n determines array size

SPECIAL_NOTES:
- values are space-separated
`

func TestAnalyzeOracleParsesLLMResponse(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{response: sampleLLMResponse})
	analysis := AnalyzeOracle(context.Background(), gw, "t = int(input())")

	assert.Equal(t, "llm", analysis.Source)
	assert.True(t, analysis.MultipleTestCases)
	assert.Equal(t, "t", analysis.TestCountVariable)
	assert.Len(t, analysis.InputLines, 2)
	assert.Equal(t, []string{"n determines array size"}, analysis.VariableRelationships)
	assert.Equal(t, []string{"values are space-separated"}, analysis.SpecialNotes)
}

func TestAnalyzeOracleFallsBackToRegexOnGatewayFailure(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{err: assert.AnError})
	source := "t = int(input())\nfor _ in range(t):\n    n = int(input())\n    arr = list(map(int, input().split()))\n"
	analysis := AnalyzeOracle(context.Background(), gw, source)

	assert.Equal(t, "regex", analysis.Source)
	assert.True(t, analysis.MultipleTestCases)
	assert.Equal(t, "t", analysis.TestCountVariable)
	assert.Len(t, analysis.InputLines, 3)
}

func TestAnalyzeOracleFallsBackOnUnparsableLLMResponse(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{response: "not the expected protocol at all"})
	analysis := AnalyzeOracle(context.Background(), gw, "n = int(input())")
	assert.Equal(t, "regex", analysis.Source)
}

func TestAnalyzeOracleWithEmptySourceReturnsZeroValue(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{response: sampleLLMResponse})
	analysis := AnalyzeOracle(context.Background(), gw, "")
	assert.Equal(t, "", analysis.Source)
	assert.Empty(t, analysis.InputLines)
}

func TestDescribeInputLineClassifiesSingleInteger(t *testing.T) {
	assert.Equal(t, "single integer (variable: n)", describeInputLine("n = int(input())"))
}

func TestDescribeInputLineClassifiesIntArray(t *testing.T) {
	assert.Equal(t, "array of integers (variable: arr), space-separated", describeInputLine("arr = list(map(int, input().split()))"))
}

func TestDescribeInputLineClassifiesMultipleIntegers(t *testing.T) {
	assert.Equal(t, "2 integers (a, b), space-separated", describeInputLine("a, b = map(int, input().split())"))
}
