package supervisor

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tcsynth/internal/compiler"
	"tcsynth/internal/genrunner"
	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
	"tcsynth/internal/platform"
	"tcsynth/internal/sandbox"
	"tcsynth/internal/validrunner"
)

// SynthesizeSuite fans generator, validator, and oracle calls out over
// bounded errgroup worker pools; verify none of those goroutines outlive
// the test that started them.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedBackend answers each Generate call by inspecting the prompt for
// a marker unique to one agent role, so a single fake backend can stand in
// for the generator, validator, format-inference, and oracle-analysis
// calls a full SynthesizeSuite run makes.
type scriptedBackend struct {
	generatorSource string
	validatorSource string
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	switch {
	case strings.Contains(prompt, "Return ONLY valid JSON"):
		return `{"algorithm_type":"two_integers","input_structure":{"lines":[{"line_number":1,"type":"two_integers","variable_names":["a","b"]}],"total_lines":1}}`, nil
	case strings.Contains(prompt, "MULTIPLE_TEST_CASES"):
		return "MULTIPLE_TEST_CASES: no\nTEST_COUNT_VARIABLE: none\nINPUT_STRUCTURE:\n- Line 1: two integers\n", nil
	case strings.Contains(prompt, "registerValidation") || strings.Contains(prompt, "Validator Agent"):
		return "<<CODE>>\n" + b.validatorSource + "\n<<ENDCODE>>", nil
	default:
		return "<<CODE>>\n" + b.generatorSource + "\n<<ENDCODE>>", nil
	}
}

const sumGeneratorSource = `#include "testlib.h"
#include <bits/stdc++.h>
using namespace std;
int main(int argc, char* argv[]) {
	registerGen(argc, argv, 1);
	int a = opt<int>("a", 1);
	int b = opt<int>("b", 1);
	printf("%d %d\n", a, b);
}
/* COMMANDS:
./gen -a 1 -b 1
./gen -a 2 -b 5
./gen -a 100 -b 200
./gen -a 0 -b 0
*/`

const sumValidatorSource = `#include "testlib.h"
using namespace std;
int main(int argc, char* argv[]) {
	registerValidation(argc, argv);
	inf.readInt(-1000, 1000, "a");
	inf.readSpace();
	inf.readInt(-1000, 1000, "b");
	inf.readEoln();
	inf.readEof();
}`

const sumOracleSource = `a, b = map(int, input().split())
print(a + b)
`

func requireToolchain(t *testing.T) *platform.Toolchain {
	t.Helper()
	if _, err := exec.LookPath("g++"); err != nil {
		t.Skip("g++ not available in this environment")
	}
	tc, err := platform.Detect("", nil)
	require.NoError(t, err)
	return tc
}

func newTestSupervisor(t *testing.T, tc *platform.Toolchain, gateway *llmgateway.Gateway) *Supervisor {
	t.Helper()
	return &Supervisor{
		Gateway:                        gateway,
		Compiler:                       compiler.New(tc, 10*time.Second),
		GenRunner:                      genrunner.NewRunner(5 * time.Second),
		ValidRunner:                    validrunner.NewRunner(5 * time.Second),
		Oracle:                         sandbox.NewRunner(5*time.Second, 1<<20),
		WorkerPoolSize:                 2,
		DiversityWarnRatio:             0.2,
		MaxConsecutiveSampleRejections: 3,
	}
}

func TestSynthesizeSuiteZeroTargetCountReturnsEmptySuite(t *testing.T) {
	s := &Supervisor{}
	suite, err := s.SynthesizeSuite(context.Background(), model.ProblemBundle{TargetCount: 0}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, suite.Cases)
}

func TestSynthesizeSuiteNoToolchainReturnsErrToolchainMissing(t *testing.T) {
	s := newTestSupervisor(t, nil, llmgateway.New(&scriptedBackend{}))
	_, err := s.SynthesizeSuite(context.Background(), model.ProblemBundle{TargetCount: 5}, DefaultOptions())
	assert.ErrorIs(t, err, model.ErrToolchainMissing)
}

// TestSynthesizeSuiteSumOfTwoIntegers exercises scenario S1 end to end: a
// trivial "sum of two integers" problem should converge to a full suite of
// correctly-checked (input, output) pairs within a handful of iterations.
func TestSynthesizeSuiteSumOfTwoIntegers(t *testing.T) {
	tc := requireToolchain(t)
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available in this environment")
	}

	gateway := llmgateway.New(&scriptedBackend{
		generatorSource: sumGeneratorSource,
		validatorSource: sumValidatorSource,
	})
	s := newTestSupervisor(t, tc, gateway)

	bundle := model.ProblemBundle{
		Statement:   "Given two integers a and b, print their sum.",
		Examples:    []model.Example{{Input: "1 1\n", Output: "2\n"}},
		OracleLang:  "python3",
		OracleSrc:   sumOracleSource,
		TargetCount: 3,
	}

	opts := DefaultOptions()
	opts.IterationCap = 10
	opts.WallClockSeconds = 60

	suite, err := s.SynthesizeSuite(context.Background(), bundle, opts)
	require.NoError(t, err)
	require.Len(t, suite.Cases, 3)
	assert.False(t, suite.Partial)

	for _, c := range suite.Cases {
		fields := strings.Fields(c.Input)
		require.Len(t, fields, 2)
	}
}

// TestSynthesizeSuiteBudgetExhaustionWithNoCandidatesReturnsErrNoCandidates
// exercises budget exhaustion with an empty accumulator: a generator that
// never compiles exhausts the iteration cap, so instead of a partial suite
// the terminal error is ErrNoCandidates.
func TestSynthesizeSuiteBudgetExhaustionWithNoCandidatesReturnsErrNoCandidates(t *testing.T) {
	tc := requireToolchain(t)

	gateway := llmgateway.New(&scriptedBackend{
		generatorSource: "this is not valid c++ at all",
		validatorSource: sumValidatorSource,
	})
	s := newTestSupervisor(t, tc, gateway)

	bundle := model.ProblemBundle{
		Statement:   "stmt",
		OracleLang:  "python3",
		OracleSrc:   sumOracleSource,
		TargetCount: 3,
	}

	opts := DefaultOptions()
	opts.IterationCap = 2
	opts.CompileFixAttempts = 1
	opts.WallClockSeconds = 30

	_, err := s.SynthesizeSuite(context.Background(), bundle, opts)
	assert.ErrorIs(t, err, model.ErrNoCandidates)
}

func TestDefaultOptionsMatchesDocumentedDefaults(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.UseFormatInference)
	assert.Equal(t, 3, opts.CompileFixAttempts)
	assert.Equal(t, 100, opts.IterationCap)
	assert.Equal(t, 600, opts.WallClockSeconds)
}

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	opts := Options{}.withDefaults()
	// A false UseFormatInference cannot be told apart from an unset one, so
	// withDefaults leaves it as given and fills only the numeric fields.
	want := DefaultOptions()
	want.UseFormatInference = false
	assert.Equal(t, want, opts)
}

func TestDeclaredOptionNamesExtractsOptDeclarations(t *testing.T) {
	names := declaredOptionNames(sumGeneratorSource)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestCommandFlagNamesIgnoresSeedFlag(t *testing.T) {
	names := commandFlagNames([]string{"./gen -a 1 -b 1 -seed 42", "./gen -a 2 -b 3"})
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestDistinctOutputCountTrimsTrailingWhitespace(t *testing.T) {
	assert.Equal(t, 1, distinctOutputCount([]string{"4\n", "4", "4\r\n"}))
	assert.Equal(t, 2, distinctOutputCount([]string{"4\n", "5\n"}))
}

func TestToggleTrailingNewlineAddsOrRemoves(t *testing.T) {
	assert.Equal(t, "1 2", toggleTrailingNewline("1 2\n"))
	assert.Equal(t, "1 2\n", toggleTrailingNewline("1 2"))
}
