package validator

import (
	"context"
	"strings"
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

const missingRegistrationValidator = `#include "testlib.h"
using namespace std;
int main(int argc, char* argv[]) {
	int n = inf.readInt();
	quitf(_ok, "valid");
	return;
}`

func TestGenerateValidatorProgramAppliesPostProcessing(t *testing.T) {
	response := "<<CODE>>\n" + missingRegistrationValidator + "\n<<ENDCODE>>"
	gw := llmgateway.New(&fakeBackend{response: response})
	prog := GenerateValidatorProgram(context.Background(), gw, model.ProblemBundle{}, model.FallbackSchema())

	assert.Contains(t, prog.Source, "registerValidation(argc, argv);")
	assert.NotContains(t, prog.Source, "quitf(_ok")
	assert.Contains(t, prog.Source, "return 0;")
}

func TestGenerateValidatorProgramFallsBackOnGatewayFailure(t *testing.T) {
	gw := llmgateway.New(&fakeBackend{err: assert.AnError})
	prog := GenerateValidatorProgram(context.Background(), gw, model.ProblemBundle{}, model.FallbackSchema())
	assert.Empty(t, prog.Source)
}

func TestEnsureRegistrationCallNoOpWhenPresent(t *testing.T) {
	src := "int main(int argc, char* argv[]) {\n\tregisterValidation(argc, argv);\n\treturn 0;\n}"
	assert.Equal(t, src, ensureRegistrationCall(src))
}

func TestStripOkQuitPrimitiveRemovesCall(t *testing.T) {
	out := stripOkQuitPrimitive(`quitf(_ok, "all good");`)
	assert.Empty(t, out)
}

func TestCompleteBareReturnsFillsInZero(t *testing.T) {
	assert.Equal(t, "return 0;", completeBareReturns("return;"))
}

func TestBalanceBracesDropsSurplusClosers(t *testing.T) {
	assert.Equal(t, "int main() { return 0; }", balanceBraces("int main() { return 0; }}}"))
}

func TestBuildMinimalValidatorDerivesShapeFromFirstSample(t *testing.T) {
	prog := BuildMinimalValidator([]string{"3 4\n1 2 3\n"})
	assert.Contains(t, prog.Source, "registerValidation(argc, argv);")

	lines := strings.Count(prog.Source, "inf.readToken();")
	assert.Equal(t, 5, lines)
	assert.Equal(t, 2, strings.Count(prog.Source, "inf.readEoln();"))
	assert.Contains(t, prog.Source, "inf.readEof();")
}

func TestBuildMinimalValidatorWithNoSamplesStillProducesValidSource(t *testing.T) {
	prog := BuildMinimalValidator(nil)
	assert.Contains(t, prog.Source, "registerValidation(argc, argv);")
	assert.Contains(t, prog.Source, "inf.readEof();")
}
