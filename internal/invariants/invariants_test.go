package invariants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateFlagsDiversityFloorViolation(t *testing.T) {
	facts := Facts{
		SuiteID:     "suite-1",
		Outputs:     []string{"YES\n", "YES\n", "YES\n"},
		TargetCount: 5,
	}
	violations, err := Evaluate(context.Background(), facts)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "DiversityFloorViolation", violations[0].Kind)
}

func TestEvaluateAcceptsDiverseSuite(t *testing.T) {
	facts := Facts{
		SuiteID:     "suite-2",
		Outputs:     []string{"3\n", "7\n", "12\n"},
		TargetCount: 5,
	}
	violations, err := Evaluate(context.Background(), facts)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEvaluateSingleEntrySuiteNeverFlagsDiversity(t *testing.T) {
	facts := Facts{
		SuiteID:     "suite-3",
		Outputs:     []string{"42\n"},
		TargetCount: 1,
	}
	violations, err := Evaluate(context.Background(), facts)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEvaluateFlagsReservedIdentifierCollision(t *testing.T) {
	facts := Facts{
		SuiteID:             "suite-4",
		ReservedIdentifiers: []string{"rnd", "cin"},
		DeclaredVariables:   []string{"rnd", "x"},
	}
	violations, err := Evaluate(context.Background(), facts)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "ReservedIdentifierCollision", violations[0].Kind)
	assert.Equal(t, "rnd", violations[0].Detail)
}

func TestEvaluateFlagsUndeclaredCommandFlag(t *testing.T) {
	facts := Facts{
		SuiteID:         "suite-5",
		DeclaredOptions: []string{"n"},
		CommandFlags:    []string{"n", "z"},
	}
	violations, err := Evaluate(context.Background(), facts)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "UndeclaredCommandFlag", violations[0].Kind)
	assert.Equal(t, "z", violations[0].Detail)
}
