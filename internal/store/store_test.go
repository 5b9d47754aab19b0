package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcsynth/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBundleHashIsStableAndSensitiveToInputs(t *testing.T) {
	a := model.ProblemBundle{Statement: "sum two ints", OracleSrc: "print(a+b)", TargetCount: 20}
	b := model.ProblemBundle{Statement: "sum two ints", OracleSrc: "print(a+b)", TargetCount: 20}
	c := model.ProblemBundle{Statement: "sum two ints", OracleSrc: "print(a+b)", TargetCount: 30}

	assert.Equal(t, BundleHash(a), BundleHash(b))
	assert.NotEqual(t, BundleHash(a), BundleHash(c))
}

func TestResumeMissIsNotAnError(t *testing.T) {
	s := openTestStore(t)

	state, ok := s.Resume("no-such-bundle")
	assert.False(t, ok)
	assert.Equal(t, model.LoopState{}, state)
}

func TestSaveCheckpointThenResumeRoundTrips(t *testing.T) {
	s := openTestStore(t)

	state := model.LoopState{
		BundleHash:      "bundle-1",
		Iteration:       3,
		GeneratorSource: "int main() {}",
		Accumulated: []model.TestCase{
			{Input: "1 2\n", Output: "3\n"},
		},
	}

	require.NoError(t, s.SaveCheckpoint("bundle-1", state))

	resumed, ok := s.Resume("bundle-1")
	require.True(t, ok)
	assert.Equal(t, state.Iteration, resumed.Iteration)
	assert.Equal(t, state.GeneratorSource, resumed.GeneratorSource)
	assert.Equal(t, state.Accumulated, resumed.Accumulated)
}

func TestSaveCheckpointOverwritesPriorCheckpointForSameBundle(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveCheckpoint("bundle-2", model.LoopState{Iteration: 1}))
	require.NoError(t, s.SaveCheckpoint("bundle-2", model.LoopState{Iteration: 5}))

	resumed, ok := s.Resume("bundle-2")
	require.True(t, ok)
	assert.Equal(t, 5, resumed.Iteration)
}

func TestSaveSuiteClearsCheckpointAndIsLoadable(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveCheckpoint("bundle-3", model.LoopState{Iteration: 7}))

	suite := model.Suite{
		Cases:      []model.TestCase{{Input: "5\n", Output: "25\n"}},
		Iterations: 7,
	}
	require.NoError(t, s.SaveSuite("bundle-3", suite))

	_, stillCheckpointed := s.Resume("bundle-3")
	assert.False(t, stillCheckpointed)

	loaded, ok := s.LoadSuite("bundle-3")
	require.True(t, ok)
	assert.Equal(t, suite.Cases, loaded.Cases)
	assert.Equal(t, suite.Iterations, loaded.Iterations)
}

func TestLoadSuiteMissReturnsFalse(t *testing.T) {
	s := openTestStore(t)
	_, ok := s.LoadSuite("never-saved")
	assert.False(t, ok)
}
