package dashboard

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcsynth/internal/model"
)

func TestUpdateAppliesCandidatesFilteredEvent(t *testing.T) {
	m := New(nil)

	next, cmd := m.Update(eventMsg(model.IterationEvent{
		Iteration:   2,
		Stage:       model.StageCandidatesFiltered,
		Accepted:    4,
		Rejected:    1,
		Accumulated: 4,
		TargetCount: 10,
		Detail:      "4 accepted, 1 rejected",
	}))
	out := next.(Model)

	assert.Nil(t, cmd)
	assert.Equal(t, 2, out.iteration)
	assert.Equal(t, 4, out.accumulated)
	assert.Equal(t, 10, out.targetCount)
	assert.False(t, out.done)
	require.Len(t, out.rows, 1)
}

func TestUpdateTracksDiversityRatio(t *testing.T) {
	m := New(nil)

	next, _ := m.Update(eventMsg(model.IterationEvent{
		Stage:         model.StageDiversityCheck,
		DistinctRatio: 0.42,
	}))
	out := next.(Model)

	assert.InDelta(t, 0.42, out.distinctRatio, 0.0001)
}

func TestUpdateTracksMinimalValidatorFlag(t *testing.T) {
	m := New(nil)

	next, _ := m.Update(eventMsg(model.IterationEvent{
		Stage:                 model.StageValidatorReady,
		UsingMinimalValidator: true,
	}))
	out := next.(Model)

	assert.True(t, out.usingMinimalValidator)
}

func TestUpdateMarksDoneOnSuiteComplete(t *testing.T) {
	m := New(nil)

	next, cmd := m.Update(eventMsg(model.IterationEvent{
		Stage:       model.StageSuiteComplete,
		Accumulated: 10,
		TargetCount: 10,
	}))
	out := next.(Model)

	assert.True(t, out.done)
	assert.Nil(t, cmd)
	assert.Contains(t, out.View(), "suite complete")
}

func TestUpdateMarksDoneOnSuiteFailedWithDetail(t *testing.T) {
	m := New(nil)

	next, _ := m.Update(eventMsg(model.IterationEvent{
		Stage:  model.StageSuiteFailed,
		Detail: model.ErrOracleAllFailed.Error(),
	}))
	out := next.(Model)

	assert.True(t, out.done)
	assert.Equal(t, model.ErrOracleAllFailed.Error(), out.finalDetail)
	assert.Contains(t, out.View(), "failed")
}

func TestUpdateMarksDoneOnSuitePartial(t *testing.T) {
	m := New(nil)

	next, _ := m.Update(eventMsg(model.IterationEvent{
		Stage:  model.StageSuitePartial,
		Detail: "BudgetExhausted",
	}))
	out := next.(Model)

	assert.True(t, out.done)
	assert.Contains(t, out.View(), "partial suite")
}

func TestUpdateStreamClosedMarksDoneWithoutFinalDetail(t *testing.T) {
	m := New(nil)

	next, cmd := m.Update(streamClosedMsg{})
	out := next.(Model)

	assert.True(t, out.done)
	assert.Nil(t, cmd)
}

func TestUpdateQuitKeysReturnTeaQuit(t *testing.T) {
	m := New(nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
}

func TestListenReturnsNilCmdForNilChannel(t *testing.T) {
	m := New(nil)
	assert.Nil(t, m.listen())
}

func TestListenReceivesFromChannel(t *testing.T) {
	ch := make(chan model.IterationEvent, 1)
	ch <- model.IterationEvent{Iteration: 7, Stage: model.StageGeneratorCompile}

	m := New(ch)
	cmd := m.listen()
	require.NotNil(t, cmd)

	msg := cmd()
	ev, ok := msg.(eventMsg)
	require.True(t, ok)
	assert.Equal(t, 7, ev.Iteration)
}

func TestListenReturnsStreamClosedOnClosedChannel(t *testing.T) {
	ch := make(chan model.IterationEvent)
	close(ch)

	m := New(ch)
	cmd := m.listen()
	require.NotNil(t, cmd)

	msg := cmd()
	_, ok := msg.(streamClosedMsg)
	assert.True(t, ok)
}

func TestHistoryTruncatesToMaxRows(t *testing.T) {
	m := New(nil)
	for i := 0; i < 250; i++ {
		next, _ := m.Update(eventMsg(model.IterationEvent{Iteration: i, Stage: model.StageGeneratorCompile}))
		m = next.(Model)
	}
	assert.Len(t, m.rows, 200)
}
