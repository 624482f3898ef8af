package cli

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDraftModel() draftModel {
	pub := NewCliStepPublisher(logger.NewNullLogger())
	return newDraftModel(nil, pub, core.NewRequest("Coffee", "", 0, ".", false, llm.DefaultProviderConfig()), 0, logger.NewNullLogger())
}

func updateDraft(t *testing.T, m draftModel, msg tea.Msg) (draftModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	dm, ok := next.(draftModel)
	require.True(t, ok)
	return dm, cmd
}

func TestDraftModel_Steps(t *testing.T) {
	m := newTestDraftModel()
	assert.Contains(t, m.View(), "Generating outlines.")

	m, cmd := updateDraft(t, m, core.GenerateOutlines)
	assert.NotNil(t, cmd)
	assert.Len(t, m.completedSteps, 1)
	view := m.View()
	assert.Contains(t, view, "Generated outlines.")
	assert.Contains(t, view, "Selecting outline.")
	assert.NotContains(t, view, "Drafting chapters.")
}

func TestDraftModel_Finish(t *testing.T) {
	m := newTestDraftModel()
	for _, s := range draftSteps {
		m, _ = updateDraft(t, m, s.step)
	}

	sess := core.Session{Style: "Casual", Chapters: []core.ChapterDetail{{Title: "Hello"}, {Title: "Beans"}}}
	m, cmd := updateDraft(t, m, draftResultMsg{ExportPath: "docs/document.md", Session: sess})
	assert.NotNil(t, cmd)
	assert.Equal(t, draftFinished, m.state)
	assert.NoError(t, m.Err())
}

func TestDraftModel_StepFailure(t *testing.T) {
	m := newTestDraftModel()
	boom := errors.New("boom")

	m, cmd := updateDraft(t, m, stepFailure{step: core.GenerateChapterContents, err: boom})
	assert.NotNil(t, cmd)
	assert.Equal(t, draftFailed, m.state)
	assert.ErrorIs(t, m.Err(), boom)

	// The engine result for the same failure does not replace it.
	m, cmd = updateDraft(t, m, draftResultMsg{Err: boom})
	assert.Nil(t, cmd)
	assert.ErrorIs(t, m.Err(), boom)
}

func TestDraftModel_Interrupted(t *testing.T) {
	m := newTestDraftModel()
	m, cmd := updateDraft(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.NotNil(t, cmd)
	assert.Error(t, m.Err())
}
