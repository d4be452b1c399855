package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/client"
	"github.com/manunited/headcoach/internal/core"
)

func newTestModel() Model {
	return NewModel(client.NewSession("http://localhost:0", zap.NewNop()))
}

func TestModelReadyAfterWindowSize(t *testing.T) {
	m := newTestModel()
	assert.Contains(t, m.View(), "Initializing")

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)
	assert.True(t, m.ready)
	assert.Contains(t, m.View(), "HEADQUARTERS")
}

func TestFlaggedVerdictShowsWarning(t *testing.T) {
	m := newTestModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	updated, cmd := m.Update(verdictMsg{
		verdict: core.MuguVerdict{
			IsMugu:      true,
			Correction:  "You pick the place.",
			Explanation: "Seeking permission.",
		},
		draft: "please can we meet, if that's ok?",
	})
	m = updated.(Model)
	assert.Nil(t, cmd)
	require.NotNil(t, m.warning)
	assert.Contains(t, m.View(), "MUGU MOVE DETECTED")
	assert.Contains(t, m.View(), "You pick the place.")
}

func TestCleanVerdictSendsDraft(t *testing.T) {
	m := newTestModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	updated, cmd := m.Update(verdictMsg{verdict: core.MuguVerdict{}, draft: "Come through on Friday."})
	m = updated.(Model)
	assert.Nil(t, m.warning)
	assert.True(t, m.waiting)
	assert.NotNil(t, cmd)
}

func TestCtrlULoadsCorrectionWithoutSending(t *testing.T) {
	m := newTestModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	updated, _ = m.Update(verdictMsg{
		verdict: core.MuguVerdict{IsMugu: true, Correction: "You pick the place."},
		draft:   "please can we meet?",
	})
	m = updated.(Model)
	require.NotNil(t, m.warning)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	m = updated.(Model)
	assert.Nil(t, m.warning)
	assert.False(t, m.waiting)
	assert.Nil(t, cmd)
	// The correction lands in the input for review, never auto-sent.
	assert.Equal(t, "You pick the place.", m.input.Value())
}

func TestEscDismissesWarningAndSendsOriginal(t *testing.T) {
	m := newTestModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	updated, _ = m.Update(verdictMsg{
		verdict: core.MuguVerdict{IsMugu: true, Explanation: "Needy."},
		draft:   "please can we meet?",
	})
	m = updated.(Model)
	require.NotNil(t, m.warning)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Nil(t, m.warning)
	assert.True(t, m.waiting)
	assert.NotNil(t, cmd)
}
