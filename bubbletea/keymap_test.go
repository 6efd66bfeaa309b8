package bubbletea_test

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/usertbera/enveye/bubbletea"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestDefaultKeyMap_HasExpectedBindings(t *testing.T) {
	t.Parallel()

	km := bubbletea.DefaultKeyMap()

	t.Run("Up binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(runeKey('k'), km.Up), "k should match Up binding")
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyUp}, km.Up), "arrow up should match Up binding")
	})

	t.Run("Down binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(runeKey('j'), km.Down), "j should match Down binding")
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyDown}, km.Down), "arrow down should match Down binding")
	})

	t.Run("half page bindings", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlU}, km.HalfPageUp))
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlD}, km.HalfPageDown))
	})

	t.Run("Quit binding", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(runeKey('q'), km.Quit), "q should match Quit binding")
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit), "ctrl+c should match Quit binding")
	})

	t.Run("action bindings", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			r       rune
			binding key.Binding
		}{
			{'g', km.GotoTop},
			{'G', km.GotoBottom},
			{'e', km.Explain},
			{'m', km.EditMessage},
			{'l', km.EditLogPath},
			{'a', km.Attach},
			{'x', km.ClearScreenshot},
			{'y', km.Copy},
			{'r', km.ToggleRaw},
		}
		for _, tt := range tests {
			assert.True(t, key.Matches(runeKey(tt.r), tt.binding), "%q should match %s", tt.r, tt.binding.Help().Desc)
		}
	})

	t.Run("edit bindings", func(t *testing.T) {
		t.Parallel()
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEnter}, km.Confirm))
		assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, km.Cancel))
	})
}

func TestKeyMap_HelpText(t *testing.T) {
	t.Parallel()

	km := bubbletea.DefaultKeyMap()

	for _, group := range km.FullHelp() {
		for _, b := range group {
			assert.NotEmpty(t, b.Help().Key)
			assert.NotEmpty(t, b.Help().Desc)
		}
	}
	assert.Contains(t, km.ShortHelp(), km.Explain)
}
