package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usertbera/enveye"
	"github.com/usertbera/enveye/bubbletea"
	"github.com/usertbera/enveye/mock"
	"github.com/usertbera/enveye/session"
	"github.com/usertbera/enveye/worddiff"
)

// trueColorRenderer creates a lipgloss renderer that outputs true colors.
// This is useful for testing color output without affecting global state.
func trueColorRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	return r
}

// Compile-time check that Viewer implements enveye.Viewer.
var _ enveye.Viewer = (*bubbletea.Viewer)(nil)

func sampleDiff() *enveye.StructuralDiff {
	return &enveye.StructuralDiff{
		ValuesChanged: []enveye.ValueChange{{
			Path:     "root['os']['version']",
			OldValue: enveye.MustValueOf("10.0.19045"),
			NewValue: enveye.MustValueOf("10.0.22631"),
		}},
		DictionaryItemAdded: []enveye.Entry{{
			Path:  "root['env']['JAVA_HOME']",
			Value: enveye.MustValueOf(`C:\jdk17`),
		}},
		DictionaryItemRemoved: []enveye.Entry{{
			Path:  "root['services']['Spooler']",
			Value: enveye.MustValueOf("Running"),
		}},
	}
}

func newSession(explainer enveye.Explainer, diff *enveye.StructuralDiff) *session.Orchestrator {
	s := session.New(explainer)
	s.SetDiff(diff)
	return s
}

func staticExplainer(text string) *mock.Explainer {
	return &mock.Explainer{
		ExplainFn: func(context.Context, enveye.ExplanationContext) (string, error) {
			return text, nil
		},
	}
}

func startModel(t *testing.T, m bubbletea.Model) *teatest.TestModel {
	t.Helper()
	return teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 30))
}

func waitForText(t *testing.T, tm *teatest.TestModel, texts ...string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		for _, text := range texts {
			if !bytes.Contains(out, []byte(text)) {
				return false
			}
		}
		return true
	}, teatest.WithDuration(3*time.Second))
}

func quit(t *testing.T, tm *teatest.TestModel) {
	t.Helper()
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))
}

func TestModel_Init(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff()))

	assert.Nil(t, m.Init(), "Init should return nil command")
}

func TestModel_ViewBeforeReady(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff()))

	assert.Contains(t, m.View(), "Loading", "View should show loading state before WindowSizeMsg")
}

func TestModel_RendersRecords(t *testing.T) {
	t.Parallel()

	tm := startModel(t, bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff())))

	waitForText(t, tm,
		"os > version", "env > JAVA_HOME", "services > Spooler",
		"Changed", "Added", "Removed",
		enveye.AbsentMarker,
		"3 changes: 1 changed, 1 added, 1 removed",
	)
	quit(t, tm)
}

func TestModel_RendersRecordsInNormalizedOrder(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff()))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	view := updated.View()
	changed := bytes.Index([]byte(view), []byte("os > version"))
	added := bytes.Index([]byte(view), []byte("env > JAVA_HOME"))
	removed := bytes.Index([]byte(view), []byte("services > Spooler"))
	require.True(t, changed >= 0 && added >= 0 && removed >= 0)
	assert.Less(t, changed, added)
	assert.Less(t, added, removed)
}

func TestModel_EmptyDiff(t *testing.T) {
	t.Parallel()

	tm := startModel(t, bubbletea.NewModel(newSession(&mock.Explainer{}, &enveye.StructuralDiff{})))

	waitForText(t, tm, bubbletea.EmptyDiffMessage)
	quit(t, tm)
}

func TestModel_QuitOnCtrlC(t *testing.T) {
	t.Parallel()

	tm := startModel(t, bubbletea.NewModel(newSession(&mock.Explainer{}, nil)))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))
}

func TestModel_ExplainShowsExplanation(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewModel(newSession(staticExplainer("The OS build moved to 22631."), sampleDiff()))
	tm := startModel(t, m)
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})

	waitForText(t, tm, "The OS build moved to 22631.")
	quit(t, tm)
}

func TestModel_ExplainFailureShowsReason(t *testing.T) {
	t.Parallel()

	explainer := &mock.Explainer{
		ExplainFn: func(context.Context, enveye.ExplanationContext) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	tm := startModel(t, bubbletea.NewModel(newSession(explainer, sampleDiff())))
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})

	waitForText(t, tm, enveye.RequestFailedReason)
	quit(t, tm)
}

func TestModel_ShowsThinkingWhileLoading(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	explainer := &mock.Explainer{
		ExplainFn: func(ctx context.Context, _ enveye.ExplanationContext) (string, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return "", ctx.Err()
		},
	}
	tm := startModel(t, bubbletea.NewModel(newSession(explainer, sampleDiff())))
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})

	waitForText(t, tm, bubbletea.LoadingMessage)
	quit(t, tm)
}

func TestModel_ExplainSendsContextFields(t *testing.T) {
	t.Parallel()

	got := make(chan enveye.ExplanationContext, 1)
	explainer := &mock.Explainer{
		ExplainFn: func(_ context.Context, input enveye.ExplanationContext) (string, error) {
			got <- input
			return "ok", nil
		},
	}
	diff := sampleDiff()
	tm := startModel(t, bubbletea.NewModel(newSession(explainer, diff)))
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	tm.Type("disk full")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	tm.Type("/var/log/app.log")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})

	select {
	case input := <-got:
		assert.Equal(t, "disk full", input.ErrorMessage)
		assert.Equal(t, "/var/log/app.log", input.LogPath)
		assert.Nil(t, input.ErrorScreenshot)
		assert.Same(t, diff, input.Diff)
	case <-time.After(3 * time.Second):
		t.Fatal("explainer was not called")
	}
	quit(t, tm)
}

func TestModel_EditCancelKeepsValue(t *testing.T) {
	t.Parallel()

	got := make(chan enveye.ExplanationContext, 1)
	explainer := &mock.Explainer{
		ExplainFn: func(_ context.Context, input enveye.ExplanationContext) (string, error) {
			got <- input
			return "ok", nil
		},
	}
	s := newSession(explainer, sampleDiff())
	s.SetErrorMessage("original")
	tm := startModel(t, bubbletea.NewModel(s))
	waitForText(t, tm, "original")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	tm.Type(" edited")
	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})

	select {
	case input := <-got:
		assert.Equal(t, "original", input.ErrorMessage)
	case <-time.After(3 * time.Second):
		t.Fatal("explainer was not called")
	}
	quit(t, tm)
}

func TestModel_AttachScreenshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "error.png"), png, 0o600))

	got := make(chan enveye.ExplanationContext, 1)
	explainer := &mock.Explainer{
		ExplainFn: func(_ context.Context, input enveye.ExplanationContext) (string, error) {
			got <- input
			return "ok", nil
		},
	}
	tm := startModel(t, bubbletea.NewModel(newSession(explainer, sampleDiff()), bubbletea.WithStartDir(dir)))
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	waitForText(t, tm, "error.png")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitForText(t, tm, "image/png")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})

	select {
	case input := <-got:
		require.NotNil(t, input.ErrorScreenshot)
		assert.Equal(t, "image/png", input.ErrorScreenshot.MIMEType)
		assert.Equal(t, len(png), input.ErrorScreenshot.Size)
	case <-time.After(3 * time.Second):
		t.Fatal("explainer was not called")
	}
	quit(t, tm)
}

func TestModel_AttachRejectsNonImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o600))

	tm := startModel(t, bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff()), bubbletea.WithStartDir(dir)))
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	waitForText(t, tm, "notes.txt")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	waitForText(t, tm, "Not an image: notes.txt")
	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})
	quit(t, tm)
}

func TestModel_CopyExplanation(t *testing.T) {
	t.Parallel()

	copied := make(chan string, 1)
	clip := &mock.Clipboard{
		CopyFn: func(text string) error {
			copied <- text
			return nil
		},
	}
	tm := startModel(t, bubbletea.NewModel(
		newSession(staticExplainer("Spooler was removed."), sampleDiff()),
		bubbletea.WithClipboard(clip),
	))
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	waitForText(t, tm, "Spooler was removed.")
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	select {
	case text := <-copied:
		assert.Equal(t, "Spooler was removed.", text)
	case <-time.After(3 * time.Second):
		t.Fatal("clipboard was not called")
	}
	waitForText(t, tm, "Explanation copied")
	quit(t, tm)
}

func TestModel_CopyWithoutExplanation(t *testing.T) {
	t.Parallel()

	tm := startModel(t, bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff())))
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	waitForText(t, tm, "No explanation to copy")
	quit(t, tm)
}

func TestModel_ToggleRawView(t *testing.T) {
	t.Parallel()

	tm := startModel(t, bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff())))
	waitForText(t, tm, "os > version")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})

	waitForText(t, tm, `"values_changed"`, `"dictionary_item_removed"`, "[raw json]")
	quit(t, tm)
}

func TestModel_AppliesRowColors(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff()),
		bubbletea.WithRenderer(trueColorRenderer()),
	)
	tm := startModel(t, m)

	// Default theme row backgrounds: changed #3a3000, added #004000,
	// removed #3f0001.
	waitForText(t, tm, "48;2;58;48;0", "48;2;0;64;0", "48;2;63;0;1")
	quit(t, tm)
}

func TestModel_HighlightsChangedValueSegments(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewModel(newSession(&mock.Explainer{}, sampleDiff()),
		bubbletea.WithRenderer(trueColorRenderer()),
		bubbletea.WithWordDiffer(worddiff.NewDiffer()),
	)
	tm := startModel(t, m)

	// ChangedHighlight background #f9e2af = RGB(249, 226, 175).
	waitForText(t, tm, "19045", "22631", "48;2;249;226;175")
	quit(t, tm)
}

func TestViewer_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Custom IO avoids the TTY requirement
	var in bytes.Buffer
	var out bytes.Buffer
	viewer := bubbletea.NewViewer(&mock.Explainer{},
		bubbletea.WithProgramOptions(
			tea.WithInput(&in),
			tea.WithOutput(&out),
		),
	)

	done := make(chan error, 1)
	go func() {
		done <- viewer.View(ctx, sampleDiff())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled, "viewer should return context.Canceled on cancellation")
	case <-time.After(time.Second):
		t.Fatal("viewer did not exit after context cancellation")
	}
}

func TestViewer_ContextAlreadyCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var in bytes.Buffer
	var out bytes.Buffer
	viewer := bubbletea.NewViewer(&mock.Explainer{},
		bubbletea.WithProgramOptions(
			tea.WithInput(&in),
			tea.WithOutput(&out),
		),
	)

	err := viewer.View(ctx, sampleDiff())
	require.ErrorIs(t, err, context.Canceled, "viewer should return context.Canceled for pre-cancelled context")
}
