// Package bubbletea provides the terminal UI for reviewing a structural diff
// and requesting explanations, using the Bubble Tea framework.
package bubbletea

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/usertbera/enveye"
	"github.com/usertbera/enveye/fs"
	"github.com/usertbera/enveye/session"
)

// LoadingMessage is shown next to the spinner while a request is in flight.
const LoadingMessage = "Thinking..."

// Screen layout: one header line, then the viewport, then three context
// field lines, a notice line and the help line.
const (
	headerHeight = 1
	footerHeight = 5
)

type mode int

const (
	modeBrowse mode = iota
	modeEditMessage
	modeEditLogPath
	modePickScreenshot
)

// explainDoneMsg carries a finished task back into the update loop.
type explainDoneMsg session.Completion

type screenshotReadMsg struct {
	path string
	data []byte
	mime string
	err  error
}

type copiedMsg struct {
	err error
}

// Model is the Bubble Tea model of the diff screen. It drives a
// session.Orchestrator from the update loop; requests run as commands and
// report back through explainDoneMsg.
type Model struct {
	session *session.Orchestrator
	ctx     context.Context

	records         []enveye.ChangeRecord
	raw             bool
	explanationLine int

	tokenizer  enveye.Tokenizer
	wordDiffer enveye.WordDiffer
	clipboard  enveye.Clipboard
	startDir   string

	viewport viewport.Model
	input    textinput.Model
	picker   filepicker.Model
	spinner  spinner.Model
	help     help.Model
	keymap   KeyMap
	styles   enveye.Styles
	palette  enveye.Palette
	renderer *lipgloss.Renderer

	mode         mode
	notice       string
	noticeFailed bool
	width        int
	ready        bool
	pendingKey   string
}

// ModelOption configures a Model.
type ModelOption func(*modelConfig)

type modelConfig struct {
	ctx        context.Context
	renderer   *lipgloss.Renderer
	theme      enveye.Theme
	tokenizer  enveye.Tokenizer
	wordDiffer enveye.WordDiffer
	clipboard  enveye.Clipboard
	startDir   string
}

// WithContext sets the parent context of explanation requests.
func WithContext(ctx context.Context) ModelOption {
	return func(cfg *modelConfig) {
		cfg.ctx = ctx
	}
}

// WithRenderer sets a custom lipgloss renderer for the model.
func WithRenderer(r *lipgloss.Renderer) ModelOption {
	return func(cfg *modelConfig) {
		cfg.renderer = r
	}
}

// WithTheme sets the theme for the model.
func WithTheme(t enveye.Theme) ModelOption {
	return func(cfg *modelConfig) {
		cfg.theme = t
	}
}

// WithTokenizer sets the tokenizer used by the raw JSON view.
func WithTokenizer(t enveye.Tokenizer) ModelOption {
	return func(cfg *modelConfig) {
		cfg.tokenizer = t
	}
}

// WithWordDiffer sets the differ that highlights changed value segments.
func WithWordDiffer(d enveye.WordDiffer) ModelOption {
	return func(cfg *modelConfig) {
		cfg.wordDiffer = d
	}
}

// WithClipboard enables copying the explanation.
func WithClipboard(c enveye.Clipboard) ModelOption {
	return func(cfg *modelConfig) {
		cfg.clipboard = c
	}
}

// WithStartDir sets the directory the screenshot picker opens in.
func WithStartDir(dir string) ModelOption {
	return func(cfg *modelConfig) {
		cfg.startDir = dir
	}
}

// NewModel creates a Model for the orchestrator's diff.
func NewModel(s *session.Orchestrator, opts ...ModelOption) Model {
	cfg := &modelConfig{
		ctx:      context.Background(),
		startDir: ".",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var styles enveye.Styles
	var palette enveye.Palette
	if cfg.theme != nil {
		styles = cfg.theme.Styles()
		palette = cfg.theme.Palette()
	} else {
		styles = defaultStyles()
		palette = defaultPalette()
	}

	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 2048

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = newStyle(cfg.renderer).Foreground(lipgloss.Color(palette.UIAccent))

	h := help.New()
	h.Styles.ShortKey = newStyle(cfg.renderer).Foreground(lipgloss.Color(palette.UIAccent))
	h.Styles.ShortDesc = newStyle(cfg.renderer).Foreground(lipgloss.Color(palette.UIForeground))
	h.Styles.ShortSeparator = newStyle(cfg.renderer).Foreground(lipgloss.Color(palette.UIForeground))

	return Model{
		session:    s,
		ctx:        cfg.ctx,
		records:    enveye.Normalize(s.Diff()),
		tokenizer:  cfg.tokenizer,
		wordDiffer: cfg.wordDiffer,
		clipboard:  cfg.clipboard,
		startDir:   cfg.startDir,
		input:      input,
		spinner:    sp,
		help:       h,
		keymap:     DefaultKeyMap(),
		styles:     styles,
		palette:    palette,
		renderer:   cfg.renderer,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case explainDoneMsg:
		if m.session.Complete(session.Completion(msg)) {
			m.refresh()
			m.viewport.SetYOffset(m.explanationLine)
		}
		return m, nil
	case spinner.TickMsg:
		if m.session.State().Status != session.StatusLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	case screenshotReadMsg:
		m.attach(msg)
		return m, nil
	case copiedMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("Copy failed: %v", msg.err), true)
		} else {
			m.setNotice("Explanation copied to clipboard", false)
		}
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeEditMessage, modeEditLogPath:
			return m.updateEdit(msg)
		case modePickScreenshot:
			return m.updatePicker(msg)
		}
		return m.updateBrowse(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case modePickScreenshot:
		m.picker, cmd = m.picker.Update(msg)
	case modeEditMessage, modeEditLogPath:
		m.input, cmd = m.input.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle multi-key sequences (gg for go to top)
	if m.pendingKey == "g" && key.Matches(msg, m.keymap.GotoTop) {
		m.viewport.GotoTop()
		m.pendingKey = ""
		return m, nil
	}
	if key.Matches(msg, m.keymap.GotoTop) {
		m.pendingKey = "g"
		return m, nil
	}
	m.pendingKey = ""

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.GotoBottom):
		m.viewport.GotoBottom()
	case key.Matches(msg, m.keymap.HalfPageUp):
		m.viewport.HalfPageUp()
	case key.Matches(msg, m.keymap.HalfPageDown):
		m.viewport.HalfPageDown()
	case key.Matches(msg, m.keymap.Up):
		m.viewport.ScrollUp(1)
	case key.Matches(msg, m.keymap.Down):
		m.viewport.ScrollDown(1)
	case key.Matches(msg, m.keymap.Explain):
		return m, m.explain()
	case key.Matches(msg, m.keymap.EditMessage):
		return m, m.startEdit(modeEditMessage)
	case key.Matches(msg, m.keymap.EditLogPath):
		return m, m.startEdit(modeEditLogPath)
	case key.Matches(msg, m.keymap.Attach):
		return m, m.startPicker()
	case key.Matches(msg, m.keymap.ClearScreenshot):
		if m.session.Fields().Screenshot != nil {
			m.session.ClearScreenshot()
			m.setNotice("Screenshot removed", false)
		}
	case key.Matches(msg, m.keymap.Copy):
		return m, m.copyExplanation()
	case key.Matches(msg, m.keymap.ToggleRaw):
		m.raw = !m.raw
		m.refresh()
		m.viewport.GotoTop()
	}
	return m, nil
}

// explain triggers a request and returns the commands that run it and
// animate the spinner. A request already in flight is superseded.
func (m *Model) explain() tea.Cmd {
	wasLoading := m.session.State().Status == session.StatusLoading
	task := m.session.Trigger(m.ctx)
	m.notice = ""
	m.refresh()
	m.viewport.SetYOffset(m.explanationLine)

	run := func() tea.Msg {
		return explainDoneMsg(task.Run())
	}
	if wasLoading {
		return run
	}
	return tea.Batch(run, m.spinner.Tick)
}

func (m *Model) startEdit(md mode) tea.Cmd {
	m.mode = md
	m.input.Reset()
	fields := m.session.Fields()
	if md == modeEditMessage {
		m.input.Placeholder = "error text shown on the affected machine"
		m.input.SetValue(fields.ErrorMessage)
	} else {
		m.input.Placeholder = `e.g. C:\app\logs\server.log`
		m.input.SetValue(fields.LogPath)
	}
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Confirm):
		value := strings.TrimSpace(m.input.Value())
		if m.mode == modeEditMessage {
			m.session.SetErrorMessage(value)
		} else {
			m.session.SetLogPath(value)
		}
		m.input.Blur()
		m.mode = modeBrowse
		return m, nil
	case key.Matches(msg, m.keymap.Cancel):
		m.input.Blur()
		m.mode = modeBrowse
		return m, nil
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startPicker() tea.Cmd {
	fp := filepicker.New()
	fp.CurrentDirectory = m.startDir
	fp.AllowedTypes = imageTypes()
	fp.ShowPermissions = false
	fp.AutoHeight = false
	fp.SetHeight(m.viewport.Height)
	if m.renderer != nil {
		fp.Styles = filepicker.DefaultStylesWithRenderer(m.renderer)
	}
	m.picker = fp
	m.mode = modePickScreenshot
	return m.picker.Init()
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.mode = modeBrowse
		return m, nil
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.mode = modeBrowse
		return m, readScreenshot(path)
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.setNotice(fmt.Sprintf("Not an image: %s", filepath.Base(path)), true)
	}
	return m, cmd
}

func readScreenshot(path string) tea.Cmd {
	return func() tea.Msg {
		data, mime, err := fs.ReadScreenshot(path)
		return screenshotReadMsg{path: path, data: data, mime: mime, err: err}
	}
}

// attach hands a read file to the orchestrator. A rejected file leaves the
// previous screenshot in place.
func (m *Model) attach(msg screenshotReadMsg) {
	if msg.err == nil {
		msg.err = m.session.AttachScreenshot(msg.data, msg.mime)
	}
	if msg.err != nil {
		m.setNotice(fmt.Sprintf("Attachment rejected: %v", msg.err), true)
		return
	}
	m.setNotice(fmt.Sprintf("Attached %s", filepath.Base(msg.path)), false)
}

func (m *Model) copyExplanation() tea.Cmd {
	state := m.session.State()
	if state.Status != session.StatusSucceeded {
		m.setNotice("No explanation to copy", true)
		return nil
	}
	if m.clipboard == nil {
		m.setNotice("Clipboard is not available", true)
		return nil
	}
	clip := m.clipboard
	return func() tea.Msg {
		return copiedMsg{err: clip.Copy(state.Text)}
	}
}

func (m *Model) setNotice(text string, failed bool) {
	m.notice = text
	m.noticeFailed = failed
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.help.Width = width
	bodyHeight := max(height-headerHeight-footerHeight, 1)

	if !m.ready {
		m.viewport = viewport.New(width, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = bodyHeight
	}
	m.input.Width = max(width-len(fieldLabel("Error message"))-1, 10)
	if m.mode == modePickScreenshot {
		m.picker.SetHeight(bodyHeight)
	}
	m.refresh()
}

// refresh re-renders the viewport content from the orchestrator state.
// Records are rebuilt on every pass.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.records = enveye.Normalize(m.session.Diff())

	cfg := renderConfig{
		styles:     m.styles,
		renderer:   m.renderer,
		width:      m.viewport.Width,
		tokenizer:  m.tokenizer,
		wordDiffer: m.wordDiffer,
	}
	var content string
	if m.raw {
		content = renderRaw(m.session.Diff(), cfg)
	} else {
		content = renderTable(m.records, cfg)
	}

	m.explanationLine = strings.Count(content, "\n") + 1
	m.viewport.SetContent(content + "\n" + m.explanationView())
}

func (m Model) explanationView() string {
	title := styleFromColorPair(m.styles.Title, m.renderer).Bold(true).Render("AI explanation")
	dim := newStyle(m.renderer).Foreground(lipgloss.Color(m.palette.UIForeground))

	state := m.session.State()
	var body string
	switch state.Status {
	case session.StatusLoading:
		body = m.spinner.View() + " " + LoadingMessage
	case session.StatusSucceeded:
		body = styleFromColorPair(m.styles.Explanation, m.renderer).
			Width(max(m.viewport.Width, 1)).
			Render(state.Text)
	case session.StatusFailed:
		body = styleFromColorPair(m.styles.Failure, m.renderer).Render(state.Reason) +
			dim.Render("  Press e to retry.")
	default:
		body = dim.Render("Press e to request an explanation.")
	}
	return title + "\n" + body + "\n"
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.mode == modePickScreenshot {
		body = m.picker.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.fieldsView(),
		m.noticeView(),
		m.helpView(),
	)
}

func (m Model) headerView() string {
	title := styleFromColorPair(m.styles.Title, m.renderer).Bold(true).Render("EnvEye")
	summary := summaryLine(m.records)
	if len(m.records) == 0 {
		summary = EmptyDiffMessage
	}
	view := "table"
	if m.raw {
		view = "raw json"
	}
	bar := styleFromColorPair(m.styles.StatusBar, m.renderer)
	return title + bar.Render(padLine(fmt.Sprintf("  %s  [%s]", summary, view), max(m.width-lipgloss.Width(title), 0)))
}

func fieldLabel(name string) string {
	return fmt.Sprintf("%-14s", name+":")
}

func (m Model) fieldsView() string {
	labelStyle := styleFromColorPair(m.styles.TableHeader, m.renderer)
	dim := newStyle(m.renderer).Foreground(lipgloss.Color(m.palette.UIForeground))
	fields := m.session.Fields()

	value := func(s string) string {
		if s == "" {
			return dim.Render("(none)")
		}
		return s
	}

	message := value(fields.ErrorMessage)
	if m.mode == modeEditMessage {
		message = m.input.View()
	}
	logPath := value(fields.LogPath)
	if m.mode == modeEditLogPath {
		logPath = m.input.View()
	}
	shot := dim.Render("(none)")
	if fields.Screenshot != nil {
		shot = fmt.Sprintf("%s, %s", fields.Screenshot.MIMEType, formatSize(fields.Screenshot.Size))
	}
	if m.mode == modePickScreenshot {
		shot = dim.Render("choose an image file")
	}

	return strings.Join([]string{
		labelStyle.Render(fieldLabel("Error message")) + " " + message,
		labelStyle.Render(fieldLabel("Log path")) + " " + logPath,
		labelStyle.Render(fieldLabel("Screenshot")) + " " + shot,
	}, "\n")
}

func (m Model) noticeView() string {
	if m.notice == "" {
		return ""
	}
	if m.noticeFailed {
		return styleFromColorPair(m.styles.Failure, m.renderer).Render(m.notice)
	}
	return styleFromColorPair(m.styles.Explanation, m.renderer).Render(m.notice)
}

func (m Model) helpView() string {
	switch m.mode {
	case modeEditMessage, modeEditLogPath:
		return m.help.View(editKeyMap{confirm: m.keymap.Confirm, cancel: m.keymap.Cancel})
	case modePickScreenshot:
		return m.help.View(editKeyMap{
			confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "attach")),
			cancel:  m.keymap.Cancel,
		})
	}
	return m.help.View(m.keymap)
}

// imageTypes lists the picker's selectable extensions in both cases.
func imageTypes() []string {
	types := make([]string, 0, len(fs.ImageExtensions)*2)
	for _, ext := range fs.ImageExtensions {
		types = append(types, ext, strings.ToUpper(ext))
	}
	return types
}

// Viewer implements enveye.Viewer using a Bubble Tea TUI.
type Viewer struct {
	explainer      enveye.Explainer
	sessionOptions []session.Option
	modelOptions   []ModelOption
	programOptions []tea.ProgramOption
}

// ViewerOption configures a Viewer.
type ViewerOption func(*Viewer)

// WithProgramOptions adds Bubble Tea program options, e.g. custom IO in tests.
func WithProgramOptions(opts ...tea.ProgramOption) ViewerOption {
	return func(v *Viewer) {
		v.programOptions = append(v.programOptions, opts...)
	}
}

// WithModelOptions adds options for the Model the viewer runs.
func WithModelOptions(opts ...ModelOption) ViewerOption {
	return func(v *Viewer) {
		v.modelOptions = append(v.modelOptions, opts...)
	}
}

// WithSessionOptions adds options for the viewer's orchestrator.
func WithSessionOptions(opts ...session.Option) ViewerOption {
	return func(v *Viewer) {
		v.sessionOptions = append(v.sessionOptions, opts...)
	}
}

// NewViewer creates a new Viewer that explains diffs with explainer.
func NewViewer(explainer enveye.Explainer, opts ...ViewerOption) *Viewer {
	v := &Viewer{explainer: explainer}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// View displays the diff and blocks until the user exits or ctx is done.
func (v *Viewer) View(ctx context.Context, diff *enveye.StructuralDiff) error {
	s := session.New(v.explainer, v.sessionOptions...)
	s.SetDiff(diff)

	m := NewModel(s, append([]ModelOption{WithContext(ctx)}, v.modelOptions...)...)
	opts := append([]tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}, v.programOptions...)

	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
