package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/fs"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
	"github.com/santiagomed/quill/utils"
)

type focusArea int

const (
	focusTopic focusArea = iota
	focusStyle
	focusOutlines
)

type inputMode int

const (
	inputNone inputMode = iota
	inputAddPoint
	inputRefine
	inputImage
)

type editTarget int

const (
	editNone editTarget = iota
	editTitles
	editDocument
)

type formStage int

const (
	formNone formStage = iota
	formProviderSelect
	formProviderDetails
	formReset
)

const contentPreviewLength = 600

type outlinesMsg struct {
	ticket   core.Ticket
	outlines []llm.OutlineOption
	err      error
}

type pointsMsg struct {
	ticket core.Ticket
	title  string
	points []string
	err    error
}

type contentMsg struct {
	ticket  core.Ticket
	title   string
	content string
	err     error
}

type connectionMsg struct {
	cfg llm.ProviderConfig
	err error
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("202")).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
	helpStyle     = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

type wizardModel struct {
	ctrl      *core.Controller
	keys      *KeyMap
	logger    logger.Logger
	files     *fs.FileSystem
	exportDir string
	clipboard Clipboard
	ctx       context.Context
	timeout   time.Duration

	spinner   spinner.Model
	topic     textinput.Model
	styleHint textinput.Model
	input     textinput.Model
	editor    textarea.Model
	viewport  viewport.Model

	focus   focusArea
	cursor  int
	mode    inputMode
	editing editTarget

	form       *huh.Form
	stage      formStage
	values     *formValues
	validating bool

	status string
	err    error

	width, height int
}

func newWizardModel(ctx context.Context, ctrl *core.Controller, files *fs.FileSystem, exportDir string, cb Clipboard, timeout time.Duration, l logger.Logger) wizardModel {
	if l == nil {
		l = logger.NewNullLogger()
	}

	topic := textinput.New()
	topic.Placeholder = "What is the document about?"
	topic.CharLimit = 500
	topic.Width = 80
	topic.Focus()

	style := textinput.New()
	style.Placeholder = "Optional style hint, e.g. playful, academic"
	style.CharLimit = 200
	style.Width = 80

	input := textinput.New()
	input.CharLimit = 1000
	input.Width = 80

	editor := textarea.New()
	editor.SetWidth(80)
	editor.SetHeight(10)
	editor.ShowLineNumbers = false

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	return wizardModel{
		ctrl:      ctrl,
		keys:      DefaultKeyMap(),
		logger:    l,
		files:     files,
		exportDir: exportDir,
		clipboard: cb,
		ctx:       ctx,
		timeout:   timeout,
		spinner:   s,
		topic:     topic,
		styleHint: style,
		input:     input,
		editor:    editor,
		viewport:  viewport.New(80, 20),
		values:    newFormValues(ctrl.ProviderConfig()),
		width:     80,
		height:    24,
	}
}

func (m wizardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// callContext bounds one model call by the configured timeout.
func (m wizardModel) callContext() (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(m.ctx, m.timeout)
	}
	return context.WithCancel(m.ctx)
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	if wm, ok := next.(wizardModel); ok {
		wm.syncKeys()
	}
	return next, cmd
}

func (m wizardModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-8, 5)
		m.editor.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case outlinesMsg:
		if !m.ctrl.ApplyOutlines(msg.ticket, msg.outlines, msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.cursor = 0
		m.setFocus(focusOutlines)
		m.setStatus("Pick an outline with enter, then press n to continue.")
		return m, nil

	case pointsMsg:
		if m.ctrl.ApplyPoints(msg.ticket, msg.points, msg.err) && msg.err != nil {
			m.setError(fmt.Errorf("points for %q: %w", msg.title, msg.err))
		}
		return m, nil

	case contentMsg:
		if m.ctrl.ApplyContent(msg.ticket, msg.content, msg.err) && msg.err != nil {
			m.setError(fmt.Errorf("chapter %q: %w", msg.title, msg.err))
		}
		return m, nil

	case connectionMsg:
		m.validating = false
		if msg.err != nil {
			m.setError(fmt.Errorf("provider not changed: %w", msg.err))
			return m, nil
		}
		if err := m.ctrl.SetProviderConfig(msg.cfg); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("Connected: " + msg.cfg.String())
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m.updateFocused(msg)
}

// updateFocused forwards non-key messages such as cursor blinks to the active widget.
func (m wizardModel) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.form != nil:
		return m.updateForm(msg)
	case m.mode != inputNone:
		m.input, cmd = m.input.Update(msg)
	case m.editing != editNone:
		m.editor, cmd = m.editor.Update(msg)
	case m.ctrl.Step() == core.StepTopicAndOutline && m.focus == focusTopic:
		m.topic, cmd = m.topic.Update(msg)
	case m.ctrl.Step() == core.StepTopicAndOutline && m.focus == focusStyle:
		m.styleHint, cmd = m.styleHint.Update(msg)
	case m.ctrl.Step() == core.StepFinalize:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m wizardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.form != nil {
		return m.updateForm(msg)
	}
	if m.mode != inputNone {
		return m.handleInputKeys(msg)
	}
	if m.editing != editNone {
		return m.handleEditorKeys(msg)
	}
	m.syncKeys()

	switch {
	case key.Matches(msg, m.keys.Reset):
		return m.openResetForm()
	case msg.Type == tea.KeyEsc:
		return m.quit()
	}

	switch m.ctrl.Step() {
	case core.StepTopicAndOutline:
		return m.handleTopicKeys(msg)
	case core.StepChapterDetails:
		return m.handleDetailKeys(msg)
	case core.StepDrafting:
		return m.handleDraftingKeys(msg)
	default:
		return m.handleFinalizeKeys(msg)
	}
}

func (m wizardModel) quit() (tea.Model, tea.Cmd) {
	m.logger.Debug("User exited the wizard")
	return m, tea.Sequence(tea.Printf("%s", faintStyle.Render("Exiting quill...")), tea.Quit)
}

// ---- step 1 ----

func (m *wizardModel) setFocus(f focusArea) {
	m.focus = f
	m.topic.Blur()
	m.styleHint.Blur()
	switch f {
	case focusTopic:
		m.topic.Focus()
	case focusStyle:
		m.styleHint.Focus()
	}
}

func (m wizardModel) handleTopicKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Tab) {
		m.setFocus((m.focus + 1) % 3)
		return m, nil
	}

	if m.focus != focusOutlines {
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m.generateOutlines()
		case msg.Type == tea.KeyCtrlP:
			return m.openProviderForm()
		}
		var cmd tea.Cmd
		if m.focus == focusTopic {
			m.topic, cmd = m.topic.Update(msg)
		} else {
			m.styleHint, cmd = m.styleHint.Update(msg)
		}
		return m, cmd
	}

	sess := m.ctrl.Session()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(sess.Outlines)-1 {
			m.cursor++
		}
	case msg.Type == tea.KeyEnter:
		if err := m.ctrl.SelectOutline(m.cursor); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Selected %q. Press e to edit chapters or n to continue.", sess.Outlines[m.cursor].Style))
	case key.Matches(msg, m.keys.EditTitles):
		if sess.SelectedOutline < 0 {
			m.setError(core.ErrOutlineNotSelected)
			return m, nil
		}
		return m.startEditing(editTitles, strings.Join(sess.ChapterTitles, "\n"))
	case key.Matches(msg, m.keys.Generate):
		return m.generateOutlines()
	case key.Matches(msg, m.keys.Next):
		return m.next()
	case key.Matches(msg, m.keys.Provider):
		return m.openProviderForm()
	}
	return m, nil
}

func (m wizardModel) generateOutlines() (tea.Model, tea.Cmd) {
	m.ctrl.SetTopic(utils.SanitizeInput(m.topic.Value()), utils.SanitizeInput(m.styleHint.Value()))
	job, err := m.ctrl.BeginOutlines()
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.setStatus("")

	ctrl := m.ctrl
	ctx, cancel := m.callContext()
	return m, func() tea.Msg {
		defer cancel()
		outlines, err := ctrl.ExecuteOutlines(ctx, job)
		return outlinesMsg{ticket: job.Ticket, outlines: outlines, err: err}
	}
}

// ---- step 2 ----

func (m wizardModel) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.ctrl.Session()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(sess.Chapters)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Generate):
		return m.generatePoints(m.cursor)
	case key.Matches(msg, m.keys.AddPoint):
		return m.startInput(inputAddPoint, "New point for this chapter")
	case key.Matches(msg, m.keys.RemovePoint):
		if m.cursor < len(sess.Chapters) {
			if n := len(sess.Chapters[m.cursor].Points); n > 0 {
				if err := m.ctrl.RemovePoint(m.cursor, n-1); err != nil {
					m.setError(err)
				}
			}
		}
	case key.Matches(msg, m.keys.Next):
		return m.next()
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Provider):
		return m.openProviderForm()
	}
	return m, nil
}

func (m wizardModel) generatePoints(i int) (tea.Model, tea.Cmd) {
	job, err := m.ctrl.BeginPoints(i)
	if err != nil {
		m.setError(err)
		return m, nil
	}

	ctrl := m.ctrl
	ctx, cancel := m.callContext()
	return m, func() tea.Msg {
		defer cancel()
		points, err := ctrl.ExecutePoints(ctx, job)
		return pointsMsg{ticket: job.Ticket, title: job.Title, points: points, err: err}
	}
}

// ---- step 3 ----

func (m wizardModel) handleDraftingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.ctrl.Session()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(sess.Chapters)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Generate):
		return m.generateContent(m.cursor)
	case key.Matches(msg, m.keys.Refine):
		if m.cursor < len(sess.Chapters) && strings.TrimSpace(sess.Chapters[m.cursor].Content) == "" {
			m.setError(core.ErrNoContent)
			return m, nil
		}
		return m.startInput(inputRefine, "How should this chapter change?")
	case key.Matches(msg, m.keys.ClearImage):
		if err := m.ctrl.ClearChartImage(m.cursor); err != nil {
			m.setError(err)
		}
	case key.Matches(msg, m.keys.AttachImage):
		return m.startInput(inputImage, "Path to a chart image")
	case key.Matches(msg, m.keys.Next):
		return m.next()
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Provider):
		return m.openProviderForm()
	}
	return m, nil
}

func (m wizardModel) generateContent(i int) (tea.Model, tea.Cmd) {
	job, err := m.ctrl.BeginContent(i)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	return m, m.contentCmd(job.Ticket, job.Request.ChapterTitle, func(ctx context.Context) (string, error) {
		return m.ctrl.ExecuteContent(ctx, job)
	})
}

func (m wizardModel) refine(i int, instruction string) (tea.Model, tea.Cmd) {
	job, err := m.ctrl.BeginRefine(i, instruction)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	title := m.ctrl.Session().Chapters[i].Title
	return m, m.contentCmd(job.Ticket, title, func(ctx context.Context) (string, error) {
		return m.ctrl.ExecuteRefine(ctx, job)
	})
}

func (m wizardModel) contentCmd(t core.Ticket, title string, run func(context.Context) (string, error)) tea.Cmd {
	ctx, cancel := m.callContext()
	return func() tea.Msg {
		defer cancel()
		content, err := run(ctx)
		return contentMsg{ticket: t, title: title, content: content, err: err}
	}
}

// autoDraft starts content generation for every chapter the controller marks as pending.
func (m wizardModel) autoDraft() (wizardModel, tea.Cmd) {
	var cmds []tea.Cmd
	for _, i := range m.ctrl.AutoDraftTargets() {
		next, cmd := m.generateContent(i)
		m = next.(wizardModel)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// ---- step 4 ----

func (m wizardModel) handleFinalizeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		path, err := m.files.ExportDocument(m.exportDir, m.ctrl.Document())
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("Saved to " + path)
	case key.Matches(msg, m.keys.Copy):
		if err := m.clipboard.WriteAll(m.ctrl.Document()); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("Copied to clipboard.")
	case key.Matches(msg, m.keys.EditTitles):
		return m.startEditing(editDocument, m.ctrl.Document())
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Provider):
		return m.openProviderForm()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// ---- transitions ----

// syncKeys disables the next-step binding while any chapter still lacks a point.
func (m wizardModel) syncKeys() {
	m.keys.Next.SetEnabled(m.ctrl.Step() != core.StepChapterDetails || m.ctrl.CanAdvance())
}

func (m wizardModel) next() (tea.Model, tea.Cmd) {
	step, err := m.ctrl.Next()
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.setStatus("")
	m.cursor = 0

	switch step {
	case core.StepDrafting:
		return m.autoDraft()
	case core.StepFinalize:
		m.viewport.SetContent(m.ctrl.Document())
		m.viewport.GotoTop()
	}
	return m, nil
}

func (m wizardModel) back() (tea.Model, tea.Cmd) {
	step := m.ctrl.Back()
	m.setStatus("")
	if step == core.StepTopicAndOutline {
		m.setFocus(focusOutlines)
		if sel := m.ctrl.Session().SelectedOutline; sel >= 0 {
			m.cursor = sel
		}
		return m, nil
	}
	if n := len(m.ctrl.Session().Chapters); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	return m, nil
}

// ---- text input and editor ----

func (m wizardModel) startInput(mode inputMode, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.SetValue("")
	m.input.Placeholder = placeholder
	return m, m.input.Focus()
}

func (m wizardModel) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = inputNone
		m.input.Blur()
		return m.submitInput(mode, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m wizardModel) submitInput(mode inputMode, value string) (tea.Model, tea.Cmd) {
	switch mode {
	case inputAddPoint:
		if value == "" {
			return m, nil
		}
		if err := m.ctrl.AddPoint(m.cursor, value); err != nil {
			m.setError(err)
		}
	case inputRefine:
		return m.refine(m.cursor, value)
	case inputImage:
		if value == "" {
			return m, nil
		}
		uri, err := m.files.ReadImage(value)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		if err := m.ctrl.SetChartImage(m.cursor, uri); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("Chart attached. Press g to redraft this chapter with it.")
	}
	return m, nil
}

func (m wizardModel) startEditing(target editTarget, value string) (tea.Model, tea.Cmd) {
	m.editing = target
	m.editor.SetValue(value)
	m.setStatus("Editing. Press esc to keep your changes.")
	return m, m.editor.Focus()
}

func (m wizardModel) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEsc {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}

	value := m.editor.Value()
	m.editor.Blur()
	switch m.editing {
	case editTitles:
		m.ctrl.SetChapterTitles(strings.Split(value, "\n"))
	case editDocument:
		if err := m.ctrl.SetDocument(value); err != nil {
			m.setError(err)
		}
		m.viewport.SetContent(m.ctrl.Document())
	}
	m.editing = editNone
	m.setStatus("")
	return m, nil
}

// ---- forms ----

func (m wizardModel) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m wizardModel) openProviderForm() (tea.Model, tea.Cmd) {
	m.values = newFormValues(m.ctrl.ProviderConfig())
	m.stage = formProviderSelect
	m.form = buildProviderSelectForm(m.values, m.formWidth())
	return m, m.form.Init()
}

func (m wizardModel) openResetForm() (tea.Model, tea.Cmd) {
	m.stage = formReset
	m.form = buildResetForm(m.values, m.formWidth())
	return m, m.form.Init()
}

func (m wizardModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		m.form = nil
		m.stage = formNone
		return m, nil
	case huh.StateCompleted:
		return m.finishForm()
	}
	return m, cmd
}

func (m wizardModel) finishForm() (tea.Model, tea.Cmd) {
	stage := m.stage
	m.form = nil
	m.stage = formNone

	switch stage {
	case formProviderSelect:
		m.values.applyPreset()
		m.stage = formProviderDetails
		m.form = buildProviderDetailsForm(m.values, m.formWidth())
		return m, m.form.Init()
	case formProviderDetails:
		return m.testProvider(m.values.config())
	case formReset:
		return m.finishReset(m.values.confirmReset)
	}
	return m, nil
}

// testProvider probes cfg; it is only committed when the probe succeeds.
func (m wizardModel) testProvider(cfg llm.ProviderConfig) (tea.Model, tea.Cmd) {
	if err := cfg.Validate(); err != nil {
		m.setError(err)
		return m, nil
	}
	m.validating = true
	m.setStatus("")

	ctrl := m.ctrl
	ctx, cancel := m.callContext()
	return m, func() tea.Msg {
		defer cancel()
		return connectionMsg{cfg: cfg, err: ctrl.TestConnection(ctx, cfg)}
	}
}

func (m wizardModel) finishReset(confirmed bool) (tea.Model, tea.Cmd) {
	if err := m.ctrl.Reset(confirmed); err != nil {
		m.setStatus("Kept your work.")
		return m, nil
	}
	m.topic.SetValue("")
	m.styleHint.SetValue("")
	m.cursor = 0
	m.mode = inputNone
	m.editing = editNone
	m.setFocus(focusTopic)
	m.setStatus("Started over.")
	return m, nil
}

// ---- status ----

func (m *wizardModel) setStatus(s string) {
	m.status = s
	m.err = nil
}

func (m *wizardModel) setError(err error) {
	m.logger.Warn(fmt.Sprintf("Wizard error: %v", err))
	m.status = ""
	m.err = err
}

func describeError(err error) string {
	switch llm.Classify(err) {
	case llm.KindConfig:
		return "Configuration problem: " + err.Error() + " (press p to change the provider)"
	case llm.KindTransport:
		return "Could not reach the model: " + err.Error()
	default:
		return err.Error()
	}
}

// ---- view ----

func (m wizardModel) View() string {
	sess := m.ctrl.Session()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("quill · step %d/4 · %s", int(sess.Step)+1, sess.Step)))
	b.WriteString("  ")
	b.WriteString(faintStyle.Render(m.ctrl.ProviderConfig().String()))
	b.WriteString("\n\n")

	switch {
	case m.form != nil:
		b.WriteString(m.form.View())
	case m.validating:
		b.WriteString(m.spinner.View() + " Testing connection...")
	case m.editing != editNone:
		b.WriteString(m.editor.View())
	default:
		switch sess.Step {
		case core.StepTopicAndOutline:
			b.WriteString(m.viewTopic(sess))
		case core.StepChapterDetails:
			b.WriteString(m.viewDetails(sess))
		case core.StepDrafting:
			b.WriteString(m.viewDrafting(sess))
		case core.StepFinalize:
			b.WriteString(m.viewport.View())
		}
	}

	if m.mode != inputNone {
		b.WriteString("\n\n" + m.input.View())
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(describeError(m.err)))
	} else if m.status != "" {
		b.WriteString("\n" + faintStyle.Render(m.status))
	}
	b.WriteString(helpStyle.Render(m.helpLine(sess.Step)))
	return b.String()
}

func (m wizardModel) viewTopic(sess core.Session) string {
	var b strings.Builder
	b.WriteString("Topic\n" + m.topic.View() + "\n\n")
	b.WriteString("Style\n" + m.styleHint.View() + "\n\n")

	if sess.OutlinesLoading {
		b.WriteString(m.spinner.View() + " Generating outlines...")
		return b.String()
	}

	for i, o := range sess.Outlines {
		marker := "  "
		if m.focus == focusOutlines && i == m.cursor {
			marker = "> "
		}
		name := o.Style
		if i == sess.SelectedOutline {
			name = selectedStyle.Render("● " + name)
		}
		b.WriteString(marker + name + "  " + faintStyle.Render(o.Description) + "\n")

		chapters := o.Chapters
		if i == sess.SelectedOutline {
			chapters = sess.ChapterTitles
		}
		l := list.New().Enumerator(list.Arabic)
		for _, c := range chapters {
			l.Item(c)
		}
		b.WriteString(lipgloss.NewStyle().MarginLeft(4).Render(l.String()) + "\n")
	}
	return b.String()
}

func (m wizardModel) viewDetails(sess core.Session) string {
	var b strings.Builder
	for i, ch := range sess.Chapters {
		b.WriteString(m.chapterHeader(i, ch, ch.PointsBusy()) + "\n")
		if len(ch.Points) == 0 {
			b.WriteString(faintStyle.Render("    no points yet, press g to generate") + "\n")
			continue
		}
		l := list.New().Enumerator(list.Bullet)
		for _, p := range ch.Points {
			l.Item(p)
		}
		b.WriteString(lipgloss.NewStyle().MarginLeft(4).Render(l.String()) + "\n")
	}
	return b.String()
}

func (m wizardModel) viewDrafting(sess core.Session) string {
	var b strings.Builder
	for i, ch := range sess.Chapters {
		b.WriteString(m.chapterHeader(i, ch, ch.IsGenerating))
		if ch.ChartImage != "" {
			b.WriteString(faintStyle.Render("  [chart]"))
		}
		b.WriteString("\n")
		if i == m.cursor && ch.Content != "" {
			preview := utils.TruncateString(ch.Content, contentPreviewLength)
			b.WriteString(lipgloss.NewStyle().MarginLeft(4).Width(max(m.width-8, 40)).Render(preview) + "\n")
		}
	}
	return b.String()
}

func (m wizardModel) chapterHeader(i int, ch core.ChapterDetail, busy bool) string {
	marker := "  "
	if i == m.cursor {
		marker = "> "
	}
	state := " "
	switch {
	case busy:
		state = m.spinner.View()
	case ch.Content != "" || (m.ctrl.Step() == core.StepChapterDetails && ch.HasPoints()):
		state = okStyle.Render("✓")
	}
	title := ch.Title
	if i == m.cursor {
		title = selectedStyle.Render(title)
	}
	return fmt.Sprintf("%s%s %s", marker, state, title)
}

func (m wizardModel) helpLine(step core.Step) string {
	m.syncKeys()
	var bindings []key.Binding
	switch {
	case m.form != nil:
		return "enter confirm · esc cancel"
	case m.mode != inputNone:
		return "enter submit · esc cancel"
	case m.editing != editNone:
		return "esc done"
	case step == core.StepTopicAndOutline && m.focus != focusOutlines:
		h := m.keys.Submit.Help()
		return h.Key + " " + h.Desc + " · tab switch field · ctrl+p provider · ctrl+r start over · esc quit"
	case step == core.StepTopicAndOutline:
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.EditTitles, m.keys.Generate, m.keys.Next, m.keys.Tab}
	case step == core.StepChapterDetails:
		bindings = []key.Binding{m.keys.Generate, m.keys.AddPoint, m.keys.RemovePoint, m.keys.Next, m.keys.Back}
	case step == core.StepDrafting:
		bindings = []key.Binding{m.keys.Generate, m.keys.Refine, m.keys.AttachImage, m.keys.ClearImage, m.keys.Next, m.keys.Back}
	default:
		bindings = []key.Binding{m.keys.Save, m.keys.Copy, m.keys.EditTitles, m.keys.Back}
	}
	bindings = append(bindings, m.keys.Provider, m.keys.Reset, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}
