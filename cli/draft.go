package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/logger"
)

type draftState int

const (
	draftProcessing draftState = iota
	draftFinished
	draftFailed
)

const maxProgressWidth = 80

var draftSteps = []struct {
	step    core.StepType
	present string
	past    string
}{
	{core.GenerateOutlines, "Generating outlines.", "Generated outlines."},
	{core.SelectOutline, "Selecting outline.", "Selected outline."},
	{core.GenerateChapterPoints, "Generating chapter points.", "Generated chapter points."},
	{core.AttachChartImages, "Attaching chart images.", "Attached chart images."},
	{core.GenerateChapterContents, "Drafting chapters.", "Drafted chapters."},
	{core.AssembleDocumentStep, "Assembling document.", "Assembled document."},
	{core.ExportDocument, "Exporting document.", "Exported document."},
	{core.Done, "Done.", "Done."},
}

type draftResultMsg ExecutionResult

type draftModel struct {
	spinner        spinner.Model
	progress       progress.Model
	state          draftState
	request        *core.Request
	completedSteps []core.StepType
	engine         *Engine
	publisher      *CliStepPublisher
	logger         logger.Logger
	timeout        time.Duration
	result         ExecutionResult
	err            error
}

func newDraftModel(engine *Engine, pub *CliStepPublisher, r *core.Request, timeout time.Duration, l logger.Logger) draftModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	return draftModel{
		spinner:   s,
		progress:  progress.New(progress.WithGradient("#FFBA08", "#F48C06")),
		state:     draftProcessing,
		request:   r,
		engine:    engine,
		publisher: pub,
		logger:    l,
		timeout:   timeout,
	}
}

func (m draftModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startDrafting())
}

func (m draftModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.logger.Debug("User interrupted drafting")
			message := faintStyle.Render("Interrupted. Exiting quill...")
			return m, tea.Sequence(tea.Printf("%s", message), tea.Quit)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.progress.Width = min(msg.Width-4, maxProgressWidth)
		return m, nil

	case core.StepType:
		return m.handleStep(msg)

	case stepFailure:
		m.logger.Error(fmt.Sprintf("Error received during drafting: %v", msg))
		m.state = draftFailed
		m.err = msg
		return m, tea.Sequence(tea.Printf("%s", errorStyle.Render("Error: "+describeError(msg))), tea.Quit)

	case draftResultMsg:
		m.result = ExecutionResult(msg)
		if msg.Err != nil {
			if m.state == draftFailed {
				return m, nil
			}
			m.state = draftFailed
			m.err = msg.Err
			return m, tea.Sequence(tea.Printf("%s", errorStyle.Render("Error: "+describeError(msg.Err))), tea.Quit)
		}
		return m.finish()

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m draftModel) View() string {
	if m.state == draftFailed {
		return ""
	}

	enumerator := func(_ list.Items, i int) string {
		if i < len(m.completedSteps) {
			return okStyle.Render("✓")
		}
		return m.spinner.View()
	}

	l := list.New().Enumerator(enumerator)
	for i, s := range draftSteps {
		if i < len(m.completedSteps) {
			l.Item(s.past)
		} else if i == len(m.completedSteps) {
			l.Item(s.present)
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprint(l))
	b.WriteString("\n\n  " + m.progress.View() + "\n")
	return b.String()
}

func (m draftModel) startDrafting() tea.Cmd {
	resultChan := m.engine.AddRequest(m.request)
	listenForResult := func() tea.Msg {
		var timeout <-chan time.Time
		if m.timeout > 0 {
			timeout = time.After(m.timeout)
		}
		select {
		case res := <-resultChan:
			return draftResultMsg(res)
		case <-timeout:
			m.logger.Error("Drafting timed out")
			return draftResultMsg{Err: fmt.Errorf("drafting: %w", context.DeadlineExceeded)}
		}
	}
	return tea.Batch(m.listenForNextStep, listenForResult)
}

func (m draftModel) listenForNextStep() tea.Msg {
	select {
	case step := <-m.publisher.stepChan:
		return step
	case f := <-m.publisher.errorChan:
		return f
	}
}

func (m draftModel) handleStep(step core.StepType) (tea.Model, tea.Cmd) {
	m.logger.Debug(fmt.Sprintf("Received step: %v", step))
	m.completedSteps = append(m.completedSteps, step)
	cmd := m.progress.SetPercent(float64(len(m.completedSteps)) / float64(len(draftSteps)))
	if step == core.Done {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.listenForNextStep)
}

func (m draftModel) finish() (tea.Model, tea.Cmd) {
	m.state = draftFinished
	m.logger.Info("Drafting finished.")

	sess := m.result.Session
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	var msg string
	if m.result.ExportPath != "" {
		msg = fmt.Sprintf("%s Drafted %d chapters in %s style: %s",
			okStyle.Render("✓"), len(sess.Chapters), sess.Style, nameStyle.Render(m.result.ExportPath))
	} else {
		msg = fmt.Sprintf("%s Drafted %d chapters in %s style.", okStyle.Render("✓"), len(sess.Chapters), sess.Style)
	}
	return m, tea.Sequence(tea.Printf("%s", msg), tea.Quit)
}

// Err reports why drafting stopped, if it did not finish.
func (m draftModel) Err() error {
	if m.state == draftProcessing {
		return errors.New("drafting interrupted")
	}
	return m.err
}
