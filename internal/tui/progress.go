// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/stacks/internal/importer"
)

const defaultBarWidth = 48

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

type progressStyles struct {
	title   lipgloss.Style
	phase   lipgloss.Style
	counts  lipgloss.Style
	stalled lipgloss.Style
	done    lipgloss.Style
}

func newProgressStyles() progressStyles {
	return progressStyles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		phase: lipgloss.NewStyle().
			Foreground(lipgloss.Color("110")),
		counts: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")),
		stalled: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
		done: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("78")),
	}
}

type eventMsg importer.Event

type streamClosedMsg struct{}

func waitForEvent(events <-chan importer.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(event)
	}
}

type progressModel struct {
	sourceFile string
	events     <-chan importer.Event

	bar     progress.Model
	spin    spinner.Model
	styles  progressStyles
	current importer.Progress
	stalled string
	result  *importer.Result
}

func newProgressModel(sourceFile string, events <-chan importer.Event) *progressModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = defaultBarWidth

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &progressModel{
		sourceFile: sourceFile,
		events:     events,
		bar:        bar,
		spin:       spin,
		styles:     newProgressStyles(),
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.events))
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		event := importer.Event(msg)
		m.current = event.Progress
		switch event.Kind {
		case importer.EventStalled:
			m.stalled = event.Message
		case importer.EventDone:
			m.result = event.Result
			return m, tea.Quit
		default:
			// Progress clears an earlier stall notice.
			m.stalled = ""
		}
		return m, waitForEvent(m.events)

	case streamClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		// Cancellation goes through the OS signal handler; the view
		// itself only detaches.
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *progressModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render(fmt.Sprintf("Importing %s", m.sourceFile)))
	b.WriteString("\n\n")

	percent := 0.0
	if m.current.TotalRows > 0 {
		percent = float64(m.current.ProcessedRows) / float64(m.current.TotalRows)
	}
	b.WriteString(m.bar.ViewAs(percent))
	b.WriteString("\n\n")

	phaseLine := fmt.Sprintf("%s %s", m.spin.View(), m.current.Phase.String())
	if m.result != nil {
		phaseLine = m.styles.done.Render("import complete")
	}
	b.WriteString(m.styles.phase.Render(phaseLine))
	b.WriteString("\n")

	b.WriteString(m.styles.counts.Render(fmt.Sprintf(
		"%d/%d rows  ·  %d imported  ·  %d failed  ·  %d duplicates  ·  %d retries",
		m.current.ProcessedRows, m.current.TotalRows,
		m.current.SuccessCount, m.current.FailureCount,
		m.current.Duplicates, m.current.RetryAttempts,
	)))
	b.WriteString("\n")

	if m.stalled != "" {
		b.WriteString(m.styles.stalled.Render("⚠ " + m.stalled))
		b.WriteString("\n")
	}

	return b.String()
}

// RunProgress renders a live progress display for an import run and
// returns the final result once the event stream delivers it. The
// stream closing without a done event yields a nil result.
func RunProgress(sourceFile string, events <-chan importer.Event) (*importer.Result, error) {
	model := newProgressModel(sourceFile, events)
	final, err := runProgram(model)
	if err != nil {
		return nil, err
	}
	if m, ok := final.(*progressModel); ok {
		return m.result, nil
	}
	return model.result, nil
}
