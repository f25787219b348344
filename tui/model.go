// Package tui provides the Bubble Tea terminal UI for sitepulse, showing
// live progress while checks run and a styled summary of the report.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
)

// ErrCancelled is returned by Run when the user quits before the run ends.
var ErrCancelled = errors.New("run cancelled")

// RunFunc performs one run. It must honor ctx.
type RunFunc func(ctx context.Context) *result.Report

type kindProgress struct {
	done      int
	total     int
	unhealthy int
}

// Model is the Bubble Tea model for a check run.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	run      RunFunc
	progress *Progress
	spinner  spinner.Model

	kinds        map[site.Kind]*kindProgress
	current      string
	linksChecked int
	linksBroken  int
	quitting     bool
	done         bool
	report       *result.Report
}

// NewModel creates a model that runs run and listens on progress.
func NewModel(ctx context.Context, cancel context.CancelFunc, run RunFunc, progress *Progress) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	kinds := make(map[site.Kind]*kindProgress, len(site.Kinds))
	for _, k := range site.Kinds {
		kinds[k] = &kindProgress{}
	}
	return Model{
		ctx:      ctx,
		cancel:   cancel,
		run:      run,
		progress: progress,
		spinner:  spin,
		kinds:    kinds,
	}
}

// Init starts the spinner, the run and the progress listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(), m.progress.wait())
}

func (m Model) startRun() tea.Cmd {
	return func() tea.Msg {
		return RunDoneMsg{Report: m.run(m.ctx)}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case SiteMsg:
		kp := m.kinds[msg.Kind]
		if kp == nil {
			kp = &kindProgress{}
			m.kinds[msg.Kind] = kp
		}
		kp.total = msg.Total
		if msg.Done {
			kp.done++
			if !msg.Healthy {
				kp.unhealthy++
			}
		} else {
			m.current = fmt.Sprintf("%s %s", msg.Kind, msg.SiteID)
		}
		return m, m.progress.wait()

	case LinkMsg:
		m.linksChecked++
		if msg.Broken {
			m.linksBroken++
		}
		m.current = "links " + msg.URL
		return m, m.progress.wait()

	case RunDoneMsg:
		m.done = true
		m.report = msg.Report
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done {
		return RenderSummary(m.report)
	}
	if m.quitting {
		return dimStyle.Render("Cancelled.") + "\n"
	}

	var parts []string
	for _, k := range site.Kinds {
		kp := m.kinds[k]
		if kp.total == 0 {
			continue
		}
		part := fmt.Sprintf("%s %d/%d", k, kp.done, kp.total)
		if kp.unhealthy > 0 {
			part += errorStyle.Render(fmt.Sprintf(" (%d unhealthy)", kp.unhealthy))
		}
		parts = append(parts, part)
	}
	line := strings.Join(parts, "  ")
	if line == "" {
		line = "starting"
	}

	return fmt.Sprintf("%s Checking... %s\n%s\n%s\n",
		m.spinner.View(), line,
		dimStyle.Render(fmt.Sprintf("  links checked %d, broken %d", m.linksChecked, m.linksBroken)),
		dimStyle.Render("  "+m.current))
}

// Report returns the finished report, nil while running or after a cancel.
func (m Model) Report() *result.Report {
	return m.report
}

// Run drives the TUI on out until run returns or the user quits.
func Run(ctx context.Context, out io.Writer, run RunFunc, progress *Progress, opts ...tea.ProgramOption) (*result.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer progress.Stop()

	opts = append([]tea.ProgramOption{tea.WithOutput(out), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(ctx, cancel, run, progress), opts...)
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, fmt.Errorf("run tui: %w", err)
	}
	m, ok := final.(Model)
	if !ok || m.report == nil {
		return nil, ErrCancelled
	}
	return m.report, nil
}
