package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sqlbench/internal/cli"
	"sqlbench/internal/engine"
)

const maxRecentLines = 8

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")).MarginBottom(1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	subtle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type progressMsg engine.Progress

type doneMsg []engine.TargetResult

// Model renders live benchmark progress: one shared bar over all scheduled
// runs plus the most recent per-run lines.
type Model struct {
	cfg      engine.Config
	updates  engine.ProgressChan
	results  chan []engine.TargetResult
	progress progress.Model

	startTime time.Time
	total     int
	completed int
	failed    int
	recent    []string

	final    []engine.TargetResult
	quitting bool
	width    int
}

func NewModel(cfg engine.Config, updates engine.ProgressChan, results chan []engine.TargetResult) Model {
	return Model{
		cfg:       cfg,
		updates:   updates,
		results:   results,
		progress:  progress.New(progress.WithDefaultGradient()),
		startTime: time.Now(),
		total:     len(cfg.Targets) * cfg.Runs,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenProgress(), m.listenDone())
}

func (m Model) listenProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.updates
		if !ok {
			return nil
		}
		return progressMsg(p)
	}
}

func (m Model) listenDone() tea.Cmd {
	return func() tea.Msg {
		return doneMsg(<-m.results)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}

	case progressMsg:
		m.completed++
		line := okStyle.Render(fmt.Sprintf("[%s] ✓ %d/%d: %.6fs", msg.Target, msg.RunIndex, msg.Runs, msg.Elapsed))
		if !msg.OK {
			m.failed++
			line = errStyle.Render(fmt.Sprintf("[%s] ✗ %d/%d: failed", msg.Target, msg.RunIndex, msg.Runs))
		}
		m.recent = append(m.recent, line)
		if len(m.recent) > maxRecentLines {
			m.recent = m.recent[len(m.recent)-maxRecentLines:]
		}

		pct := float64(m.completed) / float64(m.total)
		cmd := m.progress.SetPercent(pct)
		return m, tea.Batch(cmd, m.listenProgress())

	case doneMsg:
		m.final = msg
		m.quitting = true
		return m, tea.Quit

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := strings.Builder{}
	s.WriteString(titleStyle.Render("🚀 sqlbench"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Query: %s\n", m.cfg.Query))
	s.WriteString(subtle.Render(fmt.Sprintf("Targets: %d | Runs: %d each | Elapsed: %s",
		len(m.cfg.Targets), m.cfg.Runs, time.Since(m.startTime).Round(time.Second))))
	s.WriteString("\n\n")

	for _, line := range m.recent {
		s.WriteString(line)
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(fmt.Sprintf("Completed: %d/%d", m.completed, m.total))
	if m.failed > 0 {
		s.WriteString(errStyle.Render(fmt.Sprintf("  Failed: %d", m.failed)))
	}
	s.WriteString("\n")
	s.WriteString(m.progress.View())
	s.WriteString("\n")
	s.WriteString(subtle.Render("Press q to quit"))

	return s.String()
}

// Start runs the benchmark behind a live progress view, then finalizes like
// the headless mode (summaries, CSV, history).
func Start(ctx context.Context, cfg engine.Config, outFile string) error {
	updates := make(engine.ProgressChan, 100)
	resultCh := make(chan []engine.TargetResult, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e := engine.New(cfg, updates)
	go func() {
		resultCh <- e.Run(ctx)
	}()

	m := NewModel(cfg, updates, resultCh)
	p := tea.NewProgram(m)

	out, err := p.Run()
	if err != nil {
		return err
	}

	// Quitting early cancels the engine; it still hands back what it has.
	final, _ := out.(Model)
	results := final.final
	if results == nil {
		cancel()
		results = <-resultCh
	}

	return cli.Finalize(cfg, outFile, results)
}
