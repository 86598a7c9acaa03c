// Package tui is the live vitals panel behind `scenevitals watch`.
//
// The panel re-runs the analysis when it starts, when the scene file is
// saved, when the user presses r, and on a timer whose period follows the
// cost of the previous analysis.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scenevitals/internal/profiler"
	"scenevitals/internal/vitals"
	"scenevitals/internal/watch"
)

// AnalyzeFunc loads the scene afresh and analyzes it.
type AnalyzeFunc func() (*profiler.Report, error)

type keyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Refresh, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func defaultKeys() keyMap {
	return keyMap{
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// Messages.
type (
	reportMsg struct {
		report *profiler.Report
		err    error
	}
	// tickMsg carries the generation it was scheduled for; older ticks are
	// dropped once a newer analysis has rescheduled the timer.
	tickMsg    struct{ gen int }
	changeMsg  watch.Change
	watchEnded struct{}
)

// Model is the bubbletea model of the panel.
type Model struct {
	analyze AnalyzeFunc
	changes <-chan watch.Change

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	panel   *vitals.Panel
	err     error
	busy    bool
	pending bool
	gen     int
	runs    int
}

// New returns a panel model. changes may be nil when no watcher is used.
// The first analysis starts with Init.
func New(analyze AnalyzeFunc, changes <-chan watch.Change) Model {
	return Model{
		busy:    true,
		analyze: analyze,
		changes: changes,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.analysisCmd(), m.waitChange())
}

func (m Model) analysisCmd() tea.Cmd {
	analyze := m.analyze
	return func() tea.Msg {
		r, err := analyze()
		return reportMsg{report: r, err: err}
	}
}

// start marks the model busy and returns the analysis command.
func (m *Model) start() tea.Cmd {
	m.busy = true
	m.pending = false
	return m.analysisCmd()
}

func (m Model) waitChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return watchEnded{}
		}
		return changeMsg(c)
	}
}

// request runs an analysis now, or once the running one finishes.
func (m *Model) request() tea.Cmd {
	if m.busy {
		m.pending = true
		return nil
	}
	return m.start()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.request()
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case reportMsg:
		m.busy = false
		m.runs++
		m.gen++
		interval := vitals.MinRefresh
		if msg.err != nil {
			m.err = msg.err
		} else {
			p := vitals.NewPanel(msg.report)
			m.panel = &p
			m.err = nil
			interval = p.RefreshEvery
		}
		gen := m.gen
		tick := tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
		if m.pending {
			return m, tea.Batch(tick, m.start())
		}
		return m, tick

	case tickMsg:
		if msg.gen != m.gen || m.busy {
			return m, nil
		}
		return m, m.start()

	case changeMsg:
		return m, tea.Batch(m.request(), m.waitChange())

	case watchEnded:
		m.changes = nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Width(17)
)

func (m Model) View() string {
	var b strings.Builder

	title := "Scene Vitals"
	if m.panel != nil && m.panel.Scene != "" {
		title += " · " + m.panel.Scene
	}
	b.WriteString(titleStyle.Render(title))
	if m.busy {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(vitals.WarningStyle.Render("analysis failed: "+m.err.Error()) + "\n\n")
	}

	if p := m.panel; p != nil {
		writeRow(&b, p.Verts)
		writeRow(&b, p.SharedTextures)
		b.WriteString(vitals.MutedStyle.Render(fmt.Sprintf("  materials %s  lightmaps %s", p.MaterialTextures, p.LightmapTextures)))
		if p.ReflectionProbes != "" {
			b.WriteString(vitals.MutedStyle.Render("  reflection probes " + p.ReflectionProbes))
		}
		b.WriteString("\n")
		writeRow(&b, p.Materials)
		b.WriteString("\n")

		if p.NoLightmaps {
			b.WriteString(vitals.WarningStyle.Render("! no lightmaps") + "\n")
		}
		if p.NoLightProbes {
			b.WriteString(vitals.WarningStyle.Render("! no light probes") + "\n")
		}
		if p.DenseColliders {
			b.WriteString(vitals.WarningStyle.Render("! high density mesh colliders") + "\n")
		}
		b.WriteString(vitals.MutedStyle.Render(fmt.Sprintf("analysis %s · refresh every %s",
			p.AnalysisDuration.Round(time.Microsecond), p.RefreshEvery.Round(time.Second))) + "\n")
	} else if m.err == nil {
		b.WriteString(vitals.MutedStyle.Render("analyzing…") + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys) + "\n")
	return b.String()
}

func writeRow(b *strings.Builder, r vitals.Row) {
	value := r.Tier.Style().Render(r.Value)
	fmt.Fprintf(b, "%s%s / %s\n", labelStyle.Render(r.Label), value, r.Max)
}

// Run starts the panel on the terminal and blocks until the user quits.
func Run(analyze AnalyzeFunc, changes <-chan watch.Change, opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(New(analyze, changes), opts...).Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
