package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"scenevitals/internal/budget"
	"scenevitals/internal/settings"
)

// question is one prompt of the init form. Default is shown as the
// placeholder and used when the answer is left empty.
type question struct {
	Key     string
	Prompt  string
	Default string
}

func budgetQuestions() []question {
	d := budget.Default()
	return []question{
		{Key: "max_verts", Prompt: "Vertex budget", Default: strconv.Itoa(d.MaxVerts)},
		{Key: "max_unique_materials", Prompt: "Unique material budget", Default: strconv.Itoa(d.MaxUniqueMaterials)},
		{Key: "max_shared_texture_mb", Prompt: "Shared texture budget (MB)", Default: strconv.Itoa(d.MaxSharedTextureMB)},
		{Key: "max_collider_verts", Prompt: "Mesh collider vertex budget", Default: strconv.Itoa(d.MaxColliderVerts)},
	}
}

// applyBudgetAnswers stores every non-empty answer as an override.
func applyBudgetAnswers(b *settings.Budgets, answers map[string]string) error {
	targets := map[string]**int{
		"max_verts":             &b.MaxVerts,
		"max_unique_materials":  &b.MaxUniqueMaterials,
		"max_shared_texture_mb": &b.MaxSharedTextureMB,
		"max_collider_verts":    &b.MaxColliderVerts,
	}
	for _, q := range budgetQuestions() {
		key, dst := q.Key, targets[q.Key]
		s := strings.TrimSpace(answers[key])
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: %q is not a whole number", key, s)
		}
		*dst = &v
	}
	return nil
}

// ---------------------------------------------------------------------------
// TUI prompt helpers
// ---------------------------------------------------------------------------

// promptModel is a bubbletea model that asks one question at a time.
type promptModel struct {
	questions []question
	idx       int
	inputs    []textinput.Model
	done      bool
}

func newPromptModel(questions []question) promptModel {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.Default
		ti.CharLimit = 12
		inputs[i] = ti
	}
	m := promptModel{
		questions: questions,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	return fmt.Sprintf("%s: %s\n", q.Prompt, m.inputs[m.idx].View())
}

// answers returns the typed values keyed by question.Key.
func (m promptModel) answers() map[string]string {
	out := make(map[string]string, len(m.questions))
	for i, q := range m.questions {
		out[q.Key] = m.inputs[i].Value()
	}
	return out
}

// promptQuestions runs the TUI and returns answers keyed by question.Key.
func promptQuestions(questions []question) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	result, err := tea.NewProgram(newPromptModel(questions)).Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, fmt.Errorf("prompt cancelled")
	}
	return final.answers(), nil
}
