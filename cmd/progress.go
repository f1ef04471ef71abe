package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wanderlust/internal/domain"
	"wanderlust/internal/usecase"
)

type attemptDoneMsg struct{}

// sagaProgressModel shows the visible stage of one booking attempt until it
// resolves. The stage is re-read on every spinner tick.
type sagaProgressModel struct {
	spinner spinner.Model
	styles  styles
	attempt *usecase.Attempt
	trail   []domain.SagaStage
	done    bool
}

func newSagaProgressModel(a *usecase.Attempt, st styles) sagaProgressModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)
	m := sagaProgressModel{spinner: s, styles: st, attempt: a}
	m.observe()
	return m
}

func waitForAttempt(a *usecase.Attempt) tea.Cmd {
	return func() tea.Msg {
		<-a.Done()
		return attemptDoneMsg{}
	}
}

func (m *sagaProgressModel) observe() {
	stage := m.attempt.Stage()
	if n := len(m.trail); n == 0 || m.trail[n-1] != stage {
		m.trail = append(m.trail, stage)
	}
}

func (m sagaProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForAttempt(m.attempt))
}

func (m sagaProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.observe()
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case attemptDoneMsg:
		m.observe()
		m.done = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m sagaProgressModel) View() string {
	labels := make([]string, 0, len(m.trail))
	for _, s := range m.trail {
		labels = append(labels, m.styles.stage(s))
	}
	line := strings.Join(labels, " > ")
	if m.done {
		return line + "\n"
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), line)
}

// runSagaProgress renders a's progress on output and returns once the attempt
// has resolved or ctx is done.
func runSagaProgress(ctx context.Context, output io.Writer, a *usecase.Attempt, st styles) error {
	p := tea.NewProgram(
		newSagaProgressModel(a, st),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if _, ok := finalModel.(sagaProgressModel); !ok {
		return fmt.Errorf("unexpected final progress model type %T", finalModel)
	}
	return nil
}
