package ui

import (
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned by RunTask when the user presses Ctrl+C.
var ErrCancelled = errors.New("cancelled")

type taskDoneMsg struct{ err error }

// TaskModel shows a spinner while work runs on its own goroutine.
type TaskModel struct {
	spinner spinner.Model
	label   string
	work    func() error
	done    bool
	err     error
}

// NewTaskModel creates a model that runs work and quits when it returns.
func NewTaskModel(label string, work func() error) TaskModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return TaskModel{spinner: s, label: label, work: work}
}

// Init implements tea.Model
func (m TaskModel) Init() tea.Cmd {
	work := m.work
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return taskDoneMsg{err: work()}
	})
}

// Update implements tea.Model
func (m TaskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m TaskModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + m.label + "\n"
}

// Err returns the work's error once the model is done.
func (m TaskModel) Err() error {
	return m.err
}

// RunTask runs work behind a spinner. Outside a terminal, work runs
// directly with no animation.
func RunTask(label string, work func() error) error {
	if !IsTerminal() {
		return work()
	}
	final, err := tea.NewProgram(NewTaskModel(label, work)).Run()
	if err != nil {
		return err
	}
	return final.(TaskModel).Err()
}
