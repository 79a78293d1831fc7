package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/villagemud/lua-runtime/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const tickInterval = 100 * time.Millisecond

type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	thread   *runtime.Thread
	filename string
	libs     []string
	quantum  int
	funcs    []string
	input    textinput.Model
	pumps    int
	values   []any
	selected int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateWatch
)

func newInteractiveModel(filename string, libs []string, quantum int) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		libs:     libs,
		quantum:  quantum,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	rt    *runtime.Runtime
	funcs []string
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadScript
}

func (m *interactiveModel) loadScript() tea.Msg {
	var opts []runtime.Option
	if len(m.libs) > 0 {
		opts = append(opts, runtime.WithLibraries(m.libs...))
	}
	if m.quantum > 0 {
		opts = append(opts, runtime.WithQuantum(m.quantum))
	}
	rt, err := runtime.New(opts...)
	if err != nil {
		return loadedMsg{err: err}
	}

	if err := rt.LoadFile(context.Background(), m.filename); err != nil {
		rt.Close()
		return loadedMsg{err: err}
	}

	return loadedMsg{rt: rt, funcs: rt.Functions()}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break // let the input take the keystroke
			}
			if m.rt != nil {
				m.rt.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.input = textinput.New()
				m.input.Placeholder = "args (space-separated, empty for none)"
				m.input.Width = 40
				m.input.Focus()
				m.state = stateInputArgs

			case stateInputArgs:
				if err := m.spawn(); err != nil {
					m.err = err
					m.state = stateSelectFunc
					return m, nil
				}
				m.state = stateWatch
				return m, tick()
			}

		case "esc":
			if m.state == stateInputArgs || m.state == stateWatch {
				m.state = stateSelectFunc
				m.thread = nil
				m.pumps = 0
				m.values = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.funcs = msg.funcs

	case tickMsg:
		if m.state != stateWatch || m.thread == nil {
			return m, nil
		}
		switch m.thread.Status() {
		case runtime.StateSuspended:
			st, err := m.thread.Pump(context.Background())
			m.pumps++
			if err != nil {
				m.err = err
				return m, nil
			}
			if st == runtime.StateDead {
				m.values, _ = m.thread.Values()
				return m, nil
			}
			return m, tick()
		}
	}

	if m.state == stateInputArgs {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) spawn() error {
	name := m.funcs[m.selected]
	var opts []runtime.SpawnOption
	if args := parseArgs(m.input.Value()); len(args) > 0 {
		opts = append(opts, runtime.SpawnWithArgs(args...))
	}
	th, err := m.rt.Spawn(name, opts...)
	if err != nil {
		return err
	}
	m.thread = th
	m.pumps = 0
	m.values = nil
	m.err = nil
	return nil
}

// parseArgs splits a space-separated argument line, reading numbers and
// booleans as such and leaving everything else a string.
func parseArgs(s string) []any {
	fields := strings.Fields(s)
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		switch f {
		case "true":
			args = append(args, true)
		case "false":
			args = append(args, false)
		case "nil":
			args = append(args, nil)
		default:
			if n, err := strconv.ParseFloat(f, 64); err == nil {
				args = append(args, n)
			} else {
				args = append(args, strings.Trim(f, `"`))
			}
		}
	}
	return args
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state == stateSelectFunc {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.rt == nil {
		return "Loading script..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Lua Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.funcs) == 0 {
			b.WriteString("The script defines no global functions.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a function to drive:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + f))
			} else {
				b.WriteString(cursor + f)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter spawn • q quit"))

	case stateInputArgs:
		b.WriteString(fmt.Sprintf("Spawning %s\n\n", funcStyle.Render(m.funcs[m.selected])))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter spawn • esc back"))

	case stateWatch:
		b.WriteString(fmt.Sprintf("Thread %s\n", funcStyle.Render(m.thread.Name())))
		b.WriteString(helpStyle.Render(m.thread.ID()))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("pumps:   %d\n", m.pumps))
		b.WriteString(fmt.Sprintf("quantum: %d\n", m.thread.Quantum()))
		b.WriteString("state:   ")
		b.WriteString(stateStyle.Render(m.thread.Status().String()))
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}
		if m.thread.Status() == runtime.StateDead {
			b.WriteString("\n")
			b.WriteString(resultStyle.Render(fmt.Sprintf("Result: %v", m.values)))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}

	return b.String()
}

func runInteractive(filename string, libs []string, quantum int) error {
	p := tea.NewProgram(newInteractiveModel(filename, libs, quantum), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
