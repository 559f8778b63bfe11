package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
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

// chromeLines is the number of view lines around the node list.
const chromeLines = 8

type modelState int

const (
	stateSelectNode modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	cfg      *runtime.Config
	program  *format.Program
	filename string
	args     []string
	input    textinput.Model
	result   evalResultMsg
	selected int
	offset   int
	height   int
	state    modelState
}

func newInteractiveModel(filename string, cfg *runtime.Config, args []string) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "args: "
	ti.Placeholder = `1 2.5 true nil "quoted string"`
	ti.Width = 40
	return &interactiveModel{
		cfg:      cfg,
		filename: filename,
		args:     args,
		input:    ti,
		height:   24,
		state:    stateSelectNode,
	}
}

type loadedMsg struct {
	err     error
	program *format.Program
}

type evalResultMsg struct {
	err    error
	id     uint32
	result string
	output string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadProgram
}

func (m *interactiveModel) loadProgram() tea.Msg {
	ctx := context.Background()
	rt, err := runtime.New(ctx, m.cfg)
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := rt.LoadFile(ctx, m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{program: mod.Program()}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.scroll()

	case tea.KeyMsg:
		if m.state == stateInputArgs {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectNode && m.selected > 0 {
				m.selected--
				m.scroll()
			}

		case "down", "j":
			if m.state == stateSelectNode && m.program != nil && m.selected < len(m.program.Nodes)-1 {
				m.selected++
				m.scroll()
			}

		case "e":
			if m.state == stateSelectNode && m.program != nil {
				if i, ok := m.program.Index()[m.program.Metadata.EntryPoint]; ok {
					m.selected = i
					m.scroll()
					return m, m.evaluate(m.program.Metadata.EntryPoint)
				}
			}

		case "a":
			if m.state == stateSelectNode {
				m.input.SetValue(strings.Join(m.args, " "))
				m.input.CursorEnd()
				m.input.Focus()
				m.state = stateInputArgs
				return m, textinput.Blink
			}

		case "enter":
			switch m.state {
			case stateSelectNode:
				if m.program != nil && len(m.program.Nodes) > 0 {
					return m, m.evaluate(m.program.Nodes[m.selected].ResultID)
				}
			case stateShowResult:
				m.state = stateSelectNode
			}

		case "esc":
			if m.state == stateShowResult {
				m.state = stateSelectNode
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.program = msg.program
		if i, ok := m.program.Index()[m.program.Metadata.EntryPoint]; ok {
			m.selected = i
			m.scroll()
		}

	case evalResultMsg:
		m.result = msg
		m.state = stateShowResult
	}

	return m, nil
}

func (m *interactiveModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.args = splitArgs(m.input.Value())
		m.input.Blur()
		m.state = stateSelectNode
		return m, nil
	case "esc":
		m.input.Blur()
		m.state = stateSelectNode
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// scroll keeps the selected node inside the visible window.
func (m *interactiveModel) scroll() {
	rows := max(m.height-chromeLines, 1)
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}
}

// evaluate runs one node in a fresh instance so every evaluation starts
// from an empty memo table, heap and async registry.
func (m *interactiveModel) evaluate(id uint32) tea.Cmd {
	program := m.program
	args := parseArgs(m.args)
	cfg := *m.cfg
	return func() tea.Msg {
		ctx := context.Background()
		var out bytes.Buffer
		cfg.Output = &out

		rt, err := runtime.New(ctx, &cfg)
		if err != nil {
			return evalResultMsg{id: id, err: err}
		}
		mod, err := rt.LoadProgram(program)
		if err != nil {
			return evalResultMsg{id: id, err: err}
		}
		inst, err := mod.Instantiate(ctx)
		if err != nil {
			return evalResultMsg{id: id, err: err}
		}
		defer inst.Close(ctx)

		if err := inst.Bind(args...); err != nil {
			return evalResultMsg{id: id, err: err}
		}
		v, err := inst.Eval(id)
		if err != nil {
			return evalResultMsg{id: id, err: err, output: out.String()}
		}
		return evalResultMsg{
			id:     id,
			result: fmt.Sprintf("%s (%s)", v, v.Kind()),
			output: out.String(),
		}
	}
}

// splitArgs splits on spaces, keeping double-quoted runs together.
func splitArgs(s string) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == ' ' && !quoted:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.program == nil {
		return "Loading program..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("DER Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")
	b.WriteString(typeStyle.Render("args: " + strings.Join(m.args, " ")))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectNode:
		b.WriteString("Select a node to evaluate:\n\n")
		if len(m.program.Nodes) == 0 {
			b.WriteString(helpStyle.Render("  (no nodes)"))
			b.WriteString("\n")
		}
		rows := max(m.height-chromeLines, 1)
		end := min(m.offset+rows, len(m.program.Nodes))
		for i := m.offset; i < end; i++ {
			line := m.formatNode(m.program.Nodes[i])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter eval • e entry • a args • q quit"))

	case stateInputArgs:
		b.WriteString("Host arguments, bound to slots 1000 and up:\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter save • esc cancel"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(fmt.Sprintf("%%%d", m.result.id))))
		if m.result.output != "" {
			b.WriteString(m.result.output)
			if !strings.HasSuffix(m.result.output, "\n") {
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
		if m.result.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.result.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatNode(n format.Node) string {
	s := n.String()
	if n.ResultID == m.program.Metadata.EntryPoint {
		s += " " + typeStyle.Render("(entry)")
	}
	return s
}

func runInteractive(filename string, cfg *runtime.Config, args []string) error {
	p := tea.NewProgram(newInteractiveModel(filename, cfg, args), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
