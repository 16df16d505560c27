package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/wippyai/debug-eval/debuginfo"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	exprStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	frameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxEntries bounds the scrollback kept by the TUI.
const maxEntries = 200

type entry struct {
	err    error
	input  string
	result string
}

type interactiveModel struct {
	s       *session
	w       *debuginfo.Watcher
	notice  string
	entries []entry
	history []string
	input   textinput.Model
	histIdx int
	height  int
}

func newInteractiveModel(s *session, w *debuginfo.Watcher) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "expression or :help"
	ti.Prompt = s.prompt()
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{s: s, w: w, input: ti, height: 24}
}

type reloadMsg struct {
	err error
	img *debuginfo.Image
}

// waitReload blocks until the watcher produces an image or an error.
func (m *interactiveModel) waitReload() tea.Msg {
	select {
	case img, ok := <-m.w.Images():
		if !ok {
			return nil
		}
		return reloadMsg{img: img}
	case err, ok := <-m.w.Errors():
		if !ok {
			return nil
		}
		return reloadMsg{err: err}
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	if m.w != nil {
		return tea.Batch(textinput.Blink, m.waitReload)
	}
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = max(msg.Width-len(m.input.Prompt)-2, 10)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "up":
			if m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.histIdx < len(m.history)-1 {
				m.histIdx++
				m.input.SetValue(m.history[m.histIdx])
			} else {
				m.histIdx = len(m.history)
				m.input.SetValue("")
			}
			m.input.CursorEnd()
			return m, nil

		case "tab":
			m.nextFrame()
			return m, nil

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.history = append(m.history, line)
			m.histIdx = len(m.history)

			out, err := m.s.exec(context.Background(), line)
			if stderrors.Is(err, errQuit) {
				return m, tea.Quit
			}
			m.push(entry{input: line, result: out, err: err})
			m.input.Prompt = m.s.prompt()
			return m, nil
		}

	case reloadMsg:
		if msg.err != nil {
			m.notice = errorStyle.Render("reload: " + msg.err.Error())
		} else if err := m.s.install(msg.img); err != nil {
			m.notice = errorStyle.Render("reload: " + err.Error())
		} else {
			m.notice = helpStyle.Render(fmt.Sprintf("reloaded (generation %d)", msg.img.Generation))
		}
		m.input.Prompt = m.s.prompt()
		return m, m.waitReload
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) push(e entry) {
	m.entries = append(m.entries, e)
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
}

func (m *interactiveModel) nextFrame() {
	names := m.s.in.Image().FrameNames()
	if len(names) == 0 {
		return
	}
	next := names[0]
	for i, n := range names {
		if n == m.s.frameName {
			next = names[(i+1)%len(names)]
		}
	}
	if err := m.s.selectFrame(next); err != nil {
		m.notice = errorStyle.Render(err.Error())
		return
	}
	m.input.Prompt = m.s.prompt()
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("debug-eval"))
	b.WriteString(" ")
	if src := m.s.in.Image().Source; src != "" {
		b.WriteString(src)
		b.WriteString(" ")
	}
	b.WriteString(frameStyle.Render("frame " + m.s.frameName))
	b.WriteString("\n\n")

	// Keep the newest entries that fit above the input line.
	var lines []string
	for _, e := range m.entries {
		lines = append(lines, exprStyle.Render("> "+e.input))
		switch {
		case e.err != nil:
			lines = append(lines, errorStyle.Render("error: "+e.err.Error()))
		case e.result != "":
			lines = append(lines, strings.Split(resultStyle.Render(e.result), "\n")...)
		}
	}
	if room := m.height - 6; room > 0 && len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter evaluate • ↑/↓ history • tab next frame • esc quit"))
	return b.String()
}

func runInteractive(s *session, w *debuginfo.Watcher) error {
	p := tea.NewProgram(newInteractiveModel(s, w), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
