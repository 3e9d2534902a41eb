package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"juru.id/realtime"
)

type updateMsg struct{}

type opDoneMsg struct {
	err error
}

type model struct {
	client *realtime.Client
	view   realtime.View

	sourcePane viewport.Model
	targetPane viewport.Model
	input      textinput.Model

	width   int
	height  int
	ready   bool
	showLog bool
	typing  bool
}

func initialModel(client *realtime.Client) model {
	input := textinput.New()
	input.Placeholder = "Type a message and press Enter"
	input.CharLimit = 500
	return model{
		client: client,
		view:   client.Snapshot(),
		input:  input,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForUpdate(m.client.Updates()),
		startSession(m.client),
	)
}

func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return updateMsg{}
	}
}

func startSession(client *realtime.Client) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: client.Start(context.Background())}
	}
}

func reconnectSession(client *realtime.Client) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: client.Reconnect(context.Background())}
	}
}

func switchMode(client *realtime.Client, target realtime.Mode) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: client.SwitchMode(context.Background(), target)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.typing {
			switch msg.String() {
			case "enter":
				text := strings.TrimSpace(m.input.Value())
				if text != "" {
					if err := m.client.SendText(text); err == nil {
						m.input.Reset()
					}
				}
			case "esc":
				m.typing = false
				m.input.Blur()
			default:
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			m.client.Stop()
			return m, tea.Quit
		case " ":
			m.client.SetMuted(!m.view.MicMuted)
		case "i", "/":
			m.typing = true
			cmds = append(cmds, m.input.Focus())
		case "r":
			cmds = append(cmds, reconnectSession(m.client))
		case "c":
			m.client.Clear()
		case "m":
			target := realtime.ModeQA
			if m.view.Mode == realtime.ModeQA {
				target = realtime.ModeInterpreter
			}
			cmds = append(cmds, switchMode(m.client, target))
		case "tab":
			m.showLog = !m.showLog
			m.refreshPanes()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshPanes()

	case updateMsg:
		m.view = m.client.Snapshot()
		m.refreshPanes()
		cmds = append(cmds, waitForUpdate(m.client.Updates()))

	case opDoneMsg:
		m.view = m.client.Snapshot()
		m.refreshPanes()
	}

	m.sourcePane, cmd = m.sourcePane.Update(msg)
	cmds = append(cmds, cmd)
	m.targetPane, cmd = m.targetPane.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) layout() {
	headerHeight := lipgloss.Height(m.headerView())
	footerHeight := lipgloss.Height(m.footerView())
	inputHeight := 1
	paneHeight := m.height - headerHeight - footerHeight - inputHeight
	if paneHeight < 1 {
		paneHeight = 1
	}
	paneWidth := m.width / 2

	if !m.ready {
		m.sourcePane = viewport.New(paneWidth, paneHeight)
		m.targetPane = viewport.New(m.width-paneWidth, paneHeight)
	} else {
		m.sourcePane.Width = paneWidth
		m.sourcePane.Height = paneHeight
		m.targetPane.Width = m.width - paneWidth
		m.targetPane.Height = paneHeight
	}
}

func (m *model) refreshPanes() {
	if m.showLog {
		m.sourcePane.SetContent(m.logView())
		m.targetPane.SetContent("")
	} else {
		m.sourcePane.SetContent(entriesView(m.view.Source, ""))
		m.targetPane.SetContent(entriesView(m.view.Target, m.view.Pending))
	}
	m.sourcePane.GotoBottom()
	m.targetPane.GotoBottom()
}

var pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

func entriesView(entries []realtime.Entry, pending string) string {
	var content strings.Builder
	for _, e := range entries {
		content.WriteString(e.Timestamp)
		content.WriteString("  ")
		content.WriteString(e.Text)
		content.WriteString("\n")
	}
	if pending != "" {
		content.WriteString(pendingStyle.Render(pending))
		content.WriteString("\n")
	}
	return content.String()
}

func (m model) logView() string {
	var content strings.Builder
	for _, entry := range m.view.Events {
		content.WriteString(entry)
		content.WriteString("\n")
	}
	return content.String()
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.sourcePane.View(),
		m.targetPane.View(),
	)
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		m.headerView(),
		panes,
		m.input.View(),
		m.footerView(),
	)
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)
	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F56"))
)

func (m model) headerView() string {
	title := titleStyle.Render("Juru " + modeLabel(m.view.Mode))
	status := statusStyle.Render(statusLabel(m.view))
	line := strings.Repeat("─", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(status)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, line, status)
}

func (m model) footerView() string {
	hints := "space talk · i type · r reconnect · c clear · m mode · tab log · q quit"
	mic := "mic muted"
	if !m.view.MicMuted {
		mic = "mic LIVE"
	}
	info := statusStyle.Render(mic)
	left := hints
	if m.view.Err != nil {
		left = alertStyle.Render(m.view.Err.Error())
	}
	line := strings.Repeat("─", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(info)))
	return lipgloss.JoinHorizontal(lipgloss.Center, left, line, info)
}

func modeLabel(mode realtime.Mode) string {
	if mode == realtime.ModeQA {
		return "Q&A"
	}
	return "Interpreter"
}

func statusLabel(view realtime.View) string {
	switch {
	case view.Switching:
		return "switching..."
	case view.Connecting:
		return "connecting..."
	case !view.Active:
		return "offline"
	default:
		return string(view.Status)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
