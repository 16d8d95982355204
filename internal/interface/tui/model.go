// Package tui implements the terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"ipc-assist/internal/core/chat"
)

// ChatPort is the TUI-facing subset of the chat service.
type ChatPort interface {
	Ask(ctx context.Context, sessionID uuid.UUID, query string) (*chat.Turn, error)
	Sessions() *chat.SessionStore
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	service   ChatPort
	sessionID uuid.UUID
	input     textinput.Model
	viewport  viewport.Model
	turns     []chat.Turn
	status    string
	waiting   bool
	ready     bool
}

type answerMsg struct{ turn *chat.Turn }

type answerErrMsg struct{ err error }

// New creates a chat model bound to a fresh session.
func New(service ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the Indian Penal Code and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	session := service.Sessions().Create()
	return Model{
		service:   service,
		sessionID: session.ID,
		input:     ti,
		viewport:  vp,
		status:    "Ready. Type a question to begin.",
	}
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.String() == "esc" {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.waiting {
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.input.SetValue("")
				m.waiting = true
				m.status = "Thinking..."
				return m, m.askCmd(q)
			}
		}

	case answerMsg:
		m.waiting = false
		m.status = fmt.Sprintf("Answered from %d sections. Ask a follow-up or press Esc to quit.", len(msg.turn.Sources))
		m.turns = append(m.turns, *msg.turn)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case answerErrMsg:
		m.waiting = false
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("IPC Assist")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) askCmd(query string) tea.Cmd {
	return func() tea.Msg {
		turn, err := m.service.Ask(context.Background(), m.sessionID, query)
		if err != nil {
			return answerErrMsg{err: err}
		}
		return answerMsg{turn: turn}
	}
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions asked yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(queryStyle.Render("You: " + t.Query))
		b.WriteString("\n")
		for _, n := range t.Notices {
			b.WriteString(noticeStyle.Render(n))
			b.WriteString("\n")
		}
		b.WriteString(t.Answer)
		if len(t.Sources) > 0 {
			ids := make([]string, 0, len(t.Sources))
			for _, s := range t.Sources {
				ids = append(ids, s.SectionID)
			}
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render("Sources: " + strings.Join(ids, ", ")))
		}
	}
	return b.String()
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	noticeStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
