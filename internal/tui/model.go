// Package tui is the terminal front end of the customer chat.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

const help = "/read  /retry  /rate <1-5> [comment]  /eta  /min  /max  /logout  /quit"

// Chat is the part of the session service the UI drives.
type Chat interface {
	SendMessage(ctx context.Context, content string) models.Result
	RetryMessage(ctx context.Context, messageID string) models.Result
	RateSession(ctx context.Context, rating int, comment string) models.Result
	MarkAsRead(ctx context.Context)
	Minimize(minimized bool)
	StartTyping()
	StopTyping()
	Logout(ctx context.Context)
}

// ETASource answers the wait-time estimate.
type ETASource interface {
	ResponseETA(ctx context.Context) models.ResponseETA
}

type etaMsg models.ResponseETA

type resultMsg struct {
	res    models.Result
	okText string
}

type loggedOutMsg struct{}

// ChatModel renders the current conversation and a one-line input.
type ChatModel struct {
	ctx  context.Context
	chat Chat
	eta  ETASource
	feed *Feed

	state    store.State
	estimate *models.ResponseETA
	input    string
	typing   bool
	status   string
	height   int
	quitting bool
}

func New(ctx context.Context, chat Chat, eta ETASource, feed *Feed) ChatModel {
	return ChatModel{
		ctx:    ctx,
		chat:   chat,
		eta:    eta,
		feed:   feed,
		state:  store.InitialState(),
		status: help,
	}
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(m.feed.Next(), m.fetchETA())
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		m.state = msg.State
		return m, m.feed.Next()
	case etaMsg:
		e := models.ResponseETA(msg)
		m.estimate = &e
		return m, nil
	case resultMsg:
		switch {
		case !msg.res.Success:
			m.status = ErrorStyle.Render("! " + msg.res.Message)
		case msg.okText != "":
			m.status = msg.okText
		}
		return m, nil
	case loggedOutMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ChatModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.stopTyping()
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input)
		m.input = ""
		m.stopTyping()
		return m.submit(line)
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		if m.input == "" {
			m.stopTyping()
		}
	case tea.KeySpace:
		m.insert(" ")
	case tea.KeyRunes:
		m.insert(string(key.Runes))
	}
	return m, nil
}

func (m *ChatModel) insert(s string) {
	m.input += s
	if !m.typing && !strings.HasPrefix(m.input, "/") {
		m.typing = true
		m.chat.StartTyping()
	}
}

func (m *ChatModel) stopTyping() {
	if m.typing {
		m.typing = false
		m.chat.StopTyping()
	}
}

func (m ChatModel) submit(line string) (tea.Model, tea.Cmd) {
	cmd, args, _ := strings.Cut(line, " ")
	ctx, chat := m.ctx, m.chat

	switch cmd {
	case "":
		return m, nil
	case "/quit":
		m.quitting = true
		return m, tea.Quit
	case "/help":
		m.status = help
	case "/logout":
		return m, func() tea.Msg {
			chat.Logout(ctx)
			return loggedOutMsg{}
		}
	case "/read":
		return m, func() tea.Msg {
			chat.MarkAsRead(ctx)
			return resultMsg{res: models.OK(), okText: "marked as read"}
		}
	case "/min":
		chat.Minimize(true)
	case "/max":
		chat.Minimize(false)
	case "/eta":
		return m, m.fetchETA()
	case "/retry":
		id, ok := lastFailed(m.state.Messages)
		if !ok {
			m.status = "nothing to retry"
			return m, nil
		}
		return m, func() tea.Msg {
			return resultMsg{res: chat.RetryMessage(ctx, id)}
		}
	case "/rate":
		ratingStr, comment, _ := strings.Cut(strings.TrimSpace(args), " ")
		rating, err := strconv.Atoi(ratingStr)
		if err != nil {
			m.status = "usage: /rate <1-5> [comment]"
			return m, nil
		}
		return m, func() tea.Msg {
			return resultMsg{res: chat.RateSession(ctx, rating, comment), okText: "thanks for the feedback"}
		}
	default:
		if strings.HasPrefix(cmd, "/") {
			m.status = "unknown command, try /help"
			return m, nil
		}
		return m, func() tea.Msg {
			return resultMsg{res: chat.SendMessage(ctx, line)}
		}
	}
	return m, nil
}

func (m ChatModel) fetchETA() tea.Cmd {
	ctx, src := m.ctx, m.eta
	return func() tea.Msg {
		return etaMsg(src.ResponseETA(ctx))
	}
}

func lastFailed(msgs []models.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Status == models.StatusFailed {
			return msgs[i].ID, true
		}
	}
	return "", false
}

func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	if m.state.IsMinimized {
		b.WriteString(DimStyle.Render("minimized, /max to expand"))
		b.WriteString("\n")
	} else {
		for _, line := range m.messageLines() {
			b.WriteString(line)
			b.WriteString("\n")
		}
		if len(m.state.TypingUsers) > 0 {
			b.WriteString(typingStyle.Render("agent is typing..."))
			b.WriteString("\n")
		}
	}

	if m.state.Error != "" {
		b.WriteString(ErrorStyle.Render(m.state.Error))
		b.WriteString("\n")
	}
	b.WriteString(inputStyle.Render("> " + m.input + "█"))
	b.WriteString("\n")
	b.WriteString(DimStyle.Render(m.status))
	return b.String()
}

func (m ChatModel) header() string {
	parts := []string{TitleStyle.Render("Support chat"), ConnectionBadge(m.state.Connection)}
	if sess := m.state.CurrentSession; sess != nil && sess.AssignedAgent != "" {
		parts = append(parts, DimStyle.Render("agent "+sess.AssignedAgent))
	}
	if m.state.UnreadCount > 0 {
		parts = append(parts, fmt.Sprintf("%d unread", m.state.UnreadCount))
	}
	if e := m.estimate; e != nil {
		parts = append(parts, "wait "+LoadStyle(e.CurrentLoad).Render(e.FormattedTime))
	}
	return strings.Join(parts, "  ")
}

// messageLines renders the tail of the conversation that fits the window.
func (m ChatModel) messageLines() []string {
	msgs := m.state.Messages
	if room := m.height - 8; m.height > 0 && len(msgs) > room && room > 0 {
		msgs = msgs[len(msgs)-room:]
	}

	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		who := youStyle.Render("you")
		status := " " + DimStyle.Render(string(msg.Status))
		if msg.Sender == models.SenderAgent {
			who = agentStyle.Render("agent")
			status = ""
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s%s",
			DimStyle.Render(msg.Timestamp.Format("15:04")), who, msg.Content, status))
	}
	return lines
}
