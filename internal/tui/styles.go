package tui

import (
	"drinkmate/supportchat/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Padding(0, 1)
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ErrorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	CellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1)

	agentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	youStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	typingStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	inputStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

var loadColors = map[string]lipgloss.Color{
	"green":  lipgloss.Color("42"),
	"yellow": lipgloss.Color("220"),
	"orange": lipgloss.Color("208"),
	"red":    lipgloss.Color("196"),
}

// LoadStyle colors text by queue load.
func LoadStyle(l models.LoadLevel) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(loadColors[l.Color()])
}

// ConnectionBadge renders the connection state as a short colored label.
func ConnectionBadge(cs models.ConnectionState) string {
	switch {
	case cs.IsConnected:
		return lipgloss.NewStyle().Foreground(loadColors["green"]).Render("● online")
	case cs.IsReconnecting:
		return lipgloss.NewStyle().Foreground(loadColors["yellow"]).Render("● reconnecting")
	default:
		return lipgloss.NewStyle().Foreground(loadColors["red"]).Render("● offline")
	}
}
