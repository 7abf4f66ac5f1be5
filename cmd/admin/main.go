package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"drinkmate/supportchat/internal/api/rest"
	"drinkmate/supportchat/internal/auth"
	"drinkmate/supportchat/internal/chathub"
	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/eta"
	"drinkmate/supportchat/internal/logger"
	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/tui"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <eta|health|sessions|status>")
		return 1
	}

	cfg := config.Load()
	log := logger.New(cfg.App.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	tokens := auth.StaticToken(cfg.Chat.Token)
	api := rest.New(cfg.Chat.APIURL, tokens, cfg.Chat.HTTPTimeout, log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "eta":
		showETA(ctx, api, log)
	case "health":
		err = checkHealth(ctx, api)
	case "sessions":
		err = listSessions(ctx, api, tokens)
	case "status":
		err = socketStatus(ctx, cfg, tokens, log)
	default:
		fmt.Println("Unknown command")
		return 1
	}
	if err != nil {
		log.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		fmt.Println(tui.ErrorStyle.Render(err.Error()))
		return 1
	}
	return 0
}

func showETA(ctx context.Context, api *rest.Client, log *zap.Logger) {
	stats, err := api.QueueStatus(ctx)
	if err == nil {
		agents := "unknown"
		if stats.AvailableAgents != nil {
			agents = fmt.Sprint(*stats.AvailableAgents)
		}
		fmt.Printf("active chats: %d, available agents: %s, avg response: %.1f min\n",
			stats.TotalActiveChats, agents, stats.AverageResponseTime)
	}

	e := eta.New(api, eta.Options{Logger: log}).ResponseETA(ctx)
	load := tui.LoadStyle(e.CurrentLoad)
	fmt.Printf("estimated wait: %s (%d min)\n", load.Render(e.FormattedTime), e.EstimatedWaitTime)
	fmt.Printf("load: %s\n", load.Render(e.CurrentLoad.Label()))
}

func checkHealth(ctx context.Context, api *rest.Client) error {
	start := time.Now()
	if err := api.Health(ctx); err != nil {
		fmt.Println("chat server: " + tui.ErrorStyle.Render("DOWN"))
		return err
	}
	up := tui.LoadStyle(models.LoadLow).Render("UP")
	fmt.Printf("chat server: %s %s\n", up, tui.DimStyle.Render(time.Since(start).Round(time.Millisecond).String()))
	return nil
}

func listSessions(ctx context.Context, api *rest.Client, tokens auth.TokenSource) error {
	id, err := auth.IdentityOf(tokens)
	if err != nil {
		return fmt.Errorf("CHAT_TOKEN: %w", err)
	}

	chats, err := api.CustomerChats(ctx)
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tui.DimStyle).
		Headers("ID", "STATUS", "AGENT", "MESSAGES", "UNREAD", "LAST ACTIVITY").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tui.HeaderStyle
			}
			return tui.CellStyle
		})
	for _, chat := range chats {
		s := chat.ToSession()
		agent := s.AssignedAgent
		if agent == "" {
			agent = "-"
		}
		t.Row(s.ID, string(s.Status), agent, fmt.Sprint(len(s.Messages)),
			fmt.Sprint(unread(s.Messages)), lastActivity(s).Format(time.RFC3339))
	}

	fmt.Println(tui.TitleStyle.Render(fmt.Sprintf("chats of %s <%s>", id.Name, id.Email)))
	fmt.Println(t.Render())
	return nil
}

func unread(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Sender == models.SenderAgent && !m.IsNote && m.Status != models.StatusRead {
			n++
		}
	}
	return n
}

func lastActivity(s models.ChatSession) time.Time {
	if s.LastMessageAt.After(s.UpdatedAt) {
		return s.LastMessageAt
	}
	return s.UpdatedAt
}

// socketStatus connects once and reports the outcome.
func socketStatus(ctx context.Context, cfg *config.Config, tokens auth.TokenSource, log *zap.Logger) error {
	if tokens.GetAuthToken() == "" {
		return auth.ErrNoToken
	}

	hub := chathub.NewManager(chathub.Options{URL: cfg.Chat.SocketURL, Tokens: tokens, Logger: log})
	defer hub.Disconnect()

	done := make(chan models.ConnectionState, 8)
	unsubscribe := hub.SubscribeState(func(cs models.ConnectionState) {
		select {
		case done <- cs:
		default:
		}
	})
	defer unsubscribe()
	hub.Connect()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("socket %s: %w", cfg.Chat.SocketURL, ctx.Err())
		case cs := <-done:
			switch {
			case cs.IsConnected:
				fmt.Printf("socket %s: %s\n", cfg.Chat.SocketURL, tui.ConnectionBadge(cs))
				return nil
			case cs.IsReconnecting:
				fmt.Println("socket: " + tui.ConnectionBadge(cs))
			case hub.State() == chathub.StateDisconnected:
				return fmt.Errorf("socket %s: gave up after %d retries", cfg.Chat.SocketURL, config.MaxReconnectAttempts)
			}
		}
	}
}
