package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"drinkmate/supportchat/internal/api/rest"
	"drinkmate/supportchat/internal/auth"
	"drinkmate/supportchat/internal/chathub"
	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/eta"
	"drinkmate/supportchat/internal/logger"
	"drinkmate/supportchat/internal/session"
	"drinkmate/supportchat/internal/storage"
	"drinkmate/supportchat/internal/store"
	"drinkmate/supportchat/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	// Logs go to the file only so they do not draw over the UI.
	log := logger.NewFileOnly(cfg.App.LogFilePath)
	defer log.Sync()

	if cfg.Chat.Token == "" {
		fmt.Fprintln(os.Stderr, "CHAT_TOKEN is not set")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := auth.NewSession(cfg.Chat.Token)
	flags := setupFlags(ctx, cfg, log)
	api := rest.New(cfg.Chat.APIURL, tokens, cfg.Chat.HTTPTimeout, log)
	hub := chathub.NewManager(chathub.Options{URL: cfg.Chat.SocketURL, Tokens: tokens, Logger: log})
	estimator := eta.New(api, eta.Options{Logger: log})

	svc := session.New(session.Options{
		Store:    store.New(log),
		Realtime: hub,
		API:      api,
		Tokens:   tokens,
		Flags:    flags,
		Logger:   log,
	})
	defer svc.Shutdown()

	feed := tui.NewFeed()
	unsubscribe := svc.Store().Subscribe(feed.Push)
	defer unsubscribe()

	hub.Connect()
	defer hub.Disconnect()

	if !svc.RestoreVisibility(ctx) {
		svc.Open(ctx)
	}
	if err := svc.LoadCustomerSessions(ctx); err != nil {
		log.Warn("loading sessions", zap.Error(err))
	}
	if svc.Store().State().CurrentSession == nil {
		if _, err := svc.CreateSession(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "could not start a chat: %v\n", err)
			return 1
		}
	}
	feed.Push(svc.Store().State())

	p := tea.NewProgram(tui.New(ctx, svc, estimator, feed), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Error("chat UI failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "chat UI failed: %v\n", err)
		return 1
	}
	return 0
}

func setupFlags(ctx context.Context, cfg *config.Config, log *zap.Logger) storage.Storage {
	if cfg.Redis.URL == "" {
		return storage.NewMemoryStore()
	}
	rs, err := storage.NewRedisStore(ctx, cfg.Redis.URL)
	if err != nil {
		log.Warn("redis unavailable, widget state will not survive restarts", zap.Error(err))
		return storage.NewMemoryStore()
	}
	return rs
}
