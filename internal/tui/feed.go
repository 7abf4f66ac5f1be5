package tui

import (
	"drinkmate/supportchat/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// StateMsg carries a store snapshot into the program.
type StateMsg struct {
	State store.State
}

// Feed hands store snapshots to the program. Only the newest pending
// snapshot is kept, so a slow render never blocks the dispatcher.
type Feed struct {
	ch chan store.State
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan store.State, 1)}
}

// Push is a store.Listener.
func (f *Feed) Push(st store.State) {
	for {
		select {
		case f.ch <- st:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Next waits for the next snapshot.
func (f *Feed) Next() tea.Cmd {
	return func() tea.Msg {
		return StateMsg{State: <-f.ch}
	}
}
