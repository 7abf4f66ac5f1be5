package tui_test

import (
	"context"
	"testing"
	"time"

	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/store"
	"drinkmate/supportchat/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChat is a mock of tui.Chat.
type MockChat struct {
	mock.Mock
}

func (m *MockChat) SendMessage(ctx context.Context, content string) models.Result {
	return m.Called(ctx, content).Get(0).(models.Result)
}

func (m *MockChat) RetryMessage(ctx context.Context, messageID string) models.Result {
	return m.Called(ctx, messageID).Get(0).(models.Result)
}

func (m *MockChat) RateSession(ctx context.Context, rating int, comment string) models.Result {
	return m.Called(ctx, rating, comment).Get(0).(models.Result)
}

func (m *MockChat) MarkAsRead(ctx context.Context) { m.Called(ctx) }
func (m *MockChat) Minimize(minimized bool)        { m.Called(minimized) }
func (m *MockChat) StartTyping()                   { m.Called() }
func (m *MockChat) StopTyping()                    { m.Called() }
func (m *MockChat) Logout(ctx context.Context)     { m.Called(ctx) }

type fixedETA models.ResponseETA

func (f fixedETA) ResponseETA(context.Context) models.ResponseETA { return models.ResponseETA(f) }

func newModel(chat *MockChat) tui.ChatModel {
	eta := fixedETA{EstimatedWaitTime: 3, FormattedTime: "2-5 minutes", IsOnline: true, CurrentLoad: models.LoadLow}
	return tui.New(context.Background(), chat, eta, tui.NewFeed())
}

// typeText feeds s to the model one key at a time.
func typeText(t *testing.T, m tea.Model, s string) tea.Model {
	t.Helper()
	for _, r := range s {
		key := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		if r == ' ' {
			key = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		}
		m, _ = m.Update(key)
	}
	return m
}

// press sends a key and runs the resulting command, feeding its message
// back into the model.
func press(t *testing.T, m tea.Model, key tea.KeyType) (tea.Model, tea.Msg) {
	t.Helper()
	m, cmd := m.Update(tea.KeyMsg{Type: key})
	if cmd == nil {
		return m, nil
	}
	msg := cmd()
	m, _ = m.Update(msg)
	return m, msg
}

func TestEnter_SendsTypedMessage(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	chat.On("StartTyping").Once()
	chat.On("StopTyping").Once()
	chat.On("SendMessage", mock.Anything, "hi there").Return(models.OK()).Once()
	m := typeText(t, newModel(chat), "hi there")

	// Act
	m, _ = press(t, m, tea.KeyEnter)

	// Assert
	chat.AssertExpectations(t)
	assert.Contains(t, m.View(), "> █")
}

func TestEnter_ShowsSendFailure(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	chat.On("StartTyping")
	chat.On("StopTyping")
	chat.On("SendMessage", mock.Anything, "hello").Return(models.Fail("No active chat session"))
	m := typeText(t, newModel(chat), "hello")

	// Act
	m, _ = press(t, m, tea.KeyEnter)

	// Assert
	assert.Contains(t, m.View(), "No active chat session")
}

func TestEnter_EmptyLineDoesNothing(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	m := newModel(chat)

	// Act
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	// Assert
	assert.Nil(t, cmd)
	chat.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestBackspace_ClearingInputStopsTyping(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	chat.On("StartTyping").Once()
	chat.On("StopTyping").Once()
	m := typeText(t, newModel(chat), "ok")

	// Act
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})

	// Assert
	chat.AssertExpectations(t)
	assert.Contains(t, m.View(), "> █")
}

func TestRateCommand(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	chat.On("RateSession", mock.Anything, 5, "great help").Return(models.OK()).Once()
	m := typeText(t, newModel(chat), "/rate 5 great help")

	// Act
	m, _ = press(t, m, tea.KeyEnter)

	// Assert
	chat.AssertExpectations(t)
	chat.AssertNotCalled(t, "StartTyping")
	assert.Contains(t, m.View(), "thanks for the feedback")
}

func TestRateCommand_RejectsNonNumericRating(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	m := typeText(t, newModel(chat), "/rate five")

	// Act
	m, msg := press(t, m, tea.KeyEnter)

	// Assert
	assert.Nil(t, msg)
	assert.Contains(t, m.View(), "usage: /rate")
	chat.AssertNotCalled(t, "RateSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryCommand_ResendsLatestFailedMessage(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	chat.On("RetryMessage", mock.Anything, "m3").Return(models.OK()).Once()
	st := store.InitialState()
	st.Messages = []models.Message{
		{ID: "m1", Content: "a", Sender: models.SenderCustomer, Status: models.StatusFailed},
		{ID: "m2", Content: "b", Sender: models.SenderCustomer, Status: models.StatusSent},
		{ID: "m3", Content: "c", Sender: models.SenderCustomer, Status: models.StatusFailed},
	}
	var m tea.Model = newModel(chat)
	m, _ = m.Update(tui.StateMsg{State: st})
	m = typeText(t, m, "/retry")

	// Act
	_, _ = press(t, m, tea.KeyEnter)

	// Assert
	chat.AssertExpectations(t)
}

func TestRetryCommand_NothingFailed(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	m := typeText(t, newModel(chat), "/retry")

	// Act
	m, msg := press(t, m, tea.KeyEnter)

	// Assert
	assert.Nil(t, msg)
	assert.Contains(t, m.View(), "nothing to retry")
}

func TestStateMsg_RendersConversation(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	st := store.InitialState()
	st.Connection = models.ConnectionState{IsConnected: true}
	st.UnreadCount = 1
	st.TypingUsers = map[string]struct{}{"a1": {}}
	st.Messages = []models.Message{
		{ID: "m1", Content: "Where is my order?", Sender: models.SenderCustomer, Status: models.StatusDelivered, Timestamp: time.Now()},
		{ID: "m2", Content: "Let me check", Sender: models.SenderAgent, Status: models.StatusDelivered, Timestamp: time.Now()},
	}
	m := newModel(chat)

	// Act
	next, cmd := m.Update(tui.StateMsg{State: st})

	// Assert
	require.NotNil(t, cmd, "the model keeps listening for snapshots")
	view := next.View()
	assert.Contains(t, view, "Where is my order?")
	assert.Contains(t, view, "Let me check")
	assert.Contains(t, view, "agent is typing...")
	assert.Contains(t, view, "1 unread")
	assert.Contains(t, view, "online")
}

func TestStateMsg_MinimizedHidesMessages(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	st := store.InitialState()
	st.IsMinimized = true
	st.Messages = []models.Message{{ID: "m1", Content: "secret", Sender: models.SenderAgent}}
	m := newModel(chat)

	// Act
	next, _ := m.Update(tui.StateMsg{State: st})

	// Assert
	assert.NotContains(t, next.View(), "secret")
	assert.Contains(t, next.View(), "/max")
}

func TestETACommand(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	m := typeText(t, newModel(chat), "/eta")

	// Act
	m, _ = press(t, m, tea.KeyEnter)

	// Assert
	assert.Contains(t, m.View(), "2-5 minutes")
}

func TestMinimizeCommands(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	chat.On("Minimize", true).Once()
	chat.On("Minimize", false).Once()
	m := typeText(t, newModel(chat), "/min")

	// Act
	m, _ = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "/max")
	_, _ = press(t, m, tea.KeyEnter)

	// Assert
	chat.AssertExpectations(t)
}

func TestCtrlC_Quits(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	m := newModel(chat)

	// Act
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	// Assert
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestLogoutCommand_LogsOutThenQuits(t *testing.T) {
	// Arrange
	chat := new(MockChat)
	chat.On("Logout", mock.Anything).Once()
	m := typeText(t, newModel(chat), "/logout")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	// Act
	next, quit := m.Update(cmd())

	// Assert
	chat.AssertExpectations(t)
	require.NotNil(t, quit)
	assert.Equal(t, tea.QuitMsg{}, quit())
	assert.Empty(t, next.View())
}

func TestFeed_DeliversNewestSnapshot(t *testing.T) {
	// Arrange
	feed := tui.NewFeed()
	for _, e := range []string{"one", "two", "three"} {
		st := store.InitialState()
		st.Error = e
		feed.Push(st)
	}

	// Act
	msg := feed.Next()()

	// Assert
	got, ok := msg.(tui.StateMsg)
	require.True(t, ok)
	assert.Equal(t, "three", got.State.Error)
}
