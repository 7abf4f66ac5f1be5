package eta_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"drinkmate/supportchat/internal/eta"
	"drinkmate/supportchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQueueSource is a mock of eta.QueueSource.
type MockQueueSource struct {
	mock.Mock
}

func (m *MockQueueSource) QueueStatus(ctx context.Context) (models.QueueStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.QueueStats), args.Error(1)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func busyQueue() models.QueueStats {
	agents := 2
	return models.QueueStats{TotalActiveChats: 6, AvailableAgents: &agents, AverageResponseTime: 3, CurrentLoad: models.LoadHigh}
}

func TestResponseETA_ComputesFromServer(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).Return(busyQueue(), nil).Once()
	clock := newFakeClock()
	e := eta.New(src, eta.Options{Now: clock.Now})

	// Act
	got := e.ResponseETA(context.Background())

	// Assert
	assert.Equal(t, 6, got.EstimatedWaitTime)
	assert.Equal(t, "6-8 minutes", got.FormattedTime)
	assert.Equal(t, models.LoadHigh, got.CurrentLoad)
	assert.Equal(t, clock.Now(), got.UpdatedAt)
	src.AssertExpectations(t)
}

func TestResponseETA_ServesCacheWithinTTL(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).Return(busyQueue(), nil)
	clock := newFakeClock()
	e := eta.New(src, eta.Options{Now: clock.Now})

	// Act
	first := e.ResponseETA(context.Background())
	clock.Advance(4 * time.Minute)
	second := e.ResponseETA(context.Background())
	clock.Advance(2 * time.Minute)
	third := e.ResponseETA(context.Background())

	// Assert
	assert.Equal(t, first, second)
	assert.Equal(t, clock.Now(), third.UpdatedAt)
	src.AssertNumberOfCalls(t, "QueueStatus", 2)
}

func TestResponseETA_ThrottledServesExpiredEstimate(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).Return(busyQueue(), nil).Once()
	clock := newFakeClock()
	e := eta.New(src, eta.Options{Now: clock.Now, CacheTTL: time.Minute, MinRequestInterval: 30 * time.Minute})
	first := e.ResponseETA(context.Background())

	// Act
	clock.Advance(10 * time.Minute)
	got := e.ResponseETA(context.Background())

	// Assert
	assert.Equal(t, first, got)
	assert.Equal(t, 6, got.EstimatedWaitTime)
	cached, ok := e.Cached()
	require.True(t, ok)
	assert.Equal(t, first.UpdatedAt, cached.UpdatedAt)
	src.AssertNumberOfCalls(t, "QueueStatus", 1)
}

func TestResponseETA_RateLimiterBoundary(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).Return(busyQueue(), nil)
	clock := newFakeClock()
	e := eta.New(src, eta.Options{Now: clock.Now, CacheTTL: time.Nanosecond})

	// Act
	for i := 0; i < 25; i++ {
		got := e.ResponseETA(context.Background())
		assert.Equal(t, 6, got.EstimatedWaitTime)
		clock.Advance(2 * time.Second)
	}

	// Assert
	src.AssertNumberOfCalls(t, "QueueStatus", 2)
}

func TestResponseETA_HourlyCap(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).Return(busyQueue(), nil)
	clock := newFakeClock()
	e := eta.New(src, eta.Options{Now: clock.Now, CacheTTL: time.Nanosecond})

	// Act
	for i := 0; i < 25; i++ {
		e.ResponseETA(context.Background())
		clock.Advance(time.Minute)
	}
	src.AssertNumberOfCalls(t, "QueueStatus", 20)

	clock.Advance(36 * time.Minute)
	e.ResponseETA(context.Background())

	// Assert
	src.AssertNumberOfCalls(t, "QueueStatus", 21)
}

func TestResponseETA_ThrottledWithoutCacheFallsBack(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).Return(models.QueueStats{}, errors.New("boom")).Once()
	clock := newFakeClock()
	e := eta.New(src, eta.Options{Now: clock.Now})

	// Act
	first := e.ResponseETA(context.Background())
	clock.Advance(time.Second)
	second := e.ResponseETA(context.Background())

	// Assert
	fallback := models.ResponseETA{EstimatedWaitTime: 5, FormattedTime: "5-10 minutes", IsOnline: true, CurrentLoad: models.LoadMedium}
	assert.Equal(t, fallback, first)
	assert.Equal(t, fallback, second)
	_, cached := e.Cached()
	assert.False(t, cached)
	src.AssertExpectations(t)
}

func TestResponseETA_TimeoutFallsBack(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(models.QueueStats{}, context.DeadlineExceeded)
	e := eta.New(src, eta.Options{Timeout: 20 * time.Millisecond})

	// Act
	start := time.Now()
	got := e.ResponseETA(context.Background())

	// Assert
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 5, got.EstimatedWaitTime)
}

func TestResponseETA_ConcurrentCallersShareOneRequest(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).Return(busyQueue(), nil)
	clock := newFakeClock()
	e := eta.New(src, eta.Options{Now: clock.Now, CacheTTL: time.Nanosecond})

	// Act
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.ResponseETA(context.Background())
		}()
	}
	wg.Wait()

	// Assert
	src.AssertNumberOfCalls(t, "QueueStatus", 1)
}

func TestReset(t *testing.T) {
	// Arrange
	src := new(MockQueueSource)
	src.On("QueueStatus", mock.Anything).Return(busyQueue(), nil)
	clock := newFakeClock()
	e := eta.New(src, eta.Options{Now: clock.Now})
	e.ResponseETA(context.Background())

	// Act
	e.Reset()
	_, cached := e.Cached()
	e.ResponseETA(context.Background())

	// Assert
	require.False(t, cached)
	src.AssertNumberOfCalls(t, "QueueStatus", 2)
}
