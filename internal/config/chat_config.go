package config

import "time"

const (
	// Reconnection
	MaxReconnectAttempts = 3
	ReconnectBaseDelay   = 1 * time.Second

	// Transport
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 64 * 1024
	SendBufferSize = 64

	// Reconciliation
	DedupWindow    = 5 * time.Second
	DeliveredDelay = 1 * time.Second
	AutoReadDelay  = 2 * time.Second
	TypingTimeout  = 5 * time.Second

	// Validation
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500

	// Queue ETA
	ETACacheTTL        = 5 * time.Minute
	MinRequestInterval = 30 * time.Second
	MaxRequestsPerHour = 20
	ETAFetchTimeout    = 5 * time.Second

	// REST
	HTTPTimeout = 10 * time.Second

	// Persisted widget flag key
	WidgetOpenKey = "chat-widget-open"
)

// Customer-facing fallback estimate used when the queue statistics cannot be fetched.
const (
	FallbackWaitMinutes   = 5
	FallbackFormattedTime = "5-10 minutes"
)
