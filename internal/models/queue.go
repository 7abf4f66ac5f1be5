package models

import "time"

// LoadLevel is the server-side load classification of the support queue.
type LoadLevel string

const (
	LoadLow      LoadLevel = "low"
	LoadMedium   LoadLevel = "medium"
	LoadHigh     LoadLevel = "high"
	LoadCritical LoadLevel = "critical"
)

// Color returns the display color used for the load badge.
func (l LoadLevel) Color() string {
	switch l {
	case LoadLow:
		return "green"
	case LoadHigh:
		return "orange"
	case LoadCritical:
		return "red"
	default:
		return "yellow"
	}
}

// Label returns a short human label for the load level.
func (l LoadLevel) Label() string {
	switch l {
	case LoadLow:
		return "Low volume"
	case LoadHigh:
		return "High volume"
	case LoadCritical:
		return "Very high volume"
	default:
		return "Moderate volume"
	}
}

// QueueStats is the payload of GET /chat/queue-status.
type QueueStats struct {
	TotalActiveChats int `json:"totalActiveChats"`
	// AvailableAgents is optional on the wire; nil means the server did not report it.
	AvailableAgents     *int      `json:"availableAgents,omitempty"`
	AverageResponseTime float64   `json:"averageResponseTime"`
	CurrentLoad         LoadLevel `json:"currentLoad"`
}

// ResponseETA is the customer-facing wait-time estimate.
type ResponseETA struct {
	EstimatedWaitTime int       `json:"estimatedWaitTime"`
	FormattedTime     string    `json:"formattedTime"`
	IsOnline          bool      `json:"isOnline"`
	CurrentLoad       LoadLevel `json:"currentLoad"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
