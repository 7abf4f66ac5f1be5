// Package analysis turns support-queue statistics into a customer-facing
// wait-time estimate.
package analysis

import (
	"fmt"
	"math"

	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/models"
)

// EstimateWaitTime returns the expected wait in whole minutes, never below 1.
//
// An empty queue waits 1 minute. Without available agents the wait is twice
// the average response time. Otherwise customers ahead of the caller are
// spread over the available agents and each round costs one average
// response time.
func EstimateWaitTime(stats models.QueueStats) int {
	if stats.TotalActiveChats <= 0 {
		return 1
	}

	agents := 1
	if stats.AvailableAgents != nil {
		agents = *stats.AvailableAgents
	}
	avg := math.Max(stats.AverageResponseTime, 0)

	if agents <= 0 {
		return atLeastOne(avg * 2)
	}

	queuePosition := max(0, stats.TotalActiveChats-agents)
	rounds := math.Ceil(float64(queuePosition) / float64(agents))
	return atLeastOne(rounds * avg)
}

// FormatWaitTime renders minutes using the display bands: under a minute,
// exact minutes up to 5, a 2-minute range up to 10 and a 5-minute range
// beyond.
func FormatWaitTime(minutes int) string {
	switch {
	case minutes <= 1:
		return "Less than 1 minute"
	case minutes <= 5:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes <= 10:
		return fmt.Sprintf("%d-%d minutes", minutes, minutes+2)
	default:
		return fmt.Sprintf("%d-%d minutes", minutes, minutes+5)
	}
}

// Estimate builds the ETA for stats. Load comes from the server as is.
func Estimate(stats models.QueueStats) models.ResponseETA {
	wait := EstimateWaitTime(stats)
	load := stats.CurrentLoad
	if load == "" {
		load = models.LoadMedium
	}
	return models.ResponseETA{
		EstimatedWaitTime: wait,
		FormattedTime:     FormatWaitTime(wait),
		IsOnline:          true,
		CurrentLoad:       load,
	}
}

// Fallback is the estimate shown when no fresh data is available.
func Fallback() models.ResponseETA {
	return models.ResponseETA{
		EstimatedWaitTime: config.FallbackWaitMinutes,
		FormattedTime:     config.FallbackFormattedTime,
		IsOnline:          true,
		CurrentLoad:       models.LoadMedium,
	}
}

func atLeastOne(minutes float64) int {
	return max(1, int(math.Ceil(minutes)))
}
