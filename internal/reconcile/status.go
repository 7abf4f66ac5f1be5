package reconcile

import "drinkmate/supportchat/internal/models"

// rank orders the forward progression. failed sits outside the chain.
func rank(s models.MessageStatus) int {
	switch s {
	case models.StatusSending:
		return 0
	case models.StatusSent:
		return 1
	case models.StatusDelivered:
		return 2
	case models.StatusRead:
		return 3
	}
	return -1
}

// CanTransition reports whether a message may move from one status to another.
// Re-applying the current status is always allowed. read and failed are
// terminal, failed is reachable only from sending, everything else must move
// strictly forward.
func CanTransition(from, to models.MessageStatus) bool {
	if from == to {
		return true
	}
	if !to.IsValid() {
		return false
	}
	if from == "" {
		return true
	}
	switch from {
	case models.StatusRead, models.StatusFailed:
		return false
	}
	if to == models.StatusFailed {
		return from == models.StatusSending
	}
	return rank(to) > rank(from)
}

// Promote returns next when the transition is allowed and current otherwise.
func Promote(current, next models.MessageStatus) models.MessageStatus {
	if CanTransition(current, next) {
		return next
	}
	return current
}

// ReadCandidates returns the ids of agent messages a customer view would mark
// as read. Internal notes never take part in read-state transitions.
func ReadCandidates(msgs []models.Message) []string {
	var ids []string
	for _, m := range msgs {
		if m.Sender != models.SenderAgent || m.IsNote {
			continue
		}
		if m.Status != models.StatusRead && CanTransition(m.Status, models.StatusRead) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
