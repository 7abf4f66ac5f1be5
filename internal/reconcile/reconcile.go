// Package reconcile merges messages that reach the client through two paths:
// the optimistic local insert and the authoritative server push.
//
// Matching is done in two passes. An id match (server id, or the temporary id
// when the server echoes it) is exact. Failing that, a message with the same
// trimmed content whose timestamp lies within the tolerance window is taken to
// be the same logical message. The second pass is a heuristic: two genuinely
// distinct messages with identical content sent inside the window collapse
// into one. That false positive is accepted.
package reconcile

import (
	"strings"
	"time"

	"drinkmate/supportchat/internal/models"

	"github.com/google/uuid"
)

// TemporaryIDPrefix marks ids generated on the client for optimistic sends.
const TemporaryIDPrefix = "temp-"

// NewTemporaryID returns a fresh client-side id for an optimistic message.
func NewTemporaryID() string {
	return TemporaryIDPrefix + uuid.NewString()
}

// IsTemporaryID reports whether id was produced by NewTemporaryID.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TemporaryIDPrefix)
}

// MatchKind says how an incoming message was matched.
type MatchKind int

const (
	// NoMatch means the incoming message is new and must be appended.
	NoMatch MatchKind = iota
	// MatchByID means an existing entry has the same server or temporary id.
	MatchByID
	// MatchByContent means an existing entry has the same content within the window.
	MatchByContent
)

func (k MatchKind) String() string {
	switch k {
	case MatchByID:
		return "id"
	case MatchByContent:
		return "content"
	}
	return "none"
}

// Decision is the outcome of reconciling one incoming message.
type Decision struct {
	Kind MatchKind
	// Index of the matched entry in the existing list; -1 for NoMatch.
	Index int
	// ExistingID is the id the matched entry had before merging.
	ExistingID string
	// Merged is the entry to store: the patched existing entry for a match,
	// or the incoming message itself for NoMatch.
	Merged models.Message
	// Changed is false when the match leaves the existing entry untouched.
	Changed bool
}

// Duplicate reports whether the incoming push must not be appended.
func (d Decision) Duplicate() bool {
	return d.Kind != NoMatch
}

// Reconcile decides what to do with incoming given the current message list.
// clientID is the temporary id echoed by the server, if any.
func Reconcile(existing []models.Message, incoming models.Message, clientID string, window time.Duration) Decision {
	for i := len(existing) - 1; i >= 0; i-- {
		m := existing[i]
		if (incoming.ID != "" && m.ID == incoming.ID) || (clientID != "" && m.ID == clientID) {
			merged := mergeConfirmed(m, incoming)
			return Decision{Kind: MatchByID, Index: i, ExistingID: m.ID, Merged: merged, Changed: !equalMessage(m, merged)}
		}
	}

	content := incoming.TrimmedContent()
	for i := len(existing) - 1; i >= 0; i-- {
		m := existing[i]
		if m.TrimmedContent() != content || !withinWindow(m.Timestamp, incoming.Timestamp, window) {
			continue
		}
		merged := m
		if IsTemporaryID(m.ID) {
			merged = mergeConfirmed(m, incoming)
		}
		return Decision{Kind: MatchByContent, Index: i, ExistingID: m.ID, Merged: merged, Changed: !equalMessage(m, merged)}
	}

	return Decision{Kind: NoMatch, Index: -1, Merged: incoming}
}

// Merge applies Reconcile and returns the resulting list. existing is not modified.
func Merge(existing []models.Message, incoming models.Message, clientID string, window time.Duration) ([]models.Message, Decision) {
	d := Reconcile(existing, incoming, clientID, window)
	out := models.CloneMessages(existing)
	if d.Kind == NoMatch {
		return append(out, incoming.Clone()), d
	}
	out[d.Index] = d.Merged.Clone()
	return out, d
}

// mergeConfirmed rebinds a local entry onto the server-confirmed identity.
// Server id and timestamp win, status only moves forward.
func mergeConfirmed(local, confirmed models.Message) models.Message {
	merged := local.Clone()
	if confirmed.ID != "" {
		merged.ID = confirmed.ID
	}
	if !confirmed.Timestamp.IsZero() {
		merged.Timestamp = confirmed.Timestamp
	}
	merged.Status = Promote(local.Status, confirmed.Status)
	if len(merged.Attachments) == 0 && len(confirmed.Attachments) > 0 {
		merged.Attachments = append([]models.Attachment(nil), confirmed.Attachments...)
	}
	return merged
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < window
}

func equalMessage(a, b models.Message) bool {
	if a.ID != b.ID || a.Content != b.Content || a.Sender != b.Sender || !a.Timestamp.Equal(b.Timestamp) ||
		a.Status != b.Status || a.IsNote != b.IsNote || len(a.Attachments) != len(b.Attachments) {
		return false
	}
	for i := range a.Attachments {
		if a.Attachments[i] != b.Attachments[i] {
			return false
		}
	}
	return true
}
