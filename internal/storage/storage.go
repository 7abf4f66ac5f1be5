// Package storage persists small client-side flags (such as whether the
// chat widget was left open) across restarts.
package storage

import "context"

// Storage is a key/value store for boolean flags. A missing key reads as
// false without an error.
type Storage interface {
	GetFlag(ctx context.Context, key string) (bool, error)
	SetFlag(ctx context.Context, key string, value bool) error
	Delete(ctx context.Context, key string) error
}

func encodeFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func decodeFlag(s string) bool {
	return s == "1" || s == "true"
}
