// Package history persists chat transcripts locally so conversations survive
// across runs even when the remote service prunes its own copies.
//
// Writes go through an asynchronous Recorder so the interactive chat loop
// never blocks on disk.
package history

import (
	"context"
	"time"
)

// Role values for a transcript turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance in a session transcript.
type Turn struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store persists transcript turns.
type Store interface {
	// Append stores one turn. An empty ID is assigned on insert.
	Append(ctx context.Context, turn Turn) error

	// List returns the turns of a session in insertion order. A limit of 0
	// means no limit.
	List(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// Sessions returns the distinct session IDs with recorded turns, most
	// recently written first.
	Sessions(ctx context.Context) ([]string, error)

	Close() error
}
