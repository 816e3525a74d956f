package ports

import (
	"context"
	"time"
)

// PendingKey is a key delivery that has not reached its principal yet.
type PendingKey struct {
	NodeID          string
	PrincipalNodeID string
	PrincipalName   string
	PublicKey       string
	// CipherKey is the content key wrapped for the local principal; it is
	// rewrapped for the target principal at delivery time.
	CipherKey string
	Seq       int
	LastError string
	QueuedAt  time.Time
}

// KeyQueue persists undelivered content keys across runs.
type KeyQueue interface {
	// Enqueue appends entries, replacing any queued delivery for the same
	// node and principal.
	Enqueue(ctx context.Context, entries []PendingKey) error

	// Pending lists queued deliveries grouped by node in enqueue order.
	Pending(ctx context.Context) ([]PendingKey, error)

	Remove(ctx context.Context, nodeID, principalNodeID string) error
	Close() error
}
