// Package notify announces committed content index snapshots to NATS.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Notice is published after every committed batch.
type Notice struct {
	Type        string    `json:"type"`
	BatchID     string    `json:"batch_id"`
	Count       int       `json:"count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Marshal encodes the notice payload.
func (n Notice) Marshal() ([]byte, error) {
	return json.Marshal(n)
}

// Notifier delivers commit notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
	Close() error
}

// Noop discards notices.
type Noop struct{}

func (Noop) Notify(context.Context, Notice) error { return nil }
func (Noop) Close() error                         { return nil }

// Subject returns the subject a notice for typ is published on.
func Subject(prefix, typ string) string {
	if prefix == "" {
		return typ
	}
	return prefix + "." + typ
}
