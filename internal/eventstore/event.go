package eventstore

import "time"

// Event is one journal entry of a build batch.
type Event interface {
	// ID returns the store-assigned identifier (0 before Append).
	ID() int64
	// BatchID returns the batch this event belongs to.
	BatchID() string
	// Pipeline returns the content type the batch built.
	Pipeline() string
	// Type returns the event type name.
	Type() string
	// Timestamp returns when the event occurred.
	Timestamp() time.Time
	// Payload returns the JSON encoded event data.
	Payload() []byte
}

// BaseEvent provides a default implementation of Event.
type BaseEvent struct {
	EventID        int64
	EventBatchID   string
	EventPipeline  string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
}

func (e *BaseEvent) ID() int64            { return e.EventID }
func (e *BaseEvent) BatchID() string      { return e.EventBatchID }
func (e *BaseEvent) Pipeline() string     { return e.EventPipeline }
func (e *BaseEvent) Type() string         { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte      { return e.EventPayload }
