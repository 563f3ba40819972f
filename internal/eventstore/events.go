package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// Journal event types.
const (
	TypeBatchStarted   = "BatchStarted"
	TypeFileFailed     = "FileFailed"
	TypeBatchCommitted = "BatchCommitted"
	TypeBatchAborted   = "BatchAborted"
)

// BatchKind distinguishes full builds from incremental patches.
type BatchKind string

const (
	KindFull        BatchKind = "full"
	KindIncremental BatchKind = "incremental"
)

func newEvent(batchID, pipeline, eventType string, payload any) (BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return BaseEvent{}, errors.JournalError("failed to marshal " + eventType + " payload").
			WithCause(err).
			WithContext("batch_id", batchID).
			Build()
	}
	return BaseEvent{
		EventBatchID:   batchID,
		EventPipeline:  pipeline,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// BatchStarted is emitted when a batch begins.
type BatchStarted struct {
	BaseEvent
	Kind  BatchKind `json:"kind"`
	Files int       `json:"files"`
}

// NewBatchStarted creates a BatchStarted event.
func NewBatchStarted(batchID, pipeline string, kind BatchKind, files int) (*BatchStarted, error) {
	e := &BatchStarted{Kind: kind, Files: files}
	base, err := newEvent(batchID, pipeline, TypeBatchStarted, map[string]any{
		"kind":  kind,
		"files": files,
	})
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}

// FileFailed is emitted for each source file a batch could not index.
type FileFailed struct {
	BaseEvent
	File     string `json:"file"`
	Category string `json:"category"`
	Message  string `json:"error"`
}

// NewFileFailed creates a FileFailed event.
func NewFileFailed(batchID, pipeline, file, category, message string) (*FileFailed, error) {
	e := &FileFailed{File: file, Category: category, Message: message}
	base, err := newEvent(batchID, pipeline, TypeFileFailed, map[string]any{
		"file":     file,
		"category": category,
		"error":    message,
	})
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}

// BatchCommitted is emitted after a snapshot was persisted.
type BatchCommitted struct {
	BaseEvent
	Records  int           `json:"records"`
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration_ms"`
}

// NewBatchCommitted creates a BatchCommitted event.
func NewBatchCommitted(batchID, pipeline string, records, failures int, duration time.Duration) (*BatchCommitted, error) {
	e := &BatchCommitted{Records: records, Failures: failures, Duration: duration}
	base, err := newEvent(batchID, pipeline, TypeBatchCommitted, map[string]any{
		"records":     records,
		"failures":    failures,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}

// BatchAborted is emitted when a batch ends without persisting anything.
type BatchAborted struct {
	BaseEvent
	Reason string `json:"reason"`
}

// NewBatchAborted creates a BatchAborted event.
func NewBatchAborted(batchID, pipeline, reason string) (*BatchAborted, error) {
	e := &BatchAborted{Reason: reason}
	base, err := newEvent(batchID, pipeline, TypeBatchAborted, map[string]any{"reason": reason})
	if err != nil {
		return nil, err
	}
	e.BaseEvent = base
	return e, nil
}
