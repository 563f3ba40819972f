// Package build coordinates full and incremental builds of one pipeline.
//
// A Coordinator owns the committed content index of its pipeline. Every
// batch, full or incremental, patches a clone of that index, persists a
// sorted snapshot atomically and only then swaps the clone in. A batch that
// aborts (by policy, cancellation or a failed write) leaves both the
// persisted document and the in-memory index exactly as they were.
//
// Batches are single flight: Watch consumes one batch at a time and changes
// that arrive meanwhile are coalesced upstream into the next batch.
package build
