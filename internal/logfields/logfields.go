package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPipeline   = "pipeline"
	KeyProcessor  = "processor"
	KeyFile       = "file"
	KeyID         = "id"
	KeyPath       = "path"
	KeyBatchID    = "batch_id"
	KeyBatchKind  = "batch_kind"
	KeyState      = "state"
	KeyStage      = "stage"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyField      = "field"
	KeyOp         = "op"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Pipeline(t string) slog.Attr     { return slog.String(KeyPipeline, t) }
func Processor(p string) slog.Attr    { return slog.String(KeyProcessor, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func ID(id string) slog.Attr          { return slog.String(KeyID, id) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func BatchID(id string) slog.Attr     { return slog.String(KeyBatchID, id) }
func BatchKind(k string) slog.Attr    { return slog.String(KeyBatchKind, k) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Field(name string) slog.Attr     { return slog.String(KeyField, name) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
