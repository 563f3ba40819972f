package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Pipeline", KeyPipeline, "Doc", Pipeline("Doc")},
		{"Processor", KeyProcessor, "md", Processor("md")},
		{"File", KeyFile, "guide/intro.md", File("guide/intro.md")},
		{"ID", KeyID, "abc", ID("abc")},
		{"Path", KeyPath, "/guide", Path("/guide")},
		{"BatchID", KeyBatchID, "b1", BatchID("b1")},
		{"BatchKind", KeyBatchKind, "full", BatchKind("full")},
		{"State", KeyState, "watching", State("watching")},
		{"Stage", KeyStage, "persist", Stage("persist")},
		{"Field", KeyField, "title", Field("title")},
		{"Op", KeyOp, "CREATE", Op("CREATE")},
		{"URL", KeyURL, "nats://x", URL("nats://x")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if v := Count(3); v.Key != KeyCount || v.Value.Int64() != 3 {
		t.Fatalf("Count mismatch: %v", v)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS || v.Value.Float64() != 12.5 {
		t.Fatalf("DurationMS mismatch: %v", v)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError || attr.Value.String() != "" {
		t.Fatalf("unexpected nil error attr: %v", attr)
	}
	attr = Error(errors.New("boom"))
	if attr.Value.String() != "boom" {
		t.Fatalf("expected boom, got %s", attr.Value.String())
	}
}
