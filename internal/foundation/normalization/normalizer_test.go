package normalization

import (
	"testing"
)

type color string

const (
	red   color = "red"
	green color = "green"
)

func newColors() *Normalizer[color] {
	return NewNormalizer(map[string]color{"Red": red, "green": green}, green)
}

func TestNormalize(t *testing.T) {
	n := newColors()
	tests := []struct {
		name  string
		input string
		want  color
	}{
		{"exact", "red", red},
		{"folded key", "RED", red},
		{"padded", "  green ", green},
		{"unknown falls back", "blue", green},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	n := newColors()

	got, err := n.Parse(" Red")
	if err != nil || got != red {
		t.Fatalf("Parse(Red) = %q, %v", got, err)
	}

	got, err = n.Parse("")
	if err != nil || got != green {
		t.Fatalf("Parse(empty) = %q, %v; want fallback", got, err)
	}

	if _, err := n.Parse("blue"); err == nil {
		t.Fatal("Parse(blue) should fail")
	} else if want := `invalid value "blue", valid options: green, red`; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestKeysIsACopy(t *testing.T) {
	n := newColors()
	keys := n.Keys()
	keys[0] = "mutated"
	if n.Keys()[0] != "green" {
		t.Fatal("Keys must not expose internal state")
	}
}
