// Package slug derives stable identities and canonical public paths for
// source files inside a pipeline root.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is returned for inputs that contain nothing slug-worthy.
const Fallback = "untitled"

// Letters that do not decompose under NFKD.
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "ø", "o", "Ø", "O",
	"œ", "oe", "Œ", "OE", "đ", "d", "Đ", "D", "ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH", "&", " and ",
)

// Slugify converts any string into a URL-safe form: diacritics folded,
// camelCase split, lowercase, runs of other characters collapsed to a single
// hyphen. The result only contains [a-z0-9-], never starts or ends with a
// hyphen, and Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	s = fold(foldReplacer.Replace(s))
	s = decamelize(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return Fallback
	}
	return b.String()
}

func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// decamelize inserts a space at lower→Upper boundaries and before the last
// capital of an acronym followed by lowercase ("XMLParser" → "XML Parser").
func decamelize(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
