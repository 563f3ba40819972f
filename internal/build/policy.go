package build

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// Policy decides what a per-file failure does to its batch.
type Policy string

const (
	// PolicySkip drops the failing file and commits the rest of the batch.
	PolicySkip Policy = "skip"
	// PolicyAbort discards the whole batch on the first failure.
	PolicyAbort Policy = "abort"
)

// ParsePolicy parses an on_error value; empty means skip.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", ferrors.ConfigError(fmt.Sprintf("invalid on_error policy %q (want skip or abort)", s)).
			WithContext("field", "build.on_error").
			Build()
	}
}
