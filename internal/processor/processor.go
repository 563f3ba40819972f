// Package processor defines the content extractor contract and the registry
// of built-in and user-supplied processors.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"git.home.luguber.info/inful/contented/internal/content"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// Processor extracts zero or more content records from one source file.
//
// idx carries the identity, canonical path and sections already derived for
// file; processors fill in fields and body content. Returning no records and
// no error means the file contributes nothing.
type Processor interface {
	Extract(ctx context.Context, idx content.FileIndex, rootPath, file string) ([]content.FileContent, error)
}

// Initializer is implemented by processors that need one-time setup before
// their first Extract call.
type Initializer interface {
	Init(ctx context.Context) error
}

// Factory constructs a processor for a pipeline root.
type Factory func(rootPath string, opts Options) (Processor, error)

// Options are the free-form processor settings of a pipeline.
type Options map[string]any

// Bool returns a boolean option or def when absent or not a boolean.
func (o Options) Bool(key string, def bool) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Int returns an integer option or def when absent or not a number.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// String returns a string option or def when absent.
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// ReadSource reads a pipeline-relative file. Failures are IOErrors naming file.
func ReadSource(rootPath, file string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(rootPath, filepath.FromSlash(file)))
	if err != nil {
		return nil, ferrors.IOError(file).WithCause(err).Build()
	}
	return data, nil
}

func invalidSource(file, reason string, cause error) error {
	return ferrors.NewError(ferrors.CategoryValidation, fmt.Sprintf("invalid source: %s", reason)).
		WithCause(cause).
		WithContext("file", file).
		Build()
}
