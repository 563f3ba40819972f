package processor

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// Built-in processor identifiers.
const (
	Markdown         = "md"
	MarkdownSections = "md-sections"
	HTML             = "html"
)

// Registry maps processor identifiers to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry holding the built-in processors.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories[Markdown] = NewMarkdown
	r.factories[MarkdownSections] = NewMarkdownSections
	r.factories[HTML] = NewHTML
	return r
}

// Register adds a factory. Returns an error if the identifier is empty or
// already registered.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("cannot register processor with empty id")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil factory for processor %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("processor %s already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Resolve constructs and initializes the processor id for pipeline. Unknown
// identifiers and factory or Init failures are ProcessorResolutionErrors.
func (r *Registry) Resolve(ctx context.Context, pipeline, id, rootPath string, opts Options) (Processor, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ferrors.ProcessorResolutionError(pipeline, id).
			WithContext("available", strings.Join(r.IDs(), ", ")).
			Build()
	}

	p, err := factory(rootPath, opts)
	if err != nil {
		return nil, ferrors.ProcessorResolutionError(pipeline, id).WithCause(err).Build()
	}
	if p == nil {
		return nil, ferrors.ProcessorResolutionError(pipeline, id).
			WithCause(fmt.Errorf("factory returned nil processor")).
			Build()
	}
	if initializer, ok := p.(Initializer); ok {
		if err := initializer.Init(ctx); err != nil {
			return nil, ferrors.ProcessorResolutionError(pipeline, id).WithCause(err).Build()
		}
	}
	return p, nil
}
