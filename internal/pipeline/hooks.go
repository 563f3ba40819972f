package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Hooks is a registry of named transform and sort functions that
// configuration files reference by name.
type Hooks struct {
	mu         sync.RWMutex
	transforms map[string]TransformFunc
	sorts      map[string]SortFunc
}

// NewHooks creates an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{
		transforms: make(map[string]TransformFunc),
		sorts:      make(map[string]SortFunc),
	}
}

// RegisterTransform adds a named transform hook.
func (h *Hooks) RegisterTransform(name string, fn TransformFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("transform hook needs a name and a function")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.transforms[name]; exists {
		return fmt.Errorf("transform hook %s already registered", name)
	}
	h.transforms[name] = fn
	return nil
}

// RegisterSort adds a named sort hook.
func (h *Hooks) RegisterSort(name string, fn SortFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("sort hook needs a name and a function")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.sorts[name]; exists {
		return fmt.Errorf("sort hook %s already registered", name)
	}
	h.sorts[name] = fn
	return nil
}

// Transform looks up a transform hook.
func (h *Hooks) Transform(name string) (TransformFunc, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.transforms[name]
	return fn, ok
}

// Sort looks up a sort hook.
func (h *Hooks) Sort(name string) (SortFunc, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.sorts[name]
	return fn, ok
}

// Names returns the registered transform and sort hook names, sorted.
func (h *Hooks) Names() (transforms, sorts []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Sorted(maps.Keys(h.transforms)), slices.Sorted(maps.Keys(h.sorts))
}
