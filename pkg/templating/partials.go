package templating

import (
	"fmt"
	"sync"
)

// partialFn is the registry's internal render entry. The depth argument
// counts partial expansions along the current render chain so cyclic
// references fail with an error instead of exhausting the stack.
type partialFn func(context interface{}, depth int) (string, error)

// PartialRegistry manages named sub-templates. Unlike helpers, partials are
// looked up at render time, so a partial registered after a referencing
// template was compiled is still visible to that template's renders.
type PartialRegistry struct {
	mu       sync.RWMutex
	partials map[string]partialFn
	maxDepth int
}

// NewPartialRegistry creates an empty partial registry with the expansion
// depth limit taken from the global configuration.
func NewPartialRegistry() *PartialRegistry {
	return &PartialRegistry{
		partials: make(map[string]partialFn),
		maxDepth: GetGlobalConfig().MaxRenderDepth,
	}
}

// Register adds a compiled partial under the given name, replacing any
// existing partial of the same name. Render functions registered here are
// opaque to the registry: depth accounting for nested expansion restarts
// inside them, so recursion within a hand-written render function is the
// caller's concern. Partials registered through Engine.RegisterPartial are
// fully depth-accounted.
func (r *PartialRegistry) Register(name string, fn RenderFn) error {
	if fn == nil {
		return fmt.Errorf("partial %q cannot be nil", name)
	}
	return r.register(name, func(context interface{}, _ int) (string, error) {
		return fn(context)
	})
}

func (r *PartialRegistry) register(name string, fn partialFn) error {
	if name == "" {
		return fmt.Errorf("partial name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("partial %q cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.partials[name] = fn
	return nil
}

// Get retrieves a partial by name as a plain render function.
func (r *PartialRegistry) Get(name string) (RenderFn, bool) {
	fn, ok := r.get(name)
	if !ok {
		return nil, false
	}
	return func(context interface{}) (string, error) {
		return fn(context, 0)
	}, true
}

func (r *PartialRegistry) get(name string) (partialFn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.partials[name]
	return fn, ok
}

// Names returns all registered partial names.
func (r *PartialRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.partials))
	for name := range r.partials {
		names = append(names, name)
	}
	return names
}

// limit returns the expansion depth limit. 0 disables the guard.
func (r *PartialRegistry) limit() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxDepth
}

func (r *PartialRegistry) setLimit(maxDepth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxDepth = maxDepth
}
