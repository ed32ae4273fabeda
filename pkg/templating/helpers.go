package templating

import (
	"fmt"
	"sync"

	"github.com/sahilm/fuzzy"
)

// RenderFn is a compiled template: a pure mapping from a context value to
// output text. It closes over its resolved helpers and partial registry and
// is safe to invoke concurrently.
type RenderFn func(context interface{}) (string, error)

// SubRenderFn renders one of a block's child-node lists. The extra bindings
// are shallow-merged over the enclosing context.
type SubRenderFn func(extra map[string]interface{}) (string, error)

// HelperContext is the capability bundle passed to a helper invocation. For
// inline (non-block) invocations RenderPrimary and RenderInverse are no-ops
// that return "".
type HelperContext struct {
	SourceName    string
	HelperName    string
	BlockParams   []string
	RenderPrimary SubRenderFn
	RenderInverse SubRenderFn
}

// HelperFn is a template helper. It receives the capability bundle, the
// current context value, the named arguments, and the positional arguments
// in source order, and returns a stringable value.
type HelperFn func(hc HelperContext, context interface{}, named map[string]interface{}, positional ...interface{}) (interface{}, error)

// HelperRegistry manages named helpers. Reads take a shared lock so renders
// may proceed concurrently with registration.
type HelperRegistry struct {
	mu      sync.RWMutex
	helpers map[string]HelperFn
	gen     uint64
}

// NewHelperRegistry creates an empty helper registry.
func NewHelperRegistry() *HelperRegistry {
	return &HelperRegistry{
		helpers: make(map[string]HelperFn),
	}
}

// Register adds a helper to the registry, replacing any existing helper of
// the same name.
func (r *HelperRegistry) Register(name string, fn HelperFn) error {
	if name == "" {
		return fmt.Errorf("helper name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("helper %q cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.helpers[name] = fn
	r.gen++
	return nil
}

// Get retrieves a helper by name.
func (r *HelperRegistry) Get(name string) (HelperFn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.helpers[name]
	return fn, ok
}

// Names returns all registered helper names.
func (r *HelperRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	return names
}

// generation returns a counter that changes whenever the registry does,
// used to key compiled-template caching.
func (r *HelperRegistry) generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}

// suggest returns the registered helper name closest to the given name, or
// "" when nothing is close enough to be a plausible typo.
func (r *HelperRegistry) suggest(name string) string {
	matches := fuzzy.Find(name, r.Names())
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

var (
	defaultHelpers     *HelperRegistry
	defaultHelpersOnce sync.Once
)

// DefaultHelperRegistry returns the shared registry pre-loaded with the
// default helpers (each, if, ifEqual, ifEmpty, noop).
func DefaultHelperRegistry() *HelperRegistry {
	defaultHelpersOnce.Do(func() {
		defaultHelpers = NewHelperRegistry()
		registerDefaultHelpers(defaultHelpers)
	})
	return defaultHelpers
}
