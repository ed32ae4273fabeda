package templating

import (
	"fmt"
	"os"
)

// Engine ties the pipeline together: it owns the configuration, the
// compiled-template cache, and the helper and partial registries that
// compiled templates bind against. Use New() or NewWithOptions() to create
// an instance.
type Engine struct {
	config   *Config
	cache    *TemplateCache
	helpers  *HelperRegistry
	partials *PartialRegistry
}

// New creates an engine with the global configuration, a fresh cache, and
// its own registries pre-loaded with the default helpers.
func New() *Engine {
	helpers := NewHelperRegistry()
	registerDefaultHelpers(helpers)

	return &Engine{
		config:   GetGlobalConfig(),
		cache:    NewTemplateCache(),
		helpers:  helpers,
		partials: NewPartialRegistry(),
	}
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = config
		e.cache = NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: config.CacheMaxSize,
			TTL:     config.CacheTTL,
		})
		e.partials.setLimit(config.MaxRenderDepth)
	}
}

// WithCacheSize returns an option that sets the cache size (0 disables
// caching).
func WithCacheSize(maxSize int) Option {
	return func(e *Engine) {
		e.config.CacheMaxSize = maxSize
		e.cache = NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: maxSize,
			TTL:     e.config.CacheTTL,
		})
	}
}

// WithHelper returns an option that registers a helper.
func WithHelper(name string, fn HelperFn) Option {
	return func(e *Engine) {
		e.helpers.Register(name, fn)
	}
}

// WithPartial returns an option that compiles and registers a partial.
// A malformed partial surfaces when the engine is first used; options
// cannot fail.
func WithPartial(name, source string) Option {
	return func(e *Engine) {
		e.RegisterPartial(name, source)
	}
}

// NewWithOptions creates an engine with the specified options applied over
// the defaults.
func NewWithOptions(opts ...Option) *Engine {
	engine := New()
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Helpers returns the engine's helper registry.
func (e *Engine) Helpers() *HelperRegistry {
	return e.helpers
}

// Partials returns the engine's partial registry.
func (e *Engine) Partials() *PartialRegistry {
	return e.partials
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// RegisterHelper adds a helper that templates compiled afterwards can
// invoke. Templates already compiled keep the helper bindings they were
// compiled with.
func (e *Engine) RegisterHelper(name string, fn HelperFn) error {
	return e.helpers.Register(name, fn)
}

// RegisterPartial compiles source as a sub-template and registers it under
// the given name. Templates that reference the name resolve it at render
// time, so registration order does not matter. The partial participates in
// render-depth accounting: a self-referencing or mutually cyclic partial
// fails its render once the configured MaxRenderDepth is exceeded.
func (e *Engine) RegisterPartial(name, source string) error {
	nodes, err := Parse(Lex(name, source))
	if err != nil {
		return fmt.Errorf("failed to compile partial %q: %w", name, err)
	}
	steps, err := compileNodes(nodes, e.helpers, e.partials)
	if err != nil {
		return fmt.Errorf("failed to compile partial %q: %w", name, err)
	}
	return e.partials.register(name, func(context interface{}, depth int) (string, error) {
		return runSteps(steps, context, depth)
	})
}

// RegisterPartialFn registers an already-compiled render function as a
// partial. This allows partials compiled elsewhere, or hand-written render
// functions, to participate in composition.
func (e *Engine) RegisterPartialFn(name string, fn RenderFn) error {
	return e.partials.Register(name, fn)
}

// CompileString runs the full pipeline (lex, parse, compile) over the
// source and returns a reusable render function. Compiled templates are
// cached when caching is enabled.
func (e *Engine) CompileString(sourceName, source string) (RenderFn, error) {
	key := cacheKey(sourceName, source, e.helpers.generation())
	if render, ok := e.cache.Get(key); ok {
		return render, nil
	}

	tokens := Lex(sourceName, source)
	nodes, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	render, err := Compile(nodes, e.helpers, e.partials)
	if err != nil {
		return nil, err
	}

	e.cache.Set(key, render)
	return render, nil
}

// CompileFile reads a template from a file and compiles it. The file path
// is used as the source name in diagnostics.
func (e *Engine) CompileFile(path string) (RenderFn, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return e.CompileString(path, string(source))
}

// RenderString compiles the source and renders it once with the given
// context. For repeated renders, compile once and reuse the render
// function.
func (e *Engine) RenderString(sourceName, source string, context interface{}) (string, error) {
	render, err := e.CompileString(sourceName, source)
	if err != nil {
		return "", err
	}
	return render(context)
}

// ClearCache removes all compiled templates from the engine's cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// DefaultEngine is the global default engine instance.
var DefaultEngine = New()

// CompileString compiles a template using the default engine.
func CompileString(sourceName, source string) (RenderFn, error) {
	return DefaultEngine.CompileString(sourceName, source)
}

// RenderString compiles and renders a template using the default engine.
func RenderString(sourceName, source string, context interface{}) (string, error) {
	return DefaultEngine.RenderString(sourceName, source, context)
}

// RegisterGlobalHelper adds a helper to the default engine.
func RegisterGlobalHelper(name string, fn HelperFn) error {
	return DefaultEngine.RegisterHelper(name, fn)
}

// RegisterGlobalPartial compiles and registers a partial on the default
// engine.
func RegisterGlobalPartial(name, source string) error {
	return DefaultEngine.RegisterPartial(name, source)
}

// ClearCache clears the default engine's template cache.
func ClearCache() {
	DefaultEngine.ClearCache()
}
