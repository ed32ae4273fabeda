package templating

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestEngineRenderString(t *testing.T) {
	engine := New()

	got, err := engine.RenderString("t", "Hello {{ name }}!", map[string]interface{}{"name": "World"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello World!" {
		t.Errorf("render = %q, want %q", got, "Hello World!")
	}
}

func TestEngineCompileStringCaches(t *testing.T) {
	engine := New()

	first, err := engine.CompileString("t", "{{ x }}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.CompileString("t", "{{ x }}"); err != nil {
		t.Fatal(err)
	}
	if engine.cache.Size() != 1 {
		t.Errorf("cache size = %d, want 1 after recompiling the same source", engine.cache.Size())
	}

	got, err := first(map[string]interface{}{"x": "v"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "v" {
		t.Errorf("render = %q, want %q", got, "v")
	}

	if _, err := engine.CompileString("t", "{{ y }}"); err != nil {
		t.Fatal(err)
	}
	if engine.cache.Size() != 2 {
		t.Errorf("cache size = %d, want 2 after compiling new source", engine.cache.Size())
	}
}

func TestEngineHelperRegistrationInvalidatesCache(t *testing.T) {
	engine := New()
	engine.RegisterHelper("version", func(HelperContext, interface{}, map[string]interface{}, ...interface{}) (interface{}, error) {
		return "one", nil
	})

	render, err := engine.CompileString("t", "{{version}}")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := render(nil)
	if got != "one" {
		t.Fatalf("render = %q, want %q", got, "one")
	}

	// A compiled template keeps the binding it was compiled with.
	engine.RegisterHelper("version", func(HelperContext, interface{}, map[string]interface{}, ...interface{}) (interface{}, error) {
		return "two", nil
	})
	got, _ = render(nil)
	if got != "one" {
		t.Errorf("old render = %q, want the original binding %q", got, "one")
	}

	// A fresh compile must not resurrect the stale cache entry.
	render2, err := engine.CompileString("t", "{{version}}")
	if err != nil {
		t.Fatal(err)
	}
	got, _ = render2(nil)
	if got != "two" {
		t.Errorf("recompiled render = %q, want %q", got, "two")
	}
}

func TestEnginePartialLateRegistration(t *testing.T) {
	engine := New()

	render, err := engine.CompileString("page", "A{{> footer}}Z")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := render(nil); err == nil {
		t.Fatal("expected error before the partial is registered")
	}

	if err := engine.RegisterPartial("footer", "[{{ year }}]"); err != nil {
		t.Fatal(err)
	}

	got, err := render(map[string]interface{}{"year": 2026})
	if err != nil {
		t.Fatal(err)
	}
	if got != "A[2026]Z" {
		t.Errorf("render = %q, want %q", got, "A[2026]Z")
	}
}

func TestEngineRegisterPartialRejectsBadSource(t *testing.T) {
	engine := New()
	err := engine.RegisterPartial("broken", "{{ open")
	if err == nil {
		t.Fatal("expected error for malformed partial source")
	}
	if !strings.Contains(err.Error(), `failed to compile partial "broken"`) {
		t.Errorf("error = %q, want compile-partial message", err.Error())
	}
}

func TestEngineRegisterPartialFn(t *testing.T) {
	engine := New()
	engine.RegisterPartialFn("static", func(interface{}) (string, error) {
		return "fixed", nil
	})

	got, err := engine.RenderString("t", "<{{> static}}>", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<fixed>" {
		t.Errorf("render = %q, want %q", got, "<fixed>")
	}
}

func TestEnginePartialSelfReferenceStopsAtDepthLimit(t *testing.T) {
	engine := New()
	if err := engine.RegisterPartial("self", "x{{> self}}"); err != nil {
		t.Fatal(err)
	}

	_, err := engine.RenderString("page", "{{> self}}", nil)
	if err == nil {
		t.Fatal("expected error for a self-referencing partial")
	}
	if !IsSyntaxError(err) {
		t.Errorf("error = %T, want SyntaxError", err)
	}
	if !strings.Contains(err.Error(), "maximum render depth") {
		t.Errorf("error = %q, want render depth message", err.Error())
	}
}

func TestEnginePartialMutualCycleStopsAtDepthLimit(t *testing.T) {
	engine := New()
	if err := engine.RegisterPartial("ping", "a{{> pong}}"); err != nil {
		t.Fatal(err)
	}
	if err := engine.RegisterPartial("pong", "b{{> ping}}"); err != nil {
		t.Fatal(err)
	}

	_, err := engine.RenderString("page", "{{> ping}}", nil)
	if err == nil {
		t.Fatal("expected error for mutually cyclic partials")
	}
	if !strings.Contains(err.Error(), "maximum render depth") {
		t.Errorf("error = %q, want render depth message", err.Error())
	}
}

func TestEnginePartialNestingWithinDepthLimit(t *testing.T) {
	config := DefaultConfig()
	config.MaxRenderDepth = 3
	engine := NewWithOptions(WithConfig(config))

	if err := engine.RegisterPartial("leaf", "!"); err != nil {
		t.Fatal(err)
	}
	if err := engine.RegisterPartial("mid", "m{{> leaf}}"); err != nil {
		t.Fatal(err)
	}
	if err := engine.RegisterPartial("top", "t{{> mid}}"); err != nil {
		t.Fatal(err)
	}

	got, err := engine.RenderString("page", "<{{> top}}>", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<tm!>" {
		t.Errorf("render = %q, want %q", got, "<tm!>")
	}

	// One more level of nesting crosses the configured limit.
	if err := engine.RegisterPartial("root", "r{{> top}}"); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.RenderString("page", "{{> root}}", nil); err == nil {
		t.Fatal("expected error when nesting exceeds the depth limit")
	}
}

func TestEngineCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.html")
	if err := os.WriteFile(path, []byte("Hi {{ who }}"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := New()
	render, err := engine.CompileFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := render(map[string]interface{}{"who": "there"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hi there" {
		t.Errorf("render = %q, want %q", got, "Hi there")
	}

	if _, err := engine.CompileFile(filepath.Join(dir, "missing.html")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEngineCompileFileErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.html")
	if err := os.WriteFile(path, []byte("{{ open"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := New()
	_, err := engine.CompileFile(path)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !strings.Contains(err.Error(), "broken.html") {
		t.Errorf("error = %q, want the file path as source name", err.Error())
	}
}

func TestNewWithOptions(t *testing.T) {
	engine := NewWithOptions(
		WithCacheSize(3),
		WithHelper("shout", func(_ HelperContext, _ interface{}, _ map[string]interface{}, positional ...interface{}) (interface{}, error) {
			if len(positional) == 0 {
				return "", nil
			}
			return strings.ToUpper(formatValue(positional[0])), nil
		}),
		WithPartial("sig", "-- {{ name }}"),
	)

	if engine.Config().CacheMaxSize != 3 {
		t.Errorf("CacheMaxSize = %d, want 3", engine.Config().CacheMaxSize)
	}

	got, err := engine.RenderString("t", "{{shout word}} {{> sig}}", map[string]interface{}{
		"word": "hi",
		"name": "Ada",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "HI -- Ada" {
		t.Errorf("render = %q, want %q", got, "HI -- Ada")
	}
}

func TestEngineClearCache(t *testing.T) {
	engine := New()
	if _, err := engine.CompileString("t", "x"); err != nil {
		t.Fatal(err)
	}
	engine.ClearCache()
	if engine.cache.Size() != 0 {
		t.Errorf("cache size = %d, want 0 after ClearCache", engine.cache.Size())
	}
}

func TestEngineConcurrentRender(t *testing.T) {
	engine := New()
	render, err := engine.CompileString("t", "{{#each items as |i|}}{{i}}{{/each}}")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for n := 0; n < 16; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := render(map[string]interface{}{"items": []int{1, 2, 3}})
				if err != nil || got != "123" {
					t.Errorf("concurrent render = %q, %v", got, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestEngineIsolation(t *testing.T) {
	a := New()
	b := New()

	a.RegisterHelper("only", func(HelperContext, interface{}, map[string]interface{}, ...interface{}) (interface{}, error) {
		return "a", nil
	})

	if _, ok := b.Helpers().Get("only"); ok {
		t.Error("helper registered on one engine leaked into another")
	}
	if _, ok := a.Helpers().Get("only"); !ok {
		t.Error("helper missing from the engine it was registered on")
	}
}

func TestPackageLevelAPI(t *testing.T) {
	defer ClearCache()

	if err := RegisterGlobalHelper("twice", func(_ HelperContext, _ interface{}, _ map[string]interface{}, positional ...interface{}) (interface{}, error) {
		s := formatValue(positional[0])
		return s + s, nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := RegisterGlobalPartial("brand", "kixx"); err != nil {
		t.Fatal(err)
	}

	got, err := RenderString("t", "{{twice word}} {{> brand}}", map[string]interface{}{"word": "go"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "gogo kixx" {
		t.Errorf("render = %q, want %q", got, "gogo kixx")
	}

	render, err := CompileString("t2", "{{ v }}")
	if err != nil {
		t.Fatal(err)
	}
	if out, _ := render(map[string]interface{}{"v": 1}); out != "1" {
		t.Errorf("render = %q, want %q", out, "1")
	}
}
