package templating

import (
	"fmt"
	"log/slog"
	"strings"
)

// renderStep is one compiled unit of output. A compiled template is a flat
// sequence of steps executed in order against the render context. The depth
// argument counts partial expansions along the current render chain; only
// partial steps consume it.
type renderStep func(context interface{}, depth int, out *strings.Builder) error

// runSteps executes a compiled step sequence against a context.
func runSteps(steps []renderStep, context interface{}, depth int) (string, error) {
	var out strings.Builder
	for _, step := range steps {
		if err := step(context, depth, &out); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

// Compile walks the template tree once, bottom-up, and produces a reusable
// render function. Adjacent content nodes are merged, helper references are
// resolved eagerly against the helper registry (an unknown helper fails the
// compile), and block helpers become closures carrying pre-compiled primary
// and inverse sub-renders. Partial references are deferred to render time
// so partials may be registered after the referencing template compiles.
//
// A nil helper registry means the default helpers; a nil partial registry
// means no partials.
func Compile(nodes []Node, helpers *HelperRegistry, partials *PartialRegistry) (RenderFn, error) {
	if helpers == nil {
		helpers = DefaultHelperRegistry()
	}
	if partials == nil {
		partials = NewPartialRegistry()
	}

	steps, err := compileNodes(nodes, helpers, partials)
	if err != nil {
		return nil, err
	}

	logger := Logger()
	if debugEnabled(logger) {
		logger.Debug("template compiled", slog.Int("steps", len(steps)))
	}

	return func(context interface{}) (string, error) {
		return runSteps(steps, context, 0)
	}, nil
}

func compileNodes(nodes []Node, helpers *HelperRegistry, partials *PartialRegistry) ([]renderStep, error) {
	steps := make([]renderStep, 0, len(nodes))

	for _, node := range mergeContent(nodes) {
		switch n := node.(type) {
		case *ContentNode:
			steps = append(steps, compileContent(n))
		case *CommentNode:
			// No output.
		case *PathNode:
			steps = append(steps, compilePath(n, helpers))
		case *HelperNode:
			step, err := compileHelper(n, helpers, partials)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		case *PartialNode:
			steps = append(steps, compilePartial(n, partials))
		default:
			return nil, fmt.Errorf("cannot compile node %s", node)
		}
	}

	return steps, nil
}

// mergeContent merges runs of adjacent content nodes into single literals
// for fewer runtime concatenations.
func mergeContent(nodes []Node) []Node {
	merged := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		content, ok := node.(*ContentNode)
		if !ok {
			merged = append(merged, node)
			continue
		}
		if len(merged) > 0 {
			if prev, ok := merged[len(merged)-1].(*ContentNode); ok {
				merged[len(merged)-1] = &ContentNode{
					Text:  prev.Text + content.Text,
					Token: prev.Token,
				}
				continue
			}
		}
		merged = append(merged, content)
	}
	return merged
}

func compileContent(n *ContentNode) renderStep {
	text := n.Text
	return func(_ interface{}, _ int, out *strings.Builder) error {
		out.WriteString(text)
		return nil
	}
}

// compilePath compiles a single-path lookup. When the dereferenced value is
// itself a helper (helpers shadow context properties), the helper is
// invoked with no arguments; a bare {{name}} therefore works for zero-arg
// helpers.
func compilePath(n *PathNode, helpers *HelperRegistry) renderStep {
	node := n
	return func(context interface{}, _ int, out *strings.Builder) error {
		value := resolvePath(context, node.Path, helpers)

		if fn, ok := value.(HelperFn); ok {
			hc := HelperContext{
				SourceName:    node.Token.SourceName,
				HelperName:    node.Raw,
				RenderPrimary: noopSubRender,
				RenderInverse: noopSubRender,
			}
			result, err := callHelper(fn, node.Raw, node.Token, hc, context, nil)
			if err != nil {
				return err
			}
			value = result
		}

		text := formatValue(value)
		if node.Escape {
			text = escapeValue(text)
		}
		out.WriteString(text)
		return nil
	}
}

func noopSubRender(map[string]interface{}) (string, error) {
	return "", nil
}

// compileHelper compiles a helper invocation. The helper itself is resolved
// now; argument values are resolved per render, since the context varies.
func compileHelper(n *HelperNode, helpers *HelperRegistry, partials *PartialRegistry) (renderStep, error) {
	fn, ok := helpers.Get(n.Name)
	if !ok {
		msg := fmt.Sprintf("no such helper %q", n.Name)
		if hint := helpers.suggest(n.Name); hint != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", hint)
		}
		return nil, newSyntaxError(msg, n.Token)
	}

	primary, err := compileNodes(n.Primary, helpers, partials)
	if err != nil {
		return nil, err
	}
	inverse, err := compileNodes(n.Inverse, helpers, partials)
	if err != nil {
		return nil, err
	}

	node := n
	return func(context interface{}, depth int, out *strings.Builder) error {
		positional := make([]interface{}, len(node.Positional))
		for i, arg := range node.Positional {
			positional[i] = evalArgument(arg, context, helpers)
		}

		var named map[string]interface{}
		if len(node.Named) > 0 {
			named = make(map[string]interface{}, len(node.Named))
			for _, kv := range node.Named {
				named[kv.Key] = evalArgument(kv.Value, context, helpers)
			}
		}

		hc := HelperContext{
			SourceName:    node.Token.SourceName,
			HelperName:    node.Name,
			BlockParams:   node.BlockParams,
			RenderPrimary: subRender(primary, context, depth),
			RenderInverse: subRender(inverse, context, depth),
		}

		result, err := callHelper(fn, node.Name, node.Token, hc, context, named, positional...)
		if err != nil {
			return err
		}

		text := formatValue(result)
		if node.Escape && !node.Block {
			text = escapeValue(text)
		}
		out.WriteString(text)
		return nil
	}, nil
}

// subRender builds the closure a helper calls to render one of its child
// lists. The extra bindings shadow, but never erase, the enclosing context.
// The invoking step's partial-expansion depth carries through unchanged.
func subRender(steps []renderStep, outer interface{}, depth int) SubRenderFn {
	return func(extra map[string]interface{}) (string, error) {
		child := mergeContext(outer, extra)
		return runSteps(steps, child, depth)
	}
}

// evalArgument dereferences a path argument against the current context or
// unwraps a literal. Helpers shadow context values here too, so a helper
// can be passed by name to another helper.
func evalArgument(arg Argument, context interface{}, helpers *HelperRegistry) interface{} {
	if arg.IsPath {
		return resolvePath(context, arg.Path, helpers)
	}
	return arg.Value
}

// callHelper invokes third-party helper code. A panic or error raised there
// is caught at this single call boundary and converted into a HelperError,
// failing the whole render rather than unwinding through it.
func callHelper(
	fn HelperFn,
	name string,
	tok Token,
	hc HelperContext,
	context interface{},
	named map[string]interface{},
	positional ...interface{},
) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newHelperError(name, tok, recoveredError(r))
		}
	}()

	result, err = fn(hc, context, named, positional...)
	if err != nil {
		if IsHelperError(err) || IsSyntaxError(err) {
			return nil, err
		}
		return nil, newHelperError(name, tok, err)
	}
	return result, nil
}

// compilePartial defers the registry lookup to render time. A partial
// missing at render is a permanent error for that render call. Each
// expansion counts against the registry's depth limit so a partial that
// references itself, directly or through a cycle, fails the render with an
// error rather than overflowing the stack.
func compilePartial(n *PartialNode, partials *PartialRegistry) renderStep {
	node := n
	return func(context interface{}, depth int, out *strings.Builder) error {
		fn, ok := partials.get(node.Name)
		if !ok {
			return newSyntaxError(
				fmt.Sprintf("no such partial %q", node.Name), node.Token)
		}
		if max := partials.limit(); max > 0 && depth >= max {
			return newSyntaxError(
				fmt.Sprintf("partial %q exceeds the maximum render depth of %d", node.Name, max),
				node.Token)
		}
		text, err := fn(context, depth+1)
		if err != nil {
			return err
		}
		out.WriteString(text)
		return nil
	}
}
