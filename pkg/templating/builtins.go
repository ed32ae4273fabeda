package templating

import (
	"fmt"
	"strings"
)

// registerDefaultHelpers installs the default helper set. These are
// ordinary consumers of the helper contract; nothing in the compiler knows
// about them.
func registerDefaultHelpers(r *HelperRegistry) {
	r.Register("each", eachHelper)
	r.Register("if", ifHelper)
	r.Register("ifEqual", ifEqualHelper)
	r.Register("ifEmpty", ifEmptyHelper)
	r.Register("noop", noopHelper)
}

// eachHelper iterates a sequence, rendering the primary content once per
// item with block parameters bound to the item and its index. An empty or
// absent sequence renders the inverse content.
func eachHelper(hc HelperContext, _ interface{}, _ map[string]interface{}, positional ...interface{}) (interface{}, error) {
	if len(positional) == 0 {
		return nil, fmt.Errorf("each requires a sequence argument")
	}

	items, ok := toSlice(positional[0])
	if !ok || len(items) == 0 {
		return hc.RenderInverse(nil)
	}

	var out strings.Builder
	for i, item := range items {
		extra := make(map[string]interface{}, 2)
		if len(hc.BlockParams) > 0 {
			extra[hc.BlockParams[0]] = item
		}
		if len(hc.BlockParams) > 1 {
			extra[hc.BlockParams[1]] = i
		}
		text, err := hc.RenderPrimary(extra)
		if err != nil {
			return nil, err
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

// ifHelper renders the primary content when its argument is truthy, the
// inverse content otherwise.
func ifHelper(hc HelperContext, _ interface{}, _ map[string]interface{}, positional ...interface{}) (interface{}, error) {
	var condition interface{}
	if len(positional) > 0 {
		condition = positional[0]
	}
	if isTruthy(condition) {
		return hc.RenderPrimary(nil)
	}
	return hc.RenderInverse(nil)
}

// ifEqualHelper renders the primary content when its two arguments are
// equal. Numeric arguments compare by magnitude regardless of type.
func ifEqualHelper(hc HelperContext, _ interface{}, _ map[string]interface{}, positional ...interface{}) (interface{}, error) {
	if len(positional) < 2 {
		return nil, fmt.Errorf("ifEqual requires two arguments")
	}
	if equalValues(positional[0], positional[1]) {
		return hc.RenderPrimary(nil)
	}
	return hc.RenderInverse(nil)
}

// ifEmptyHelper renders the primary content when its argument is absent, an
// empty string, or a zero-length sequence or mapping.
func ifEmptyHelper(hc HelperContext, _ interface{}, _ map[string]interface{}, positional ...interface{}) (interface{}, error) {
	var value interface{}
	if len(positional) > 0 {
		value = positional[0]
	}
	if isEmptyValue(value) {
		return hc.RenderPrimary(nil)
	}
	return hc.RenderInverse(nil)
}

// noopHelper accepts anything and renders nothing.
func noopHelper(HelperContext, interface{}, map[string]interface{}, ...interface{}) (interface{}, error) {
	return "", nil
}
