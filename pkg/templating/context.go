package templating

import (
	"fmt"
	"html"
	"reflect"
	"strconv"
)

// resolvePath walks a reference path against the context value one segment
// at a time. A single-segment path naming a registered helper dereferences
// to the helper function itself; helpers shadow same-named context
// properties. A missing intermediate container yields nil rather than a
// fault, so absent optional data never aborts a render.
func resolvePath(context interface{}, path []PathSegment, helpers *HelperRegistry) interface{} {
	if len(path) == 1 && !path[0].IsIndex && helpers != nil {
		if fn, ok := helpers.Get(path[0].Key); ok {
			return fn
		}
	}

	current := context
	for _, seg := range path {
		if current == nil {
			return nil
		}
		if seg.IsIndex {
			current = accessIndex(current, seg.Index)
		} else {
			current = accessKey(current, seg.Key)
		}
	}
	return current
}

// accessKey looks up a named key in a map-like or struct-like container.
func accessKey(current interface{}, key string) interface{} {
	switch v := current.(type) {
	case map[string]interface{}:
		return v[key]
	case map[string]string:
		return v[key]
	case map[string]int:
		return v[key]
	case map[string]float64:
		return v[key]
	case map[string]bool:
		return v[key]
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		mv := rv.MapIndex(reflect.ValueOf(key))
		if !mv.IsValid() {
			return nil
		}
		return mv.Interface()
	case reflect.Struct:
		fv := rv.FieldByName(key)
		if !fv.IsValid() || !fv.CanInterface() {
			return nil
		}
		return fv.Interface()
	default:
		return nil
	}
}

// accessIndex looks up an element of a sequence by position. Out-of-bounds
// access yields nil.
func accessIndex(current interface{}, index int) interface{} {
	switch v := current.(type) {
	case []interface{}:
		if index >= 0 && index < len(v) {
			return v[index]
		}
		return nil
	case []string:
		if index >= 0 && index < len(v) {
			return v[index]
		}
		return nil
	case []int:
		if index >= 0 && index < len(v) {
			return v[index]
		}
		return nil
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if index >= 0 && index < rv.Len() {
			return rv.Index(index).Interface()
		}
	case reflect.Map:
		// Numeric brackets against a map fall back to the stringified key.
		return accessKey(current, strconv.Itoa(index))
	}
	return nil
}

// mergeContext shallow-merges extra bindings over the enclosing context so
// inner scopes can shadow but never erase outer bindings. A non-map outer
// context has no keys to shadow; the extra bindings become the child
// context on their own.
func mergeContext(outer interface{}, extra map[string]interface{}) interface{} {
	if len(extra) == 0 {
		return outer
	}

	merged := make(map[string]interface{})
	switch v := outer.(type) {
	case map[string]interface{}:
		for k, val := range v {
			merged[k] = val
		}
	default:
		rv := reflect.ValueOf(outer)
		if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
			iter := rv.MapRange()
			for iter.Next() {
				merged[iter.Key().String()] = iter.Value().Interface()
			}
		}
	}
	for k, val := range extra {
		merged[k] = val
	}
	return merged
}

// formatValue converts a value to its output string representation.
func formatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int8, int16, int32:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		// 'g' with precision 15 removes trailing zeros without exposing
		// binary representation noise.
		return strconv.FormatFloat(v, 'g', 15, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// escapeValue applies the HTML escaping policy to expression output.
func escapeValue(s string) string {
	return html.EscapeString(s)
}

// isTruthy reports template truthiness: nil, false, zero numbers, empty
// strings, and empty sequences/mappings are falsy; everything else is
// truthy.
func isTruthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// isEmptyValue reports whether a value is absent, an empty string, or a
// zero-length sequence/mapping. Numbers are never empty.
func isEmptyValue(value interface{}) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// equalValues compares two values for template equality. Numeric values
// compare by magnitude regardless of concrete type, so a literal 2 equals a
// context float64(2).
func equalValues(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// toSlice normalizes any sequence value to []interface{}. The second result
// reports whether the value was a sequence at all.
func toSlice(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}

	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []int:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}
