package preference

import "strings"

// Merge combines base and override, override winning. Two maps are merged
// recursively; anything else yields a deep copy of override. Neither input is
// modified.
func Merge(base, override any) any {
	baseMap, baseIsMap := base.(map[string]any)
	overrideMap, overrideIsMap := override.(map[string]any)
	if baseIsMap && overrideIsMap {
		return MergeMaps(baseMap, overrideMap)
	}
	return Clone(override)
}

// MergeMaps returns a new map holding the union of both maps, with override
// values taking precedence on overlapping keys.
func MergeMaps(base, override map[string]any) map[string]any {
	result := cloneMap(base)
	if result == nil {
		result = make(map[string]any, len(override))
	}
	for key, val := range override {
		existing, ok := result[key]
		if !ok {
			result[key] = Clone(val)
			continue
		}
		result[key] = Merge(existing, val)
	}
	return result
}

// Clone returns a deep copy of maps and slices; other values are returned as is.
func Clone(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Clone(item)
		}
		return out
	default:
		return val
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// Lookup finds name in data. An exact key match wins; otherwise name is
// split at each dot, left to right, and the remainder is looked up in the
// nested map under the prefix. This finds "launch.configurations" in
// {"launch": {"configurations": ...}} as well as flat dotted keys nested
// under a section.
func Lookup(data map[string]any, name string) (any, bool) {
	if data == nil || name == "" {
		return nil, false
	}
	if v, ok := data[name]; ok {
		return v, true
	}
	for i := strings.IndexByte(name, '.'); i >= 0; {
		if sub, ok := data[name[:i]].(map[string]any); ok {
			if v, found := Lookup(sub, name[i+1:]); found {
				return v, true
			}
		}
		next := strings.IndexByte(name[i+1:], '.')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, false
}

// Flatten turns nested maps into a single level map with dot separated keys.
func Flatten(data map[string]any) map[string]any {
	result := make(map[string]any)
	flatten(data, "", result)
	return result
}

func flatten(data map[string]any, prefix string, result map[string]any) {
	for key, val := range data {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok && len(nested) > 0 {
			flatten(nested, full, result)
			continue
		}
		result[full] = val
	}
}
