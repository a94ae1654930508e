// Package config assembles the effective provider configuration by merging
// the operator's config file over the provider's defaults file.
package config

import "fmt"

// TypeConflictError is returned when the overriding document holds a nested
// mapping at a key where the base holds a scalar, or vice versa. Only
// mapping-over-mapping is mergeable; everything else replaces wholesale or
// fails.
type TypeConflictError struct {
	Key string
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("type conflict at key %q: cannot merge a mapping with a non-mapping value", e.Key)
}

// Merge deep-merges overriding over overridden and returns a new document.
// Neither input is mutated. Nested mappings merge recursively; sequences and
// scalars replace the base value wholesale, never element-wise.
func Merge(overriding, overridden map[string]interface{}) (map[string]interface{}, error) {
	merged := deepCopyMap(overridden)
	for key, value := range overriding {
		base, exists := merged[key]
		overridingMap, overridingIsMap := value.(map[string]interface{})
		baseMap, baseIsMap := base.(map[string]interface{})

		switch {
		case !exists || (!overridingIsMap && !baseIsMap):
			merged[key] = deepCopyValue(value)
		case overridingIsMap && baseIsMap:
			sub, err := Merge(overridingMap, baseMap)
			if err != nil {
				return nil, err
			}
			merged[key] = sub
		default:
			return nil, &TypeConflictError{Key: key}
		}
	}
	return merged, nil
}

func deepCopyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, elem := range typed {
			out[i] = deepCopyValue(elem)
		}
		return out
	default:
		return v
	}
}
