package descriptor

import (
	"fmt"

	"github.com/archiveteam/warrior-pipeline/internal/realize"
)

// toRealizeValue walks a YAML-decoded value, turning recognized
// single-key tag maps into realize descriptors and recursing into
// plain maps/sequences. Anything else passes through unchanged, same
// as realize.Realize's own default case.
func toRealizeValue(raw interface{}) (interface{}, error) {
	m, ok := asTagMap(raw)
	if !ok {
		return recurseRealizeValue(raw)
	}

	if v, ok := m["item"]; ok {
		key, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("descriptor: item tag value must be a string key")
		}
		return realize.ItemValue{Key: key}, nil
	}

	if v, ok := m["interp"]; ok {
		tmpl, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("descriptor: interp tag value must be a string template")
		}
		return realize.ItemInterpolation{Template: tmpl}, nil
	}

	if v, ok := m["config"]; ok {
		spec, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("descriptor: config tag value must be a mapping")
		}
		return configValueFromSpec(spec)
	}

	return recurseRealizeValue(raw)
}

func configValueFromSpec(spec map[string]interface{}) (realize.ConfigValue, error) {
	name, _ := spec["name"].(string)
	if name == "" {
		return realize.ConfigValue{}, fmt.Errorf("descriptor: config tag requires a name")
	}
	cv := realize.ConfigValue{Name: name, Default: spec["default"]}
	if pattern, ok := spec["pattern"].(string); ok {
		cv.Pattern = pattern
	}
	if min, ok := toIntPtr(spec["min"]); ok {
		cv.Min = min
	}
	if max, ok := toIntPtr(spec["max"]); ok {
		cv.Max = max
	}
	return cv, nil
}

func toIntPtr(raw interface{}) (*int64, bool) {
	switch n := raw.(type) {
	case int:
		v := int64(n)
		return &v, true
	case int64:
		return &n, true
	case float64:
		v := int64(n)
		return &v, true
	default:
		return nil, false
	}
}

func recurseRealizeValue(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			r, err := toRealizeValue(val)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			r, err := toRealizeValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return raw, nil
	}
}

// asTagMap reports whether raw is a single-key map naming one of the
// recognized value-descriptor tags (item, interp, config).
func asTagMap(raw interface{}) (map[string]interface{}, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok || len(m) != 1 {
		return nil, false
	}
	switch {
	case has(m, "item"), has(m, "interp"), has(m, "config"):
		return m, true
	default:
		return nil, false
	}
}

func has(m map[string]interface{}, key string) bool {
	_, ok := m[key]
	return ok
}
