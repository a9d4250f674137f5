package descriptor

import (
	"fmt"
	"time"
)

// Get returns the realized form of params[key]: a raw literal, or a
// realize descriptor if the YAML node used an item/interp/config tag.
func (p Params) Get(key string) (interface{}, bool, error) {
	raw, ok := p[key]
	if !ok {
		return nil, false, nil
	}
	v, err := toRealizeValue(raw)
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

// String returns params[key] as a plain string, erroring if present
// but not a string literal (tagged values are not valid here).
func (p Params) String(key string) (string, bool, error) {
	raw, ok := p[key]
	if !ok {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("descriptor: %q must be a string, got %T", key, raw)
	}
	return s, true, nil
}

// Int returns params[key] as an int.
func (p Params) Int(key string) (int, bool, error) {
	raw, ok := p[key]
	if !ok {
		return 0, false, nil
	}
	switch n := raw.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		return int(n), true, nil
	default:
		return 0, true, fmt.Errorf("descriptor: %q must be an integer, got %T", key, raw)
	}
}

// Duration returns params[key] parsed as a time.Duration string (e.g.
// "5s", "250ms").
func (p Params) Duration(key string) (time.Duration, bool, error) {
	s, ok, err := p.String(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, true, fmt.Errorf("descriptor: %q: %w", key, err)
	}
	return d, true, nil
}

// IntSlice returns params[key] as a []int.
func (p Params) IntSlice(key string) ([]int, bool, error) {
	raw, ok := p[key]
	if !ok {
		return nil, false, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, true, fmt.Errorf("descriptor: %q must be a list of integers, got %T", key, raw)
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		switch n := it.(type) {
		case int:
			out = append(out, n)
		case int64:
			out = append(out, int(n))
		case float64:
			out = append(out, int(n))
		default:
			return nil, true, fmt.Errorf("descriptor: %q contains a non-integer element %T", key, it)
		}
	}
	return out, true, nil
}

// List returns params[key] realized element-by-element, for building
// an ExternalProcess's Args.
func (p Params) List(key string) ([]interface{}, bool, error) {
	raw, ok := p[key]
	if !ok {
		return nil, false, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, true, fmt.Errorf("descriptor: %q must be a list, got %T", key, raw)
	}
	out := make([]interface{}, len(items))
	for i, it := range items {
		v, err := toRealizeValue(it)
		if err != nil {
			return nil, true, err
		}
		out[i] = v
	}
	return out, true, nil
}

// Map returns the nested params for a sub-task node (e.g. an "inner"
// key for limit_concurrent/conditional_task).
func (p Params) Map(key string) (Params, bool, error) {
	raw, ok := p[key]
	if !ok {
		return nil, false, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, true, fmt.Errorf("descriptor: %q must be a mapping, got %T", key, raw)
	}
	return Params(m), true, nil
}

// MaxTriesPtr returns params["max_tries"] as a *int, nil when absent.
func (p Params) MaxTriesPtr() (*int, error) {
	n, ok, err := p.Int("max_tries")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &n, nil
}
