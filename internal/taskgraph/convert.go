package taskgraph

import (
	"fmt"
	"os"
)

// toStringSlice converts a realized []interface{} (or a value already
// typed []string) into argv, stringifying non-string scalars so
// ItemValue(key) results holding numbers work directly in argv.
func toStringSlice(v interface{}) ([]string, error) {
	switch raw := v.(type) {
	case []string:
		return raw, nil
	case []interface{}:
		out := make([]string, len(raw))
		for i, el := range raw {
			s, err := toArgString(el)
			if err != nil {
				return nil, fmt.Errorf("argv[%d]: %w", i, err)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an argv list, got %T", v)
	}
}

func toArgString(v interface{}) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// toEnvPairs converts a realized map[string]interface{} into "K=V" pairs.
func toEnvPairs(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an env map, got %T", v)
	}
	out := make([]string, 0, len(m))
	for k, val := range m {
		s, err := toArgString(val)
		if err != nil {
			return nil, fmt.Errorf("env[%s]: %w", k, err)
		}
		out = append(out, k+"="+s)
	}
	return out, nil
}

func baseEnv() []string {
	return os.Environ()
}
