package realize

import (
	"fmt"
	"regexp"
)

// ConfigValue resolves to a named configuration slot, falling back to
// Default when the slot is unset. Pattern validates string values;
// Min/Max validate integer values. Leave the relevant field nil/empty
// to skip that check.
type ConfigValue struct {
	Name    string
	Default interface{}
	Pattern string
	Min     *int64
	Max     *int64
}

func (v ConfigValue) realizeValue(ctx *Context) (interface{}, error) {
	val := v.Default
	if ctx != nil && ctx.Config != nil {
		if found, ok := ctx.Config.Lookup(v.Name); ok {
			val = found
		}
	}
	if err := v.validate(val); err != nil {
		return nil, fmt.Errorf("realize: ConfigValue(%q): %w", v.Name, err)
	}
	return val, nil
}

func (v ConfigValue) validate(val interface{}) error {
	if v.Pattern != "" {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected a string matching %q, got %T", v.Pattern, val)
		}
		matched, err := regexp.MatchString(v.Pattern, s)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", v.Pattern, err)
		}
		if !matched {
			return fmt.Errorf("value %q does not match pattern %q", s, v.Pattern)
		}
	}

	if v.Min != nil || v.Max != nil {
		n, ok := toInt64(val)
		if !ok {
			return fmt.Errorf("expected an integer, got %T", val)
		}
		if v.Min != nil && n < *v.Min {
			return fmt.Errorf("value %d is below the minimum %d", n, *v.Min)
		}
		if v.Max != nil && n > *v.Max {
			return fmt.Errorf("value %d exceeds the maximum %d", n, *v.Max)
		}
	}

	return nil
}

func toInt64(val interface{}) (int64, bool) {
	switch n := val.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
