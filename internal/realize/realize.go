// Package realize resolves deferred value descriptors against an item
// snapshot. A pipeline is declared once with placeholders standing in
// for per-item values; realization decouples that declaration from
// execution and must stay deterministic and side-effect-free so that
// realizing the same descriptor twice (e.g. on an ExternalProcess retry)
// yields the same concrete value.
package realize

// ItemSnapshot is the read surface a descriptor needs from an item.
// Kept narrow (rather than depending on internal/item directly) so this
// package stays a leaf with no dependency on the item lifecycle state
// machine.
type ItemSnapshot interface {
	Property(key string) (interface{}, bool)
	Properties() map[string]interface{}
}

// ConfigLookup resolves a named configuration slot. The pipeline-scoped
// overlay loaded by internal/config implements this.
type ConfigLookup interface {
	Lookup(name string) (interface{}, bool)
}

// Context carries what a descriptor needs to resolve itself.
type Context struct {
	Item   ItemSnapshot
	Config ConfigLookup
}

// descriptor is implemented by every realization variant. Unexported so
// that only this package's variants (ItemValue, ItemInterpolation,
// ConfigValue) participate in realize's type switch.
type descriptor interface {
	realizeValue(ctx *Context) (interface{}, error)
}

// Realize resolves value against ctx. Mappings and slices are walked
// recursively, preserving keys and order; a descriptor is invoked
// against ctx; anything else passes through unchanged.
func Realize(value interface{}, ctx *Context) (interface{}, error) {
	switch v := value.(type) {
	case descriptor:
		return v.realizeValue(ctx)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			r, err := Realize(val, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			r, err := Realize(val, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return value, nil
	}
}
