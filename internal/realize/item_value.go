package realize

import "fmt"

// ItemValue resolves to item[key].
type ItemValue struct {
	Key string
}

func (v ItemValue) realizeValue(ctx *Context) (interface{}, error) {
	if ctx == nil || ctx.Item == nil {
		return nil, fmt.Errorf("realize: ItemValue(%q) used without an item in scope", v.Key)
	}
	val, ok := ctx.Item.Property(v.Key)
	if !ok {
		return nil, fmt.Errorf("realize: item has no property %q", v.Key)
	}
	return val, nil
}
