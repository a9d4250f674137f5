package realize

import (
	"fmt"
	"strings"
)

// ItemInterpolation resolves to Template with every "%(name)s" token
// replaced by item.properties[name], matching the percent-style
// templates used to declare pipeline descriptions.
type ItemInterpolation struct {
	Template string
}

func (v ItemInterpolation) realizeValue(ctx *Context) (interface{}, error) {
	if ctx == nil || ctx.Item == nil {
		return nil, fmt.Errorf("realize: ItemInterpolation used without an item in scope")
	}
	return interpolate(v.Template, ctx.Item.Properties())
}

// interpolate expands every "%(name)s" occurrence in template using
// props. A reference to a missing property is an error rather than a
// silent empty substitution, so a typo in a pipeline descriptor fails
// loudly instead of producing a malformed argv or URL.
func interpolate(template string, props map[string]interface{}) (string, error) {
	var out strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "%(")
		if start == -1 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.IndexByte(rest, ')')
		if end == -1 {
			return "", fmt.Errorf("realize: unterminated %%( in template %q", template)
		}
		name := rest[:end]
		rest = rest[end+1:]

		if !strings.HasPrefix(rest, "s") {
			return "", fmt.Errorf("realize: template %q uses unsupported conversion for %%(%s)", template, name)
		}
		rest = rest[1:]

		val, ok := props[name]
		if !ok {
			return "", fmt.Errorf("realize: template references unknown property %q", name)
		}
		out.WriteString(fmt.Sprint(val))
	}
	return out.String(), nil
}
