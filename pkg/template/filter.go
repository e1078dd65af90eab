package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter transforms a value inside a pipeline such as
// <% name|filter key=value>.
type Filter interface {
	Filter(ctx *Context, value any, params Params) (any, error)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(ctx *Context, value any, params Params) (any, error)

// Filter calls f.
func (f FilterFunc) Filter(ctx *Context, value any, params Params) (any, error) {
	return f(ctx, value, params)
}

// Plugin is a statement tag with side effects on the context, such as
// <%paginate items=products size=10>.
type Plugin interface {
	Invoke(ctx *Context, params Params) error
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(ctx *Context, params Params) error

// Invoke calls f.
func (f PluginFunc) Invoke(ctx *Context, params Params) error {
	return f(ctx, params)
}

// Params holds the resolved parameters of one filter stage or plugin call.
// Literal parameters are strings; reference parameters hold the value they
// resolved to.
type Params map[string]any

// Has reports whether key was supplied.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the string form of key, or def when absent or nil.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	return toString(v)
}

// Int returns key as an integer, or def when absent or not numeric.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}

	if n, ok := toInt(v); ok {
		return n
	}
	return def
}

// Bool returns key as a boolean, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return def
		}
		return parsed
	}
	return truthy(v)
}

// Param is one parsed key=value pair. A reference parameter is resolved
// against the context at render time.
type Param struct {
	Key   string
	Value string
	Ref   bool
}

func (p Param) String() string {
	if p.Ref {
		return p.Key
	}
	return fmt.Sprintf("%s=%q", p.Key, p.Value)
}

// resolveParams evaluates params against ctx.
func resolveParams(ctx *Context, params []Param) (Params, error) {
	out := make(Params, len(params))
	for _, p := range params {
		if !p.Ref {
			out[p.Key] = p.Value
			continue
		}

		v, err := ctx.Get(p.Value)
		if err != nil {
			return nil, err
		}
		out[p.Key] = v
	}
	return out, nil
}

// FilterStage is one step of a filter pipeline.
type FilterStage struct {
	Name   string
	Params []Param
	Pos    Position
}

// apply runs the stage. Failures are reported at tag, the position of the
// enclosing reference.
func (s FilterStage) apply(ctx *Context, value any, tag Position) (any, error) {
	f := ctx.Filter(s.Name)
	if f == nil {
		return nil, newMissingError(CodeFilterNotFound, "filter", s.Name, tag)
	}

	params, err := resolveParams(ctx, s.Params)
	if err != nil {
		return nil, locate(err, tag, CodeFilterFailed, "resolving filter parameters")
	}

	out, err := f.Filter(ctx, value, params)
	if err != nil {
		return nil, locate(err, tag, CodeFilterFailed, "filter "+s.Name+" failed")
	}
	return out, nil
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	case error:
		return s.Error()
	}
	return fmt.Sprint(v)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		return parsed, err == nil
	}
	return 0, false
}
