package template

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultFilters returns the built-in filters by name.
func DefaultFilters() map[string]Filter {
	return map[string]Filter{
		"default":    FilterFunc(defaultFilter),
		"store":      FilterFunc(storeFilter),
		"insert":     FilterFunc(insertFilter),
		"upper":      FilterFunc(upperFilter),
		"lower":      FilterFunc(lowerFilter),
		"capitalize": FilterFunc(capitalizeFilter),
		"escape":     FilterFunc(escapeFilter),
		"url":        FilterFunc(urlFilter),
		"trim":       FilterFunc(trimFilter),
		"truncate":   FilterFunc(truncateFilter),
		"replace":    FilterFunc(replaceFilter),
		"join":       FilterFunc(joinFilter),
		"size":       FilterFunc(sizeFilter),
		"date":       FilterFunc(dateFilter),
		"yaml":       FilterFunc(yamlFilter),
	}
}

// defaultFilter substitutes value= when the input is nil or an empty string.
func defaultFilter(_ *Context, v any, p Params) (any, error) {
	if isNil(v) {
		return p["value"], nil
	}
	if s, ok := v.(string); ok && s == "" {
		return p["value"], nil
	}
	return v, nil
}

// storeFilter saves the running value under key= and passes it on.
func storeFilter(ctx *Context, v any, p Params) (any, error) {
	key := p.String("key", "")
	if key == "" {
		return nil, fmt.Errorf("store requires key=")
	}
	ctx.Set(key, v)
	return v, nil
}

// insertFilter replaces {name} placeholders in the running value with the
// params of the same name.
// Replacement is a single pass, so inserted text is never expanded again.
func insertFilter(_ *Context, v any, p Params) (any, error) {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", toString(p[key]))
	}
	return strings.NewReplacer(pairs...).Replace(toString(v)), nil
}

func upperFilter(_ *Context, v any, p Params) (any, error) {
	if v == nil {
		return nil, nil
	}
	return cases.Upper(filterLanguage(p)).String(toString(v)), nil
}

func lowerFilter(_ *Context, v any, p Params) (any, error) {
	if v == nil {
		return nil, nil
	}
	return cases.Lower(filterLanguage(p)).String(toString(v)), nil
}

func capitalizeFilter(_ *Context, v any, p Params) (any, error) {
	if v == nil {
		return nil, nil
	}
	return cases.Title(filterLanguage(p)).String(toString(v)), nil
}

func filterLanguage(p Params) language.Tag {
	tag, err := language.Parse(p.String("lang", "und"))
	if err != nil {
		return language.Und
	}
	return tag
}

func escapeFilter(_ *Context, v any, _ Params) (any, error) {
	if v == nil {
		return nil, nil
	}
	return html.EscapeString(toString(v)), nil
}

func urlFilter(_ *Context, v any, p Params) (any, error) {
	if v == nil {
		return nil, nil
	}
	if p.String("mode", "query") == "path" {
		return url.PathEscape(toString(v)), nil
	}
	return url.QueryEscape(toString(v)), nil
}

func trimFilter(_ *Context, v any, p Params) (any, error) {
	if v == nil {
		return nil, nil
	}
	if cut := p.String("chars", ""); cut != "" {
		return strings.Trim(toString(v), cut), nil
	}
	return strings.TrimSpace(toString(v)), nil
}

// truncateFilter shortens the value to length= runes, appending suffix=
// (default "...") when it cuts.
func truncateFilter(_ *Context, v any, p Params) (any, error) {
	if v == nil {
		return nil, nil
	}

	s := toString(v)
	limit := p.Int("length", 80)
	if limit < 0 {
		return nil, fmt.Errorf("truncate length must not be negative, got %d", limit)
	}
	if utf8.RuneCountInString(s) <= limit {
		return s, nil
	}

	runes := []rune(s)
	return string(runes[:limit]) + p.String("suffix", "..."), nil
}

func replaceFilter(_ *Context, v any, p Params) (any, error) {
	if v == nil {
		return nil, nil
	}
	old := p.String("old", "")
	if old == "" {
		return nil, fmt.Errorf("replace requires old=")
	}
	return strings.ReplaceAll(toString(v), old, p.String("new", "")), nil
}

func joinFilter(_ *Context, v any, p Params) (any, error) {
	items, ok := iterate(v)
	if !ok {
		return v, nil
	}

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = toString(item)
	}
	return strings.Join(parts, p.String("sep", ", ")), nil
}

func sizeFilter(_ *Context, v any, _ Params) (any, error) {
	if isNil(v) {
		return 0, nil
	}
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), nil
	}
	if items, ok := iterate(v); ok {
		return len(items), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Chan {
		return rv.Len(), nil
	}
	return nil, fmt.Errorf("size of %T is undefined", v)
}

// dateFilter formats a time.Time with the Go layout in format=.
func dateFilter(_ *Context, v any, p Params) (any, error) {
	layout := p.String("format", time.RFC3339)
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.Format(layout), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.Format(layout), nil
	case string:
		parsed, err := time.Parse(p.String("input", time.RFC3339), t)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", t, err)
		}
		return parsed.Format(layout), nil
	}
	return nil, fmt.Errorf("date cannot format %T", v)
}

func yamlFilter(_ *Context, v any, _ Params) (any, error) {
	if v == nil {
		return nil, nil
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
