package template

import (
	"fmt"
)

// DefaultPlugins returns the built-in plugins by name.
func DefaultPlugins() map[string]Plugin {
	return map[string]Plugin{
		"set":      PluginFunc(setPlugin),
		"delete":   PluginFunc(deletePlugin),
		"paginate": PluginFunc(paginatePlugin),
	}
}

// setPlugin handles <%set name=key value=...>.
func setPlugin(ctx *Context, p Params) error {
	name := p.String("name", "")
	if name == "" {
		return fmt.Errorf("set requires name=")
	}
	ctx.Set(name, p["value"])
	return nil
}

// deletePlugin handles <%delete key=name>.
func deletePlugin(ctx *Context, p Params) error {
	key := p.String("key", "")
	if key == "" {
		return fmt.Errorf("delete requires key=")
	}
	ctx.Delete(key)
	return nil
}

// Page is the window of a collection selected by the paginate plugin.
type Page struct {
	Number  int
	Size    int
	Total   int
	Pages   int
	Items   []any
	HasPrev bool
	HasNext bool
	Prev    int
	Next    int
}

// GetMember implements Gettable.
func (p *Page) GetMember(name string) (any, bool) {
	switch name {
	case "number":
		return p.Number, true
	case "size":
		return p.Size, true
	case "total":
		return p.Total, true
	case "pages":
		return p.Pages, true
	case "items":
		return p.Items, true
	case "hasPrev":
		return p.HasPrev, true
	case "hasNext":
		return p.HasNext, true
	case "prev":
		return p.Prev, true
	case "next":
		return p.Next, true
	}
	return nil, false
}

// Paginate selects page number (1-based, clamped to the valid range) of
// size items.
func Paginate(items []any, size, number int) *Page {
	if size <= 0 {
		size = 10
	}

	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}

	start := (number - 1) * size
	end := min(start+size, total)

	return &Page{
		Number:  number,
		Size:    size,
		Total:   total,
		Pages:   pages,
		Items:   items[start:end],
		HasPrev: number > 1,
		HasNext: number < pages,
		Prev:    max(number-1, 1),
		Next:    min(number+1, pages),
	}
}

// paginatePlugin handles <%paginate items=name size=10 page as=pager>.
// items= names the collection; page may be a literal or a reference.
func paginatePlugin(ctx *Context, p Params) error {
	name := p.String("items", "")
	if name == "" {
		return fmt.Errorf("paginate requires items=")
	}

	v, err := ctx.Get(name)
	if err != nil {
		return err
	}

	items, ok := iterate(v)
	if v != nil && !ok {
		return fmt.Errorf("paginate: %s is not a collection (%T)", name, v)
	}

	ctx.Set(p.String("as", "pager"), Paginate(items, p.Int("size", 10), p.Int("page", 1)))
	return nil
}
