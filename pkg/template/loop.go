package template

import (
	"fmt"
	"io"
	"iter"
	"reflect"
	"strings"
)

// DefaultLoopName is the name the loop status is bound to when a foreach
// tag does not choose one.
const DefaultLoopName = "loop"

// DefaultItemName is the item name used by <%foreach items>.
const DefaultItemName = "item"

// Iterable is implemented by host collections that are not slices or maps.
type Iterable interface {
	Items() []any
}

// LoopStatus describes the current iteration of a loop.
type LoopStatus struct {
	Size  int
	Count int
	First bool
	Last  bool
	Odd   bool
	Even  bool
}

func newLoopStatus(size, count int) *LoopStatus {
	return &LoopStatus{
		Size:  size,
		Count: count,
		First: count == 0,
		Last:  count == size-1,
		Odd:   count%2 == 1,
		Even:  count%2 == 0,
	}
}

// GetMember implements Gettable.
func (s *LoopStatus) GetMember(name string) (any, bool) {
	switch name {
	case "size":
		return s.Size, true
	case "count", "index":
		return s.Count, true
	case "first":
		return s.First, true
	case "last":
		return s.Last, true
	case "odd":
		return s.Odd, true
	case "even":
		return s.Even, true
	}
	return nil, false
}

// LoopPart renders Body once per element of the referenced collection.
type LoopPart struct {
	Pos        Position
	Collection string
	Item       string
	Name       string
	Body       Part
}

func (p *LoopPart) Position() Position { return p.Pos }

func (p *LoopPart) Render(ctx *Context, w io.Writer) error {
	v, err := ctx.Get(p.Collection)
	if err != nil {
		return locate(err, p.Pos, CodeAccessFailed, "resolving "+p.Collection)
	}

	items, ok := iterate(v)
	if !ok || len(items) == 0 {
		return nil
	}

	for i, item := range items {
		scope := ctx.Temporary()
		scope.SetLocal(p.Item, item)
		scope.SetLocal(p.Name, newLoopStatus(len(items), i))

		if err := p.Body.Render(scope, w); err != nil {
			return err
		}
	}
	return nil
}

func (p *LoopPart) String() string {
	return fmt.Sprintf("[foreach %s as %s (%s)\n\t%s]", p.Collection, p.Item, p.Name,
		strings.ReplaceAll(p.Body.String(), "\n", "\n\t"))
}

// EmptyLoopPart renders Body only when the referenced collection is absent
// or empty. Paired with a LoopPart over the same collection exactly one of
// the two renders.
type EmptyLoopPart struct {
	Pos        Position
	Collection string
	Body       Part
}

func (p *EmptyLoopPart) Position() Position { return p.Pos }

func (p *EmptyLoopPart) Render(ctx *Context, w io.Writer) error {
	v, err := ctx.Get(p.Collection)
	if err != nil {
		return locate(err, p.Pos, CodeAccessFailed, "resolving "+p.Collection)
	}

	if items, ok := iterate(v); ok && len(items) > 0 {
		return nil
	}
	return p.Body.Render(ctx, w)
}

func (p *EmptyLoopPart) String() string {
	return fmt.Sprintf("[foreachelse %s\n\t%s]", p.Collection,
		strings.ReplaceAll(p.Body.String(), "\n", "\n\t"))
}

// iterate returns the elements of a collection value in iteration order.
// Maps yield Entry values ordered by key. The boolean is false when v is not
// a collection.
func iterate(v any) ([]any, bool) {
	switch c := v.(type) {
	case nil:
		return nil, false
	case []any:
		return c, true
	case Iterable:
		return c.Items(), true
	case iter.Seq[any]:
		return collect(c), true
	case func(func(any) bool):
		return collect(c), true
	case string:
		return nil, false
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	case reflect.Map:
		return entries(rv), true
	}
	return nil, false
}

func collect(seq iter.Seq[any]) []any {
	var out []any
	for item := range seq {
		out = append(out, item)
	}
	return out
}
