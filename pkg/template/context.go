package template

import (
	"reflect"
	"strings"
	"sync"
)

// Context is the hierarchical scope a template renders against. It supplies
// values, accessors, filters, plugins and template lookups.
//
// Lookups consult the merged contexts first (each with its own merged and
// parent chain), then the context itself, then its parent chain. The first
// non-nil match wins.
//
// A Context is not safe for concurrent mutation. The registries are guarded
// so registration may race with rendering, but a single render pass must own
// the contexts it writes to.
type Context struct {
	mu sync.RWMutex

	objects   map[string]any
	accessors accessorTable
	filters   map[string]Filter
	plugins   map[string]Plugin
	providers []Provider

	parent    *Context
	merged    []*Context
	temporary bool
}

// NewContext creates an empty root context.
func NewContext() *Context {
	return &Context{}
}

// Child creates a context whose lookups fall back to c.
func (c *Context) Child() *Context {
	return &Context{parent: c}
}

// Temporary creates a child context whose writes also reach c.
func (c *Context) Temporary() *Context {
	return &Context{parent: c, temporary: true}
}

// IsTemporary reports whether writes propagate to the parent.
func (c *Context) IsTemporary() bool {
	return c.temporary
}

// Parent returns the parent context or nil.
func (c *Context) Parent() *Context {
	return c.parent
}

// Merge adds other as a sibling consulted before c's own values. The merged
// context is shared, not copied.
func (c *Context) Merge(other *Context) *Context {
	if other == nil || other == c {
		return c
	}

	c.mu.Lock()
	c.merged = append(c.merged, other)
	c.mu.Unlock()

	return c
}

// Set stores value under name. On a temporary context the value is written
// through to the parent as well.
func (c *Context) Set(name string, value any) {
	c.SetLocal(name, value)
	if c.temporary && c.parent != nil {
		c.parent.Set(name, value)
	}
}

// SetLocal stores value under name in this context only, shadowing any
// value further up the chain.
func (c *Context) SetLocal(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.objects == nil {
		c.objects = make(map[string]any)
	}
	c.objects[name] = value
}

// Delete removes name from this context, and from the parent when temporary.
func (c *Context) Delete(name string) {
	c.mu.Lock()
	delete(c.objects, name)
	c.mu.Unlock()

	if c.temporary && c.parent != nil {
		c.parent.Delete(name)
	}
}

// Get resolves a dotted path such as "user.address.city".
//
// A nil value anywhere along the path yields (nil, nil). A non-nil
// intermediate value whose type has no registered accessor yields a
// resolution error naming that type.
func (c *Context) Get(path string) (any, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, nil
	}

	current := c.object(segments[0])
	for _, member := range segments[1:] {
		if isNil(current) {
			return nil, nil
		}

		accessor := c.Accessor(reflect.TypeOf(current))
		if accessor == nil {
			return nil, newResolutionError(typeName(current), path)
		}

		value, err := accessor.Access(c, current, member)
		if err != nil {
			return nil, &Error{
				Kind:    KindResolution,
				Code:    CodeAccessFailed,
				Message: "accessing member " + member + " of",
				Name:    path,
				Cause:   err,
			}
		}
		current = value
	}

	if isNil(current) {
		return nil, nil
	}

	return current, nil
}

// Has reports whether path resolves to a non-nil value. Resolution errors
// count as absent.
func (c *Context) Has(path string) bool {
	v, err := c.Get(path)
	return err == nil && v != nil
}

func (c *Context) object(name string) any {
	var found any
	c.walk(func(ctx *Context) bool {
		ctx.mu.RLock()
		v, ok := ctx.objects[name]
		ctx.mu.RUnlock()

		if ok && !isNil(v) {
			found = v
			return true
		}
		return false
	})

	return found
}

// RegisterFilter makes f available under name in this context and its
// descendants.
func (c *Context) RegisterFilter(name string, f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filters == nil {
		c.filters = make(map[string]Filter)
	}
	c.filters[name] = f
}

// RegisterPlugin makes p available under name.
func (c *Context) RegisterPlugin(name string, p Plugin) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.plugins == nil {
		c.plugins = make(map[string]Plugin)
	}
	c.plugins[name] = p
}

// RegisterAccessor registers a for values of type typ. Interface types match
// every type implementing them.
func (c *Context) RegisterAccessor(typ reflect.Type, a Accessor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessors.register(typ, a)
}

// RegisterKindAccessor registers a for every type of the given kind that has
// no more specific registration.
func (c *Context) RegisterKindAccessor(kind reflect.Kind, a Accessor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessors.registerKind(kind, a)
}

// AddProvider appends a template provider to this context.
func (c *Context) AddProvider(p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.providers = append(c.providers, p)
}

// Providers returns the template providers registered on this context.
func (c *Context) Providers() []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]Provider(nil), c.providers...)
}

// Filter finds the filter registered under name along the chain.
func (c *Context) Filter(name string) Filter {
	var found Filter
	c.walk(func(ctx *Context) bool {
		ctx.mu.RLock()
		f := ctx.filters[name]
		ctx.mu.RUnlock()

		found = f
		return f != nil
	})

	return found
}

// Plugin finds the plugin registered under name along the chain.
func (c *Context) Plugin(name string) Plugin {
	var found Plugin
	c.walk(func(ctx *Context) bool {
		ctx.mu.RLock()
		p := ctx.plugins[name]
		ctx.mu.RUnlock()

		found = p
		return p != nil
	})

	return found
}

// Template asks every provider along the chain for name and returns the
// first template found, or nil.
func (c *Context) Template(name string) *Template {
	var found *Template
	c.walk(func(ctx *Context) bool {
		ctx.mu.RLock()
		providers := append([]Provider(nil), ctx.providers...)
		ctx.mu.RUnlock()

		for _, p := range providers {
			if t := p.Template(c, name); t != nil {
				found = t
				return true
			}
		}
		return false
	})

	return found
}

// Accessor finds the accessor for values of typ. The search tries, in order:
// an exact registration, registered interfaces typ implements, the same two
// steps for a pointer's element type, and finally the kind registration.
// Each step consults the whole chain before moving to the next.
func (c *Context) Accessor(typ reflect.Type) Accessor {
	if typ == nil {
		return nil
	}

	for t := typ; t != nil; t = pointerElem(t) {
		if a := c.findAccessor(func(tab *accessorTable) Accessor { return tab.exact(t) }); a != nil {
			return a
		}
		if a := c.findAccessor(func(tab *accessorTable) Accessor { return tab.implemented(t) }); a != nil {
			return a
		}
	}

	for t := typ; t != nil; t = pointerElem(t) {
		if a := c.findAccessor(func(tab *accessorTable) Accessor { return tab.kind(t.Kind()) }); a != nil {
			return a
		}
	}

	return nil
}

func (c *Context) findAccessor(probe func(*accessorTable) Accessor) Accessor {
	var found Accessor
	c.walk(func(ctx *Context) bool {
		ctx.mu.RLock()
		a := probe(&ctx.accessors)
		ctx.mu.RUnlock()

		found = a
		return a != nil
	})

	return found
}

func pointerElem(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return nil
}

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	return strings.Split(path, ".")
}

func typeName(v any) string {
	return reflect.TypeOf(v).String()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}

	return false
}
