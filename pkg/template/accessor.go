package template

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Accessor resolves a named member of a value. A member that does not exist
// yields (nil, nil); errors are reserved for genuine failures.
type Accessor interface {
	Access(ctx *Context, obj any, member string) (any, error)
}

// AccessorFunc adapts a function to the Accessor interface.
type AccessorFunc func(ctx *Context, obj any, member string) (any, error)

// Access calls f.
func (f AccessorFunc) Access(ctx *Context, obj any, member string) (any, error) {
	return f(ctx, obj, member)
}

// Gettable is implemented by types that expose their members by name
// without reflection.
type Gettable interface {
	GetMember(name string) (any, bool)
}

var gettableType = reflect.TypeOf((*Gettable)(nil)).Elem()

type interfaceAccessor struct {
	iface    reflect.Type
	accessor Accessor
}

// accessorTable holds the accessor registrations of one context.
type accessorTable struct {
	types  map[reflect.Type]Accessor
	ifaces []interfaceAccessor
	kinds  map[reflect.Kind]Accessor
}

func (t *accessorTable) register(typ reflect.Type, a Accessor) {
	if typ.Kind() == reflect.Interface {
		for i, entry := range t.ifaces {
			if entry.iface == typ {
				t.ifaces[i].accessor = a
				return
			}
		}
		t.ifaces = append(t.ifaces, interfaceAccessor{iface: typ, accessor: a})
		return
	}

	if t.types == nil {
		t.types = make(map[reflect.Type]Accessor)
	}
	t.types[typ] = a
}

func (t *accessorTable) registerKind(kind reflect.Kind, a Accessor) {
	if t.kinds == nil {
		t.kinds = make(map[reflect.Kind]Accessor)
	}
	t.kinds[kind] = a
}

func (t *accessorTable) exact(typ reflect.Type) Accessor {
	return t.types[typ]
}

func (t *accessorTable) implemented(typ reflect.Type) Accessor {
	for _, entry := range t.ifaces {
		if typ.Implements(entry.iface) {
			return entry.accessor
		}
	}
	return nil
}

func (t *accessorTable) kind(kind reflect.Kind) Accessor {
	return t.kinds[kind]
}

// GettableAccessor resolves members of Gettable values.
type GettableAccessor struct{}

// Access implements Accessor.
func (GettableAccessor) Access(_ *Context, obj any, member string) (any, error) {
	g, ok := obj.(Gettable)
	if !ok {
		return nil, nil
	}

	v, _ := g.GetMember(member)
	return v, nil
}

// MapAccessor looks members up as map keys. When the key is absent, "size"
// and "isEmpty" describe the map itself.
type MapAccessor struct{}

// Access implements Accessor.
func (MapAccessor) Access(_ *Context, obj any, member string) (any, error) {
	if m, ok := obj.(map[string]any); ok {
		if v, found := m[member]; found {
			return v, nil
		}
		return mapMeta(len(m), member), nil
	}

	rv := reflect.Indirect(reflect.ValueOf(obj))
	if rv.Kind() != reflect.Map {
		return nil, nil
	}

	key, ok := convertKey(member, rv.Type().Key())
	if ok {
		if v := rv.MapIndex(key); v.IsValid() {
			return v.Interface(), nil
		}
	}

	return mapMeta(rv.Len(), member), nil
}

func mapMeta(size int, member string) any {
	switch member {
	case "size":
		return size
	case "isEmpty":
		return size == 0
	}
	return nil
}

func convertKey(member string, keyType reflect.Type) (reflect.Value, bool) {
	switch keyType.Kind() {
	case reflect.String:
		return reflect.ValueOf(member).Convert(keyType), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n).Convert(keyType), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n).Convert(keyType), true
	case reflect.Interface:
		if reflect.TypeOf(member).Implements(keyType) {
			return reflect.ValueOf(member), true
		}
	}
	return reflect.Value{}, false
}

// ListAccessor resolves numeric indexes and the size, length, isEmpty,
// first and last members of slices and arrays.
type ListAccessor struct{}

// Access implements Accessor.
func (ListAccessor) Access(_ *Context, obj any, member string) (any, error) {
	rv := reflect.Indirect(reflect.ValueOf(obj))
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, nil
	}

	n := rv.Len()
	switch member {
	case "size", "length":
		return n, nil
	case "isEmpty":
		return n == 0, nil
	case "first":
		if n == 0 {
			return nil, nil
		}
		return rv.Index(0).Interface(), nil
	case "last":
		if n == 0 {
			return nil, nil
		}
		return rv.Index(n - 1).Interface(), nil
	}

	idx, err := strconv.Atoi(member)
	if err != nil || idx < 0 || idx >= n {
		return nil, nil
	}

	return rv.Index(idx).Interface(), nil
}

// ReflectionAccessor resolves a member "name" by trying the methods
// GetName, IsName and Name, then the exported field Name.
type ReflectionAccessor struct{}

// Access implements Accessor.
func (ReflectionAccessor) Access(_ *Context, obj any, member string) (any, error) {
	exported := exportName(member)
	if exported == "" {
		return nil, nil
	}

	rv := reflect.ValueOf(obj)
	for _, name := range []string{"Get" + exported, "Is" + exported, exported} {
		if v, ok, err := callGetter(rv, name); ok || err != nil {
			return v, err
		}
	}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, nil
	}

	field, ok := rv.Type().FieldByName(exported)
	if !ok || !field.IsExported() {
		return nil, nil
	}

	fv, err := rv.FieldByIndexErr(field.Index)
	if err != nil {
		return nil, nil
	}

	return fv.Interface(), nil
}

// callGetter invokes a niladic method returning a value, or a value and an
// error. The second result reports whether such a method exists.
func callGetter(rv reflect.Value, name string) (any, bool, error) {
	m := rv.MethodByName(name)
	if !m.IsValid() && rv.Kind() != reflect.Pointer && rv.CanAddr() {
		m = rv.Addr().MethodByName(name)
	}
	if !m.IsValid() {
		return nil, false, nil
	}

	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() == 0 || mt.NumOut() > 2 {
		return nil, false, nil
	}
	if mt.NumOut() == 2 && !mt.Out(1).Implements(errorType) {
		return nil, false, nil
	}

	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, true, fmt.Errorf("%s(): %w", name, out[1].Interface().(error))
	}

	return out[0].Interface(), true, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func exportName(member string) string {
	r, size := utf8.DecodeRuneInString(member)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return ""
	}

	return string(unicode.ToUpper(r)) + member[size:]
}

// Entry is the item type of a loop over a map.
type Entry struct {
	Key   any
	Value any
}

// GetMember implements Gettable.
func (e Entry) GetMember(name string) (any, bool) {
	switch name {
	case "key":
		return e.Key, true
	case "value":
		return e.Value, true
	}
	return nil, false
}

// String renders the entry as key=value.
func (e Entry) String() string {
	return fmt.Sprintf("%v=%v", e.Key, e.Value)
}

// entries returns the entries of a map value, numeric keys in numeric order
// and everything else by the string form of the key. NaN keys sort first.
func entries(rv reflect.Value) []any {
	type kv struct{ key, value reflect.Value }

	pairs := make([]kv, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, kv{key: iter.Key(), value: iter.Value()})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return compareKeys(pairs[i].key, pairs[j].key) < 0
	})

	out := make([]any, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Entry{Key: p.key.Interface(), Value: p.value.Interface()})
	}
	return out
}

func compareKeys(a, b reflect.Value) int {
	if a.CanInt() && b.CanInt() {
		return cmpOrdered(a.Int(), b.Int())
	}
	if a.CanUint() && b.CanUint() {
		return cmpOrdered(a.Uint(), b.Uint())
	}
	if a.CanFloat() && b.CanFloat() {
		return cmpFloat(a.Float(), b.Float())
	}
	return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}

func cmpFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	}
	return cmpOrdered(a, b)
}

func cmpOrdered[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// registerDefaultAccessors installs the built-in accessors on ctx.
func registerDefaultAccessors(ctx *Context) {
	ctx.RegisterAccessor(gettableType, GettableAccessor{})
	ctx.RegisterKindAccessor(reflect.Map, MapAccessor{})
	ctx.RegisterKindAccessor(reflect.Slice, ListAccessor{})
	ctx.RegisterKindAccessor(reflect.Array, ListAccessor{})
	ctx.RegisterKindAccessor(reflect.Struct, ReflectionAccessor{})
}
