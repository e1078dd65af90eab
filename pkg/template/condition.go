package template

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Condition decides whether a conditional block renders.
type Condition interface {
	Evaluate(ctx *Context) (bool, error)
	fmt.Stringer
}

// TruthyCondition holds when the referenced value is truthy.
type TruthyCondition struct {
	Path string
}

func (c TruthyCondition) Evaluate(ctx *Context) (bool, error) {
	v, err := ctx.Get(c.Path)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func (c TruthyCondition) String() string { return c.Path }

// NotCondition negates another condition.
type NotCondition struct {
	Cond Condition
}

func (c NotCondition) Evaluate(ctx *Context) (bool, error) {
	ok, err := c.Cond.Evaluate(ctx)
	return !ok, err
}

func (c NotCondition) String() string { return "!" + c.Cond.String() }

// AndCondition holds when every condition holds. Evaluation stops at the
// first false one.
type AndCondition []Condition

func (c AndCondition) Evaluate(ctx *Context) (bool, error) {
	for _, cond := range c {
		ok, err := cond.Evaluate(ctx)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c AndCondition) String() string { return joinConditions(c, " and ") }

// OrCondition holds when any condition holds.
type OrCondition []Condition

func (c OrCondition) Evaluate(ctx *Context) (bool, error) {
	for _, cond := range c {
		ok, err := cond.Evaluate(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (c OrCondition) String() string { return joinConditions(c, " or ") }

// EqualsCondition compares the string form of a reference to a literal.
type EqualsCondition struct {
	Path    string
	Literal string
}

func (c EqualsCondition) Evaluate(ctx *Context) (bool, error) {
	v, err := ctx.Get(c.Path)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	return toString(v) == c.Literal, nil
}

func (c EqualsCondition) String() string { return fmt.Sprintf("%s==%q", c.Path, c.Literal) }

// NullCondition holds when the reference resolves to nil.
type NullCondition struct {
	Path string
}

func (c NullCondition) Evaluate(ctx *Context) (bool, error) {
	v, err := ctx.Get(c.Path)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

func (c NullCondition) String() string { return c.Path + "==null" }

func joinConditions(conds []Condition, sep string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// truthy reports whether v counts as true in a condition: nil, false, zero
// numbers and empty strings, slices and maps are false.
func truthy(v any) bool {
	if isNil(v) {
		return false
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	}
	return true
}

// ConditionalPart renders Body when Cond holds and Else otherwise. An
// elseif chain is a ConditionalPart in the Else slot.
type ConditionalPart struct {
	Pos  Position
	Cond Condition
	Body Part
	Else Part
}

func (p *ConditionalPart) Position() Position { return p.Pos }

func (p *ConditionalPart) Render(ctx *Context, w io.Writer) error {
	ok, err := p.Cond.Evaluate(ctx)
	if err != nil {
		return locate(err, p.Pos, CodeAccessFailed, "evaluating condition "+p.Cond.String())
	}

	switch {
	case ok:
		return p.Body.Render(ctx, w)
	case p.Else != nil:
		return p.Else.Render(ctx, w)
	}
	return nil
}

func (p *ConditionalPart) String() string {
	s := fmt.Sprintf("[if %s\n\t%s", p.Cond, strings.ReplaceAll(p.Body.String(), "\n", "\n\t"))
	if p.Else != nil {
		s += fmt.Sprintf("\nelse\n\t%s", strings.ReplaceAll(p.Else.String(), "\n", "\n\t"))
	}
	return s + "]"
}
