package template

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Position is a 1-based line and column in template source.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Renderer is implemented by values that render themselves instead of being
// printed.
type Renderer interface {
	Render(ctx *Context, w io.Writer) error
}

// Part is a node of a parsed template. Parts are never modified after
// parsing and may be rendered concurrently against distinct contexts.
type Part interface {
	Renderer
	Position() Position
	fmt.Stringer
}

// TextPart emits literal text.
type TextPart struct {
	Pos  Position
	Text string
}

func (p *TextPart) Position() Position { return p.Pos }

func (p *TextPart) Render(_ *Context, w io.Writer) error {
	if _, err := io.WriteString(w, p.Text); err != nil {
		return newRenderError(CodeWriteFailed, p.Pos, "writing text", err)
	}
	return nil
}

func (p *TextPart) String() string {
	return fmt.Sprintf("[text %q]", p.Text)
}

// DataPart emits the value of a dotted reference.
type DataPart struct {
	Pos  Position
	Path string
}

func (p *DataPart) Position() Position { return p.Pos }

func (p *DataPart) Render(ctx *Context, w io.Writer) error {
	v, err := ctx.Get(p.Path)
	if err != nil {
		return locate(err, p.Pos, CodeAccessFailed, "resolving "+p.Path)
	}
	return writeValue(ctx, w, v, p.Pos)
}

func (p *DataPart) String() string {
	return fmt.Sprintf("[data %s]", p.Path)
}

// FilteredPart emits a reference passed through a filter pipeline.
type FilteredPart struct {
	Pos    Position
	Path   string
	Stages []FilterStage
}

func (p *FilteredPart) Position() Position { return p.Pos }

func (p *FilteredPart) Render(ctx *Context, w io.Writer) error {
	v, err := p.Evaluate(ctx)
	if err != nil {
		return err
	}
	return writeValue(ctx, w, v, p.Pos)
}

// Evaluate resolves the reference and runs every stage in order.
func (p *FilteredPart) Evaluate(ctx *Context) (any, error) {
	v, err := ctx.Get(p.Path)
	if err != nil {
		return nil, locate(err, p.Pos, CodeAccessFailed, "resolving "+p.Path)
	}

	for _, stage := range p.Stages {
		v, err = stage.apply(ctx, v, p.Pos)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (p *FilteredPart) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[data %s", p.Path)
	for _, s := range p.Stages {
		fmt.Fprintf(&b, " |%s", s.Name)
		for _, param := range s.Params {
			fmt.Fprintf(&b, " %s", param)
		}
	}
	b.WriteString("]")
	return b.String()
}

// ContainerPart renders its children in order.
type ContainerPart struct {
	Pos      Position
	Children []Part
}

func (p *ContainerPart) Position() Position { return p.Pos }

func (p *ContainerPart) Render(ctx *Context, w io.Writer) error {
	for _, child := range p.Children {
		if err := child.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func (p *ContainerPart) String() string {
	var b strings.Builder
	b.WriteString("[list")
	for _, child := range p.Children {
		fmt.Fprintf(&b, "\n\t%s", strings.ReplaceAll(child.String(), "\n", "\n\t"))
	}
	b.WriteString("]")
	return b.String()
}

func (p *ContainerPart) add(part Part) {
	p.Children = append(p.Children, part)
}

// PluginPart invokes a registered plugin.
type PluginPart struct {
	Pos    Position
	Name   string
	Params []Param
}

func (p *PluginPart) Position() Position { return p.Pos }

func (p *PluginPart) Render(ctx *Context, _ io.Writer) error {
	plugin := ctx.Plugin(p.Name)
	if plugin == nil {
		return newMissingError(CodePluginNotFound, "plugin", p.Name, p.Pos)
	}

	params, err := resolveParams(ctx, p.Params)
	if err != nil {
		return locate(err, p.Pos, CodePluginFailed, "resolving plugin parameters")
	}

	if err := plugin.Invoke(ctx, params); err != nil {
		return locate(err, p.Pos, CodePluginFailed, "plugin "+p.Name+" failed")
	}
	return nil
}

func (p *PluginPart) String() string {
	return fmt.Sprintf("[plugin %s %v]", p.Name, p.Params)
}

// IncludePart renders another template, looked up through the context's
// providers, against a child context holding its parameters.
type IncludePart struct {
	Pos    Position
	Name   string
	Params []Param
}

func (p *IncludePart) Position() Position { return p.Pos }

func (p *IncludePart) Render(ctx *Context, w io.Writer) error {
	tmpl := ctx.Template(p.Name)
	if tmpl == nil {
		return newMissingError(CodeTemplateNotFound, "template", p.Name, p.Pos)
	}

	params, err := resolveParams(ctx, p.Params)
	if err != nil {
		return locate(err, p.Pos, CodeAccessFailed, "resolving include parameters")
	}

	child := ctx.Child()
	for k, v := range params {
		child.SetLocal(k, v)
	}

	return tmpl.Render(child, w)
}

func (p *IncludePart) String() string {
	return fmt.Sprintf("[include %s %v]", p.Name, p.Params)
}

// writeValue emits the output form of v.
func writeValue(ctx *Context, w io.Writer, v any, pos Position) error {
	if r, ok := v.(Renderer); ok {
		return r.Render(ctx, w)
	}

	var err error
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		_, err = io.WriteString(w, s)
	case []byte:
		_, err = w.Write(s)
	default:
		_, err = io.WriteString(w, toString(v))
	}

	if err != nil {
		return newRenderError(CodeWriteFailed, pos, "writing value", err)
	}
	return nil
}

// RenderString renders part against ctx and returns the output.
func RenderString(part Renderer, ctx *Context) (string, error) {
	var buf bytes.Buffer
	if err := part.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
