package template

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type parseConfig struct {
	name       string
	whitespace WhitespaceRemover
	loopName   string
}

// ParseOption configures a single parse.
type ParseOption func(*parseConfig)

// Named sets the template name used in error messages.
func Named(name string) ParseOption {
	return func(c *parseConfig) { c.name = name }
}

// WithWhitespaceRemover applies r to every literal text segment.
func WithWhitespaceRemover(r WhitespaceRemover) ParseOption {
	return func(c *parseConfig) {
		if r != nil {
			c.whitespace = r
		}
	}
}

// WithDefaultLoopName changes the name loop status is bound to when a
// foreach tag does not set loop=.
func WithDefaultLoopName(name string) ParseOption {
	return func(c *parseConfig) {
		if name != "" {
			c.loopName = name
		}
	}
}

// Parse reads r to the end and parses it into a template. r is not closed.
func Parse(r io.Reader, opts ...ParseOption) (*Template, error) {
	cfg := parseConfig{whitespace: NoWhitespaceRemover{}, loopName: DefaultLoopName}
	for _, opt := range opts {
		opt(&cfg)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, (&Error{
			Kind:    KindIO,
			Code:    CodeReadFailed,
			Message: "reading template source",
			Cause:   err,
		}).WithTemplate(cfg.name)
	}

	root, err := parse(buf.String(), cfg)
	if err != nil {
		return nil, err.WithTemplate(cfg.name)
	}

	return &Template{Name: cfg.name, Root: root}, nil
}

// ParseString parses template source held in a string.
func ParseString(src string, opts ...ParseOption) (*Template, error) {
	return Parse(strings.NewReader(src), opts...)
}

// ParseFile parses the file at path. The file is closed before returning.
func ParseFile(path string, opts ...ParseOption) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{
			Kind:     KindIO,
			Code:     CodeReadFailed,
			Message:  "opening template",
			Template: filepath.ToSlash(path),
			Cause:    err,
		}
	}
	defer f.Close()

	return Parse(f, append([]ParseOption{Named(filepath.ToSlash(path))}, opts...)...)
}

// frame is an open block on the parser stack.
type frame struct {
	kind  string
	pos   Position
	outer *ContainerPart
	node  Part

	cond     *ConditionalPart
	loop     *LoopPart
	empty    *EmptyLoopPart
	elseSeen bool
}

type parser struct {
	cfg   parseConfig
	root  *ContainerPart
	cur   *ContainerPart
	stack []*frame
}

var loopFlags = map[string]bool{"first": true, "last": true, "odd": true, "even": true}

func parse(src string, cfg parseConfig) (*ContainerPart, *Error) {
	items, err := lex(src)
	if err != nil {
		return nil, err
	}

	root := &ContainerPart{Pos: Position{Line: 1, Column: 1}}
	p := &parser{cfg: cfg, root: root, cur: root}

	for _, it := range items {
		if it.typ == itemText {
			p.text(it)
			continue
		}
		if err := p.tag(it); err != nil {
			return nil, err
		}
	}

	if n := len(p.stack); n > 0 {
		top := p.stack[n-1]
		return nil, newParseError(CodeUnbalanced, top.pos, "unclosed <%%%s> block", top.kind)
	}

	return root, nil
}

func (p *parser) text(it item) {
	text := p.cfg.whitespace.Remove(it.text)
	if text == "" {
		return
	}
	p.cur.add(&TextPart{Pos: it.pos, Text: text})
}

func (p *parser) tag(it item) *Error {
	if len(it.tokens) == 0 {
		return newParseError(CodeSyntax, it.pos, "empty tag")
	}

	if it.lead || hasPipe(it.tokens) || !it.tokens[0].bare() {
		return p.reference(it)
	}

	head := it.tokens[0].text
	args := it.tokens[1:]

	switch {
	case head == "foreach":
		return p.openForeach(it.pos, args)
	case head == "foreachelse":
		return p.foreachElse(it.pos, args)
	case head == "if":
		return p.openIf(it.pos, args)
	case head == "elseif":
		return p.elseIf(it.pos, args)
	case head == "else":
		return p.elseTag(it.pos, args)
	case head == "include":
		return p.include(it.pos, args)
	case loopFlags[head]:
		return p.openLoopFlag(it.pos, head, args)
	case strings.HasPrefix(head, "/"):
		return p.close(it.pos, strings.TrimPrefix(head, "/"), args)
	}

	params, err := parseParams(args)
	if err != nil {
		return err
	}
	p.cur.add(&PluginPart{Pos: it.pos, Name: head, Params: params})
	return nil
}

// reference handles <% path|filter k=v|filter2>.
func (p *parser) reference(it item) *Error {
	groups := splitPipes(it.tokens)

	first := groups[0]
	if len(first) != 1 || !first[0].bare() || first[0].text == "" {
		return newParseError(CodeSyntax, it.pos, "expected a single reference before the first filter")
	}
	path := first[0].text

	if len(groups) == 1 {
		p.cur.add(&DataPart{Pos: it.pos, Path: path})
		return nil
	}

	stages := make([]FilterStage, 0, len(groups)-1)
	for _, g := range groups[1:] {
		if len(g) == 0 || !g[0].bare() {
			return newParseError(CodeSyntax, it.pos, "expected a filter name after |")
		}
		params, err := parseParams(g[1:])
		if err != nil {
			return err
		}
		stages = append(stages, FilterStage{Name: g[0].text, Params: params, Pos: g[0].pos})
	}

	p.cur.add(&FilteredPart{Pos: it.pos, Path: path, Stages: stages})
	return nil
}

func (p *parser) push(f *frame, body *ContainerPart) {
	f.outer = p.cur
	p.stack = append(p.stack, f)
	p.cur = body
}

func (p *parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) openForeach(pos Position, args []token) *Error {
	if len(args) == 0 || !args[0].bare() || args[0].index('=', 0) >= 0 {
		return newParseError(CodeSyntax, pos, "foreach requires a collection name")
	}

	body := &ContainerPart{Pos: pos}
	loop := &LoopPart{
		Pos:        pos,
		Collection: args[0].text,
		Item:       DefaultItemName,
		Name:       p.cfg.loopName,
		Body:       body,
	}

	itemSet := false
	for _, tok := range args[1:] {
		if eq := tok.index('=', 0); eq >= 0 {
			key := tok.text[:eq]
			if key != "loop" || eq+1 >= len(tok.text) {
				return newParseError(CodeSyntax, tok.pos, "unknown foreach parameter %q", tok.text)
			}
			loop.Name = tok.text[eq+1:]
			continue
		}
		if itemSet || !tok.bare() {
			return newParseError(CodeSyntax, tok.pos, "unexpected foreach argument %q", tok.text)
		}
		loop.Item = tok.text
		itemSet = true
	}

	p.push(&frame{kind: "foreach", pos: pos, node: loop, loop: loop}, body)
	return nil
}

func (p *parser) foreachElse(pos Position, args []token) *Error {
	top := p.top()
	if top == nil || top.kind != "foreach" {
		return newParseError(CodeUnbalanced, pos, "<%%foreachelse> outside of <%%foreach>")
	}
	if top.elseSeen {
		return newParseError(CodeSyntax, pos, "duplicate <%%foreachelse>")
	}
	if len(args) > 0 {
		return newParseError(CodeSyntax, pos, "<%%foreachelse> takes no arguments")
	}

	body := &ContainerPart{Pos: pos}
	top.empty = &EmptyLoopPart{Pos: pos, Collection: top.loop.Collection, Body: body}
	top.elseSeen = true
	p.cur = body
	return nil
}

func (p *parser) openIf(pos Position, args []token) *Error {
	cond, err := parseCondition(pos, args)
	if err != nil {
		return err
	}

	body := &ContainerPart{Pos: pos}
	c := &ConditionalPart{Pos: pos, Cond: cond, Body: body}
	p.push(&frame{kind: "if", pos: pos, node: c, cond: c}, body)
	return nil
}

func (p *parser) elseIf(pos Position, args []token) *Error {
	top := p.top()
	if top == nil || top.kind != "if" {
		return newParseError(CodeUnbalanced, pos, "<%%elseif> outside of <%%if>")
	}
	if top.elseSeen {
		return newParseError(CodeSyntax, pos, "<%%elseif> after <%%else>")
	}

	cond, err := parseCondition(pos, args)
	if err != nil {
		return err
	}

	body := &ContainerPart{Pos: pos}
	next := &ConditionalPart{Pos: pos, Cond: cond, Body: body}
	top.cond.Else = next
	top.cond = next
	p.cur = body
	return nil
}

func (p *parser) elseTag(pos Position, args []token) *Error {
	top := p.top()
	if top == nil || top.kind != "if" {
		return newParseError(CodeUnbalanced, pos, "<%%else> outside of <%%if>")
	}
	if top.elseSeen {
		return newParseError(CodeSyntax, pos, "duplicate <%%else>")
	}
	if len(args) > 0 {
		return newParseError(CodeSyntax, pos, "<%%else> takes no arguments")
	}

	body := &ContainerPart{Pos: pos}
	top.cond.Else = body
	top.elseSeen = true
	p.cur = body
	return nil
}

// openLoopFlag handles <%first>, <%last>, <%odd> and <%even>, which render
// their body when the flag of the enclosing loop is set.
func (p *parser) openLoopFlag(pos Position, flag string, args []token) *Error {
	loopName := p.cfg.loopName
	for _, tok := range args {
		eq := tok.index('=', 0)
		if eq < 0 || tok.text[:eq] != "loop" || eq+1 >= len(tok.text) {
			return newParseError(CodeSyntax, tok.pos, "unexpected <%%%s> argument %q", flag, tok.text)
		}
		loopName = tok.text[eq+1:]
	}

	body := &ContainerPart{Pos: pos}
	c := &ConditionalPart{Pos: pos, Cond: TruthyCondition{Path: loopName + "." + flag}, Body: body}
	p.push(&frame{kind: flag, pos: pos, node: c, cond: c}, body)
	return nil
}

func (p *parser) include(pos Position, args []token) *Error {
	if len(args) == 0 || args[0].text == "" || args[0].index('=', 0) >= 0 {
		return newParseError(CodeSyntax, pos, "include requires a template name")
	}

	params, err := parseIncludeParams(args[1:])
	if err != nil {
		return err
	}

	p.cur.add(&IncludePart{Pos: pos, Name: args[0].text, Params: params})
	return nil
}

func (p *parser) close(pos Position, kind string, args []token) *Error {
	if len(args) > 0 {
		return newParseError(CodeSyntax, pos, "<%%/%s> takes no arguments", kind)
	}

	top := p.top()
	if top == nil {
		return newParseError(CodeUnbalanced, pos, "<%%/%s> without matching open tag", kind)
	}
	if top.kind != kind {
		return newParseError(CodeUnbalanced, pos,
			"<%%/%s> does not close <%%%s> opened at %s", kind, top.kind, top.pos)
	}

	p.stack = p.stack[:len(p.stack)-1]
	p.cur = top.outer
	p.cur.add(top.node)
	if top.empty != nil {
		p.cur.add(top.empty)
	}
	return nil
}

func hasPipe(tokens []token) bool {
	for _, t := range tokens {
		if t.pipe {
			return true
		}
	}
	return false
}

func splitPipes(tokens []token) [][]token {
	groups := [][]token{nil}
	for _, t := range tokens {
		if t.pipe {
			groups = append(groups, nil)
			continue
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], t)
	}
	return groups
}

// parseParams turns key=value tokens into literal params and bare
// identifiers into reference params.
func parseParams(tokens []token) ([]Param, *Error) {
	params := make([]Param, 0, len(tokens))
	for _, tok := range tokens {
		eq := tok.index('=', 0)
		switch {
		case eq == 0:
			return nil, newParseError(CodeSyntax, tok.pos, "parameter %q has no name", tok.text)
		case eq > 0:
			params = append(params, Param{Key: tok.text[:eq], Value: tok.text[eq+1:]})
		case tok.bare() && tok.text != "":
			params = append(params, Param{Key: tok.text, Value: tok.text, Ref: true})
		default:
			return nil, newParseError(CodeSyntax, tok.pos, "parameter %q must be key=value", tok.text)
		}
	}
	return params, nil
}

// parseIncludeParams handles include parameters, where a value is a
// reference unless it starts with "=" or was quoted.
func parseIncludeParams(tokens []token) ([]Param, *Error) {
	params := make([]Param, 0, len(tokens))
	for _, tok := range tokens {
		eq := tok.index('=', 0)
		switch {
		case eq == 0:
			return nil, newParseError(CodeSyntax, tok.pos, "parameter %q has no name", tok.text)
		case eq > 0:
			key := tok.text[:eq]
			value := tok.slice(eq+1, len(tok.text))
			switch {
			case strings.HasPrefix(value.text, "=") && !value.literal[0]:
				params = append(params, Param{Key: key, Value: value.text[1:]})
			case !value.bare() || value.text == "":
				params = append(params, Param{Key: key, Value: value.text})
			default:
				params = append(params, Param{Key: key, Value: value.text, Ref: true})
			}
		case tok.bare() && tok.text != "":
			params = append(params, Param{Key: tok.text, Value: tok.text, Ref: true})
		default:
			return nil, newParseError(CodeSyntax, tok.pos, "parameter %q must be key=value", tok.text)
		}
	}
	return params, nil
}

// parseCondition builds a condition from terms joined by "and" and "or",
// where "and" binds tighter.
func parseCondition(pos Position, args []token) (Condition, *Error) {
	if len(args) == 0 {
		return nil, newParseError(CodeSyntax, pos, "missing condition")
	}

	var (
		ors  OrCondition
		ands AndCondition
	)
	expectTerm := true
	for _, tok := range args {
		if tok.is("and") || tok.is("or") {
			if expectTerm {
				return nil, newParseError(CodeSyntax, tok.pos, "unexpected %q in condition", tok.text)
			}
			if tok.text == "or" {
				ors = append(ors, collapseAnd(ands))
				ands = nil
			}
			expectTerm = true
			continue
		}

		if !expectTerm {
			return nil, newParseError(CodeSyntax, tok.pos, "expected and/or before %q", tok.text)
		}
		term, err := parseTerm(tok)
		if err != nil {
			return nil, err
		}
		ands = append(ands, term)
		expectTerm = false
	}

	if expectTerm {
		return nil, newParseError(CodeSyntax, pos, "condition ends with an operator")
	}

	ors = append(ors, collapseAnd(ands))
	if len(ors) == 1 {
		return ors[0], nil
	}
	return ors, nil
}

func collapseAnd(ands AndCondition) Condition {
	if len(ands) == 1 {
		return ands[0]
	}
	return ands
}

func parseTerm(tok token) (Condition, *Error) {
	if tok.text == "" {
		return nil, newParseError(CodeSyntax, tok.pos, "empty condition term")
	}

	if tok.text[0] == '!' && !tok.literal[0] {
		inner, err := parseTerm(tok.slice(1, len(tok.text)))
		if err != nil {
			return nil, err
		}
		return NotCondition{Cond: inner}, nil
	}

	eq := tok.index('=', 0)
	if eq < 0 {
		if !tok.bare() {
			return nil, newParseError(CodeSyntax, tok.pos, "condition %q must reference a value", tok.text)
		}
		return TruthyCondition{Path: tok.text}, nil
	}

	negate := false
	nameEnd, valueStart := eq, eq+1
	switch {
	case eq > 0 && tok.text[eq-1] == '!' && !tok.literal[eq-1]:
		negate = true
		nameEnd = eq - 1
	case eq+1 < len(tok.text) && tok.text[eq+1] == '=' && !tok.literal[eq+1]:
		valueStart = eq + 2
	}

	if nameEnd == 0 {
		return nil, newParseError(CodeSyntax, tok.pos, "comparison %q has no reference", tok.text)
	}

	path := tok.text[:nameEnd]
	value := tok.slice(valueStart, len(tok.text))

	var cond Condition = EqualsCondition{Path: path, Literal: value.text}
	if value.is("null") {
		cond = NullCondition{Path: path}
	}
	if negate {
		cond = NotCondition{Cond: cond}
	}
	return cond, nil
}

// Template is a parsed template: a named root container.
type Template struct {
	Name string
	Root *ContainerPart
}

// WrapPart turns a bare part into a one-node template.
func WrapPart(name string, part Part) *Template {
	if t, ok := part.(*Template); ok {
		return t
	}
	if c, ok := part.(*ContainerPart); ok {
		return &Template{Name: name, Root: c}
	}
	return &Template{Name: name, Root: &ContainerPart{Pos: part.Position(), Children: []Part{part}}}
}

func (t *Template) Position() Position { return t.Root.Pos }

// Render renders the template. Errors are tagged with the template name.
func (t *Template) Render(ctx *Context, w io.Writer) error {
	err := t.Root.Render(ctx, w)
	if err == nil {
		return nil
	}

	var te *Error
	if t.Name != "" && errors.As(err, &te) {
		te.WithTemplate(t.Name)
	}
	return err
}

// Execute renders the template against ctx into a string.
func (t *Template) Execute(ctx *Context) (string, error) {
	return RenderString(t, ctx)
}

func (t *Template) String() string {
	return fmt.Sprintf("[template %s %s]", t.Name, t.Root)
}
