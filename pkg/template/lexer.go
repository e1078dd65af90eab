package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	openDelim  = "<%"
	closeDelim = '>'
	pipeDelim  = '|'
	eof        = rune(-1)
)

type itemType int

const (
	itemText itemType = iota
	itemTag
)

// item is a lexed template segment: literal text or a tag split into tokens.
type item struct {
	typ    itemType
	pos    Position
	text   string
	lead   bool
	tokens []token
}

// token is a word inside a tag. literal marks the bytes of text that came
// from quoting or escaping and therefore carry no syntax.
type token struct {
	pos     Position
	text    string
	literal []bool
	pipe    bool
}

// bare reports whether no byte of the token was quoted or escaped.
func (t token) bare() bool {
	for _, l := range t.literal {
		if l {
			return false
		}
	}
	return true
}

// index returns the first unquoted occurrence of b at or after from, or -1.
func (t token) index(b byte, from int) int {
	for i := from; i < len(t.text); i++ {
		if t.text[i] == b && !t.literal[i] {
			return i
		}
	}
	return -1
}

// is reports whether the token is exactly the unquoted word w.
func (t token) is(w string) bool {
	return t.text == w && t.bare()
}

func (t token) slice(from, to int) token {
	return token{
		pos:     Position{Line: t.pos.Line, Column: t.pos.Column + from},
		text:    t.text[from:to],
		literal: t.literal[from:to],
	}
}

// lexer splits template source into items, tracking line and column.
type lexer struct {
	src   string
	pos   int
	line  int
	col   int
	items []item
}

func lex(src string) ([]item, *Error) {
	l := &lexer{src: src, line: 1, col: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.items, nil
}

func (l *lexer) position() Position {
	return Position{Line: l.line, Column: l.col}
}

func (l *lexer) next() rune {
	if l.pos >= len(l.src) {
		return eof
	}

	r, width := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += width
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) run() *Error {
	for l.pos < len(l.src) {
		start := l.position()
		idx := strings.Index(l.src[l.pos:], openDelim)
		if idx < 0 {
			l.emitText(start, l.src[l.pos:])
			break
		}

		if idx > 0 {
			l.emitText(start, l.src[l.pos:l.pos+idx])
		}

		tagPos := l.position()
		l.next()
		l.next()
		if err := l.lexTag(tagPos); err != nil {
			return err
		}
	}
	return nil
}

// emitText records literal text and advances over it.
func (l *lexer) emitText(pos Position, text string) {
	l.items = append(l.items, item{typ: itemText, pos: pos, text: text})
	for range text {
		l.next()
	}
}

func (l *lexer) lexTag(tagPos Position) *Error {
	tag := item{typ: itemTag, pos: tagPos, lead: unicode.IsSpace(l.peek())}

	var (
		cur     strings.Builder
		literal []bool
		started bool
		tokPos  Position
	)

	begin := func() {
		if !started {
			started = true
			tokPos = l.position()
		}
	}
	add := func(r rune, lit bool) {
		n, _ := cur.WriteRune(r)
		for i := 0; i < n; i++ {
			literal = append(literal, lit)
		}
	}
	flush := func() {
		if started {
			tag.tokens = append(tag.tokens, token{pos: tokPos, text: cur.String(), literal: literal})
		}
		cur.Reset()
		literal = nil
		started = false
	}

	for {
		r := l.peek()
		switch {
		case r == eof:
			return newParseError(CodeUnterminated, tagPos, "unterminated tag")
		case r == closeDelim:
			l.next()
			flush()
			l.items = append(l.items, tag)
			return nil
		case unicode.IsSpace(r):
			l.next()
			flush()
		case r == pipeDelim:
			flush()
			tag.tokens = append(tag.tokens, token{pos: l.position(), text: "|", literal: []bool{false}, pipe: true})
			l.next()
		case r == '\'':
			begin()
			quotePos := l.position()
			l.next()
			for {
				q := l.next()
				if q == eof {
					return newParseError(CodeUnterminated, quotePos, "unterminated single quote")
				}
				if q == '\'' {
					break
				}
				add(q, true)
			}
		case r == '"':
			begin()
			quotePos := l.position()
			l.next()
			for {
				q := l.next()
				if q == eof {
					return newParseError(CodeUnterminated, quotePos, "unterminated double quote")
				}
				if q == '"' {
					break
				}
				if q == '\\' {
					q = l.next()
					if q == eof {
						return newParseError(CodeUnterminated, quotePos, "unterminated double quote")
					}
				}
				add(q, true)
			}
		case r == '\\':
			begin()
			escPos := l.position()
			l.next()
			q := l.next()
			if q == eof {
				return newParseError(CodeUnterminated, escPos, "escape at end of input")
			}
			add(q, true)
		default:
			begin()
			l.next()
			add(r, false)
		}
	}
}
