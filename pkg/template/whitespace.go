package template

import (
	"fmt"
	"strings"
	"unicode"
)

// WhitespaceRemover post-processes the literal text between tags. It never
// sees tag content.
type WhitespaceRemover interface {
	Remove(text string) string
}

// NoWhitespaceRemover keeps text unchanged.
type NoWhitespaceRemover struct{}

func (NoWhitespaceRemover) Remove(text string) string { return text }

// TrimLinesRemover strips leading and trailing blanks from every line and
// drops lines left empty.
type TrimLinesRemover struct{}

func (TrimLinesRemover) Remove(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// CollapseRemover replaces every run of whitespace with a single space.
type CollapseRemover struct{}

func (CollapseRemover) Remove(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// WhitespaceRemoverByName maps a configuration name to a remover.
func WhitespaceRemoverByName(name string) (WhitespaceRemover, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "keep":
		return NoWhitespaceRemover{}, nil
	case "trim":
		return TrimLinesRemover{}, nil
	case "collapse":
		return CollapseRemover{}, nil
	}
	return nil, fmt.Errorf("unknown whitespace policy %q (supported: none, trim, collapse)", name)
}
