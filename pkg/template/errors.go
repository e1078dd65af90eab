package template

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes template failures.
type ErrorKind string

const (
	KindParse      ErrorKind = "parse"
	KindResolution ErrorKind = "resolution"
	KindMissing    ErrorKind = "missing"
	KindIO         ErrorKind = "io"
	KindRender     ErrorKind = "render"
)

// Common error codes.
const (
	CodeSyntax            = "ERR_SYNTAX"
	CodeUnbalanced        = "ERR_UNBALANCED_BLOCK"
	CodeUnterminated      = "ERR_UNTERMINATED"
	CodeNoAccessor        = "ERR_NO_ACCESSOR"
	CodeAccessFailed      = "ERR_ACCESS_FAILED"
	CodeFilterNotFound    = "ERR_FILTER_NOT_FOUND"
	CodePluginNotFound    = "ERR_PLUGIN_NOT_FOUND"
	CodeTemplateNotFound  = "ERR_TEMPLATE_NOT_FOUND"
	CodeFilterFailed      = "ERR_FILTER_FAILED"
	CodePluginFailed      = "ERR_PLUGIN_FAILED"
	CodeWriteFailed       = "ERR_WRITE_FAILED"
	CodeReadFailed        = "ERR_READ_FAILED"
	CodeInvalidCollection = "ERR_INVALID_COLLECTION"
)

// Error is the structured failure produced while parsing or rendering a
// template. Line and Column point at the offending tag in the source text.
type Error struct {
	Kind     ErrorKind
	Code     string
	Message  string
	Name     string
	Template string
	Line     int
	Column   int
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	location := e.Template
	if e.Line > 0 {
		location += fmt.Sprintf(":%d", e.Line)
		if e.Column > 0 {
			location += fmt.Sprintf(":%d", e.Column)
		}
	}
	if location != "" {
		parts = append(parts, location)
	}

	msg := e.Message
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	parts = append(parts, msg)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// WithLocation sets the source position, keeping an already set one.
func (e *Error) WithLocation(pos Position) *Error {
	if e.Line == 0 {
		e.Line = pos.Line
		e.Column = pos.Column
	}

	return e
}

// WithTemplate records the name of the template the error came from, keeping
// the innermost name when templates are nested.
func (e *Error) WithTemplate(name string) *Error {
	if e.Template == "" {
		e.Template = name
	}

	return e
}

// Position returns where in the source the error occurred.
func (e *Error) Position() Position {
	return Position{Line: e.Line, Column: e.Column}
}

func newParseError(code string, pos Position, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindParse,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    pos.Line,
		Column:  pos.Column,
	}
}

func newMissingError(code, what, name string, pos Position) *Error {
	return &Error{
		Kind:    KindMissing,
		Code:    code,
		Message: what + " not found:",
		Name:    name,
		Line:    pos.Line,
		Column:  pos.Column,
	}
}

func newResolutionError(typeName, member string) *Error {
	return &Error{
		Kind:    KindResolution,
		Code:    CodeNoAccessor,
		Message: fmt.Sprintf("no accessor registered for type %s while resolving", typeName),
		Name:    member,
	}
}

func newRenderError(code string, pos Position, msg string, cause error) *Error {
	return &Error{
		Kind:    KindRender,
		Code:    code,
		Message: msg,
		Line:    pos.Line,
		Column:  pos.Column,
		Cause:   cause,
	}
}

// locate attaches pos to err. Errors that already carry a position keep it,
// any other error is wrapped in a render error.
func locate(err error, pos Position, code, msg string) error {
	if err == nil {
		return nil
	}

	var te *Error
	if errors.As(err, &te) {
		return te.WithLocation(pos)
	}

	return newRenderError(code, pos, msg, err)
}

// IsParseError checks if an error is a template parse failure.
func IsParseError(err error) bool {
	return hasKind(err, KindParse)
}

// IsResolutionError checks if an error is a missing accessor failure.
func IsResolutionError(err error) bool {
	return hasKind(err, KindResolution)
}

// IsMissingError checks if an error names an unregistered filter, plugin or
// template.
func IsMissingError(err error) bool {
	return hasKind(err, KindMissing)
}

func hasKind(err error, kind ErrorKind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}

	return false
}
