package template

import (
	"io"
	"reflect"
	"strings"
)

// Factory owns the shared registrations of an application: default
// accessors, filters, plugins and template providers, plus the parse
// settings. It replaces process-wide defaults; construct one and pass it
// where templates are parsed or rendered.
type Factory struct {
	base       *Context
	whitespace WhitespaceRemover
	loopName   string
	logger     Logger

	// providers are built once every option has run.
	providers []func() Provider
}

// Option configures a Factory.
type Option func(*Factory)

// WithWhitespace sets the remover applied to literal text.
func WithWhitespace(r WhitespaceRemover) Option {
	return func(f *Factory) {
		if r != nil {
			f.whitespace = r
		}
	}
}

// WithLoopName sets the default name of the loop status binding.
func WithLoopName(name string) Option {
	return func(f *Factory) {
		if name != "" {
			f.loopName = name
		}
	}
}

// WithLogger sets the logger handed to providers.
func WithLogger(l Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithProvider appends a template provider.
func WithProvider(p Provider) Option {
	return func(f *Factory) {
		f.providers = append(f.providers, func() Provider { return p })
	}
}

// WithFileProvider appends a FileProvider over roots. It uses the factory's
// final logger and parse settings, wherever the option appears.
func WithFileProvider(roots []string, suffix string) Option {
	return func(f *Factory) {
		f.providers = append(f.providers, func() Provider {
			return NewFileProvider(roots, suffix, f.logger, f.ParseOptions()...)
		})
	}
}

// WithFilter registers an additional filter.
func WithFilter(name string, filter Filter) Option {
	return func(f *Factory) { f.base.RegisterFilter(name, filter) }
}

// WithPlugin registers an additional plugin.
func WithPlugin(name string, plugin Plugin) Option {
	return func(f *Factory) { f.base.RegisterPlugin(name, plugin) }
}

// WithAccessor registers an accessor for typ.
func WithAccessor(typ reflect.Type, a Accessor) Option {
	return func(f *Factory) { f.base.RegisterAccessor(typ, a) }
}

// NewFactory creates a factory with the built-in accessors, filters and
// plugins and a ContextProvider. Providers are consulted in the order their
// options appear, after the ContextProvider.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		base:       NewContext(),
		whitespace: NoWhitespaceRemover{},
		loopName:   DefaultLoopName,
		logger:     nopLogger{},
	}

	registerDefaultAccessors(f.base)
	for name, filter := range DefaultFilters() {
		f.base.RegisterFilter(name, filter)
	}
	for name, plugin := range DefaultPlugins() {
		f.base.RegisterPlugin(name, plugin)
	}
	f.base.AddProvider(ContextProvider{})

	for _, opt := range opts {
		opt(f)
	}
	for _, build := range f.providers {
		f.base.AddProvider(build())
	}
	f.providers = nil
	return f
}

// Base returns the context holding the factory's registrations.
func (f *Factory) Base() *Context {
	return f.base
}

// NewContext returns a fresh context for one render pass.
func (f *Factory) NewContext() *Context {
	return f.base.Child()
}

// ParseOptions returns the parse settings of the factory.
func (f *Factory) ParseOptions() []ParseOption {
	return []ParseOption{WithWhitespaceRemover(f.whitespace), WithDefaultLoopName(f.loopName)}
}

// Parse parses r with the factory's settings.
func (f *Factory) Parse(name string, r io.Reader) (*Template, error) {
	return Parse(r, append(f.ParseOptions(), Named(name))...)
}

// ParseString parses src with the factory's settings.
func (f *Factory) ParseString(name, src string) (*Template, error) {
	return f.Parse(name, strings.NewReader(src))
}

// ParseFile parses the file at path with the factory's settings.
func (f *Factory) ParseFile(path string) (*Template, error) {
	return ParseFile(path, f.ParseOptions()...)
}

// Template loads name through the factory's providers.
func (f *Factory) Template(name string) *Template {
	return f.base.Template(name)
}

// Invalidate drops cached copies of the file at path from every provider
// that caches by file.
func (f *Factory) Invalidate(path string) {
	for _, p := range f.base.Providers() {
		if inv, ok := p.(interface{ Invalidate(string) }); ok {
			inv.Invalidate(path)
		}
	}
}

// Render loads name and renders it against ctx. A name no provider knows
// is a missing-template error.
func (f *Factory) Render(name string, ctx *Context, w io.Writer) error {
	if ctx == nil {
		ctx = f.NewContext()
	}

	t := ctx.Template(name)
	if t == nil {
		return &Error{
			Kind:    KindMissing,
			Code:    CodeTemplateNotFound,
			Message: "template not found:",
			Name:    name,
		}
	}
	return t.Render(ctx, w)
}
