package template

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"
)

// Provider resolves a template name to a parsed template. It returns nil
// when it has no such template; load failures are logged, not returned.
type Provider interface {
	Template(ctx *Context, name string) *Template
}

// Logger receives provider diagnostics. internal/logging.Logger satisfies
// it.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...interface{})       {}
func (nopLogger) Warn(context.Context, error, string, ...interface{}) {}

// ResourceProvider loads templates from a read-only file system such as an
// embed.FS. Each template is parsed once and cached for the provider's
// lifetime.
type ResourceProvider struct {
	fsys   fs.FS
	suffix string
	opts   []ParseOption
	logger Logger

	mu    sync.Mutex
	cache map[string]*Template
}

// NewResourceProvider creates a provider over fsys. suffix, when set, is
// appended to names that do not already end with it.
func NewResourceProvider(fsys fs.FS, suffix string, logger Logger, opts ...ParseOption) *ResourceProvider {
	if logger == nil {
		logger = nopLogger{}
	}
	return &ResourceProvider{
		fsys:   fsys,
		suffix: suffix,
		opts:   opts,
		logger: logger,
		cache:  make(map[string]*Template),
	}
}

// Template implements Provider.
func (p *ResourceProvider) Template(_ *Context, name string) *Template {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.cache[name]; ok {
		return t
	}

	file := path.Clean(withSuffix(name, p.suffix))
	if !fs.ValidPath(file) {
		p.logger.Warn(context.Background(), nil, "invalid resource template name", "name", name)
		return nil
	}

	f, err := p.fsys.Open(file)
	if err != nil {
		p.logger.Debug(context.Background(), "resource template not available", "name", name, "error", err.Error())
		return nil
	}
	defer f.Close()

	t, err := Parse(f, append([]ParseOption{Named(name)}, p.opts...)...)
	if err != nil {
		p.logger.Warn(context.Background(), err, "failed to parse resource template", "name", name)
		return nil
	}

	p.cache[name] = t
	return t
}

// FileProvider loads templates from directories on disk. Cache entries are
// keyed by absolute path and reparsed when the file's modification time
// moves past the cached one.
type FileProvider struct {
	roots  []string
	suffix string
	opts   []ParseOption
	logger Logger

	mu    sync.Mutex
	cache map[string]*cachedTemplate
}

type cachedTemplate struct {
	template *Template
	modTime  time.Time
}

// NewFileProvider creates a provider searching roots in order.
func NewFileProvider(roots []string, suffix string, logger Logger, opts ...ParseOption) *FileProvider {
	if logger == nil {
		logger = nopLogger{}
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}
	return &FileProvider{
		roots:  roots,
		suffix: suffix,
		opts:   opts,
		logger: logger,
		cache:  make(map[string]*cachedTemplate),
	}
}

// Roots returns the directories searched for templates.
func (p *FileProvider) Roots() []string {
	return append([]string(nil), p.roots...)
}

// Suffix returns the file suffix appended to template names.
func (p *FileProvider) Suffix() string {
	return p.suffix
}

// Template implements Provider.
func (p *FileProvider) Template(_ *Context, name string) *Template {
	file, info := p.resolve(name)
	if file == "" {
		p.logger.Debug(context.Background(), "template file not found", "name", name)
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.cache[file]; ok && !info.ModTime().After(cached.modTime) {
		return cached.template
	}

	t, err := ParseFile(file, append([]ParseOption{Named(name)}, p.opts...)...)
	if err != nil {
		p.logger.Warn(context.Background(), err, "failed to load template", "name", name, "path", file)
		return nil
	}

	p.cache[file] = &cachedTemplate{template: t, modTime: info.ModTime()}
	p.logger.Debug(context.Background(), "template loaded", "name", name, "path", file)
	return t
}

// Invalidate drops the cache entry for the file at path.
func (p *FileProvider) Invalidate(file string) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return
	}

	p.mu.Lock()
	delete(p.cache, abs)
	p.mu.Unlock()
}

// resolve finds the first root holding name and returns its absolute path.
func (p *FileProvider) resolve(name string) (string, os.FileInfo) {
	rel := filepath.FromSlash(withSuffix(name, p.suffix))
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", nil
	}

	for _, root := range p.roots {
		abs, err := filepath.Abs(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		return abs, info
	}
	return "", nil
}

// ContextProvider serves templates stored as values in the requesting
// context: a *Template as is, any other Part wrapped in a template.
type ContextProvider struct{}

// Template implements Provider.
func (ContextProvider) Template(ctx *Context, name string) *Template {
	if ctx == nil {
		return nil
	}

	v, err := ctx.Get(name)
	if err != nil || v == nil {
		return nil
	}

	switch t := v.(type) {
	case *Template:
		return t
	case Part:
		return WrapPart(name, t)
	}
	return nil
}

func withSuffix(name, suffix string) string {
	if suffix == "" || path.Ext(name) == suffix {
		return name
	}
	return name + suffix
}
