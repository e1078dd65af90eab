package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tagtpl/internal/logging"
	"github.com/conneroisu/tagtpl/pkg/template"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "custom paths and suffix",
			setup: func(v *viper.Viper) {
				v.Set("templates.paths", []string{"views", "partials"})
				v.Set("templates.suffix", ".html")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"views", "partials"}, cfg.Templates.Paths)
				assert.Equal(t, ".html", cfg.Templates.Suffix)
			},
		},
		{
			name: "empty suffix is kept when set",
			setup: func(v *viper.Viper) {
				v.Set("templates.suffix", "")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Empty(t, cfg.Templates.Suffix)
			},
		},
		{
			name: "comma separated paths",
			setup: func(v *viper.Viper) {
				v.Set("templates.paths", "a,b")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"a", "b"}, cfg.Templates.Paths)
			},
		},
		{
			name: "duration strings",
			setup: func(v *viper.Viper) {
				v.Set("watch.debounce", "250ms")
				v.Set("render.whitespace", "trim")
				v.Set("render.loop_name", "status")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
				assert.Equal(t, "trim", cfg.Render.Whitespace)
				assert.Equal(t, "status", cfg.Render.LoopName)
			},
		},
		{
			name: "unknown whitespace remover",
			setup: func(v *viper.Viper) {
				v.Set("render.whitespace", "squash")
			},
			expectError: true,
		},
		{
			name: "bad log level",
			setup: func(v *viper.Viper) {
				v.Set("log.level", "shout")
			},
			expectError: true,
		},
		{
			name: "undecodable duration",
			setup: func(v *viper.Viper) {
				v.Set("watch.debounce", "soon")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, DefaultFile)

	data, err := yaml.Marshal(map[string]any{
		"templates": map[string]any{"paths": []string{dir}, "suffix": ".tmpl"},
		"render":    map[string]any{"whitespace": "collapse"},
		"log":       map[string]any{"level": "debug", "format": "json"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, data, 0o644))

	t.Setenv("TAGTPL_LOG_LEVEL", "warn")

	v := viper.New()
	v.SetConfigFile(file)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, []string{dir}, cfg.Templates.Paths)
	assert.Equal(t, ".tmpl", cfg.Templates.Suffix)
	assert.Equal(t, "collapse", cfg.Render.Whitespace)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.tpl")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name     string
		mutate   func(c *Config)
		field    string
		warnOnly bool
	}{
		{"missing directory warns", func(c *Config) { c.Templates.Paths = []string{filepath.Join(dir, "nope")} }, "templates.paths", true},
		{"file is not a directory", func(c *Config) { c.Templates.Paths = []string{file} }, "templates.paths", false},
		{"blank path", func(c *Config) { c.Templates.Paths = []string{" "} }, "templates.paths", false},
		{"suffix without dot", func(c *Config) { c.Templates.Suffix = "tpl" }, "templates.suffix", false},
		{"loop name with dot", func(c *Config) { c.Render.LoopName = "a.b" }, "render.loop_name", false},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce", false},
		{"long debounce warns", func(c *Config) { c.Watch.Debounce = time.Minute }, "watch.debounce", true},
		{"bad ignore pattern", func(c *Config) { c.Watch.Ignore = []string{"["} }, "watch.ignore", false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Templates.Paths = []string{dir}
			tt.mutate(cfg)

			result := Validate(cfg)
			issues := result.Errors
			if tt.warnOnly {
				assert.False(t, result.HasErrors())
				assert.True(t, result.HasWarnings())
				issues = result.Warnings
			}

			require.NotEmpty(t, issues)
			assert.Equal(t, tt.field, issues[0].Field)
			assert.Contains(t, result.String(), tt.field)
			assert.Contains(t, issues[0].Error(), tt.field)
		})
	}
}

func TestFactoryOptions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.tpl"), []byte("  Hello\n  <% name>  "), 0o644))

	cfg := Defaults()
	cfg.Templates.Paths = []string{dir}
	cfg.Render.Whitespace = "trim"

	opts, err := cfg.FactoryOptions(logging.Nop())
	require.NoError(t, err)

	f := template.NewFactory(opts...)
	ctx := f.NewContext()
	ctx.Set("name", "Dan")

	var out strings.Builder
	require.NoError(t, f.Render("hello", ctx, &out))
	assert.Equal(t, "HelloDan", out.String())

	cfg.Render.Whitespace = "bogus"
	_, err = cfg.FactoryOptions(nil)
	assert.Error(t, err)
}

func TestLoggerConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"

	lc, err := cfg.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)

	cfg.Log.Level = "nope"
	_, err = cfg.LoggerConfig()
	assert.Error(t, err)
}
