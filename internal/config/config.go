// Package config provides configuration management for tagtpl using Viper
// for loading from files, environment variables, and command-line flags.
//
// The configuration system supports YAML files (.tagtpl.yml by default),
// environment variable overrides with the TAGTPL_ prefix, and validation
// with suggestions. It covers where templates are found, how they are
// parsed, how the watcher behaves, and how diagnostics are logged.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/tagtpl/internal/logging"
	"github.com/conneroisu/tagtpl/pkg/template"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "TAGTPL"

// DefaultFile is the configuration file looked up when --config is not set.
const DefaultFile = ".tagtpl.yml"

type Config struct {
	Templates TemplatesConfig `yaml:"templates" mapstructure:"templates"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	Watch     WatchConfig     `yaml:"watch" mapstructure:"watch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type TemplatesConfig struct {
	Paths  []string `yaml:"paths" mapstructure:"paths"`
	Suffix string   `yaml:"suffix" mapstructure:"suffix"`
}

type RenderConfig struct {
	Whitespace string `yaml:"whitespace" mapstructure:"whitespace"`
	LoopName   string `yaml:"loop_name" mapstructure:"loop_name"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
	Ignore   []string      `yaml:"ignore" mapstructure:"ignore"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Dir    string `yaml:"dir" mapstructure:"dir"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Templates: TemplatesConfig{Paths: []string{"templates"}, Suffix: ".tpl"},
		Render:    RenderConfig{Whitespace: "none", LoopName: template.DefaultLoopName},
		Watch:     WatchConfig{Debounce: 100 * time.Millisecond, Ignore: []string{"*.swp", "*~", "*.bak"}},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from the global viper instance, applies
// defaults for unset values and validates the result.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds the configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	// Slices set through flags or env vars arrive as comma separated strings.
	if v.IsSet("templates.paths") && len(config.Templates.Paths) == 0 {
		config.Templates.Paths = v.GetStringSlice("templates.paths")
	}
	if v.IsSet("watch.ignore") && len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = v.GetStringSlice("watch.ignore")
	}

	config.applyDefaults(v)

	if result := Validate(&config); result.HasErrors() {
		return nil, fmt.Errorf("invalid configuration:\n%s", result)
	}

	return &config, nil
}

func (c *Config) applyDefaults(v *viper.Viper) {
	defaults := Defaults()

	if len(c.Templates.Paths) == 0 {
		c.Templates.Paths = defaults.Templates.Paths
	}
	if !v.IsSet("templates.suffix") {
		c.Templates.Suffix = defaults.Templates.Suffix
	}
	if c.Render.Whitespace == "" {
		c.Render.Whitespace = defaults.Render.Whitespace
	}
	if c.Render.LoopName == "" {
		c.Render.LoopName = defaults.Render.LoopName
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = defaults.Watch.Debounce
	}
	if !v.IsSet("watch.ignore") {
		c.Watch.Ignore = defaults.Watch.Ignore
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// FactoryOptions translates the configuration into template factory options.
// logger receives provider diagnostics.
func (c *Config) FactoryOptions(logger template.Logger) ([]template.Option, error) {
	remover, err := template.WhitespaceRemoverByName(c.Render.Whitespace)
	if err != nil {
		return nil, err
	}

	return []template.Option{
		template.WithLogger(logger),
		template.WithWhitespace(remover),
		template.WithLoopName(c.Render.LoopName),
		template.WithFileProvider(c.Templates.Paths, c.Templates.Suffix),
	}, nil
}

// LoggerConfig translates the log section into a logger configuration.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Log.Format
	return lc, nil
}
