//go:build property

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/viper"
)

// TestConfigurationProperties tests configuration loading and validation properties
func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: known whitespace names and log levels always load
	properties.Property("known enumerations load", prop.ForAll(
		func(ws, level, format string, debounceMs int) bool {
			v := viper.New()
			v.Set("templates.paths", []string{t.TempDir()})
			v.Set("render.whitespace", ws)
			v.Set("log.level", level)
			v.Set("log.format", format)
			v.Set("watch.debounce", time.Duration(debounceMs)*time.Millisecond)

			cfg, err := LoadFrom(v)
			return err == nil && cfg.Render.Whitespace == ws && cfg.Log.Level == level
		},
		gen.OneConstOf("none", "trim", "collapse", "TRIM"),
		gen.OneConstOf("debug", "info", "warn", "error"),
		gen.OneConstOf("text", "json"),
		gen.IntRange(1, 5000),
	))

	// Property: suffixes are valid exactly when they start with a dot
	properties.Property("suffix validation", prop.ForAll(
		func(suffix string) bool {
			cfg := Defaults()
			cfg.Templates.Paths = nil
			cfg.Templates.Suffix = suffix

			result := Validate(cfg)
			wantErr := suffix != "" && !strings.HasPrefix(suffix, ".")
			return result.HasErrors() == wantErr
		},
		gen.AnyString(),
	))

	// Property: validation never reports errors for the defaults plus any
	// existing directory
	properties.Property("defaults are valid", prop.ForAll(
		func(n int) bool {
			cfg := Defaults()
			cfg.Templates.Paths = make([]string, n)
			for i := range cfg.Templates.Paths {
				cfg.Templates.Paths[i] = t.TempDir()
			}
			return !Validate(cfg).HasErrors()
		},
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
