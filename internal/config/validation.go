package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/tagtpl/internal/logging"
	"github.com/conneroisu/tagtpl/pkg/template"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			fmt.Fprintf(&builder, "  - %s: %s\n", issue.Field, issue.Message)
			for _, suggestion := range issue.Suggestions {
				fmt.Fprintf(&builder, "    hint: %s\n", suggestion)
			}
		}
	}

	write("errors", vr.Errors)
	write("warnings", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// Validate checks a configuration and reports errors and warnings.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateTemplates(&config.Templates, result)
	validateRender(&config.Render, result)
	validateWatch(&config.Watch, result)
	validateLog(&config.Log, result)

	return result
}

func validateTemplates(config *TemplatesConfig, result *ValidationResult) {
	for _, path := range config.Paths {
		if strings.TrimSpace(path) == "" {
			result.addError("templates.paths", path, "empty template path")
			continue
		}
		if strings.ContainsRune(path, 0) {
			result.addError("templates.paths", path, "path contains a NUL byte")
			continue
		}

		info, err := os.Stat(path)
		switch {
		case err != nil:
			result.addWarning("templates.paths", path, "directory does not exist",
				fmt.Sprintf("Create it with: mkdir -p %s", filepath.Clean(path)))
		case !info.IsDir():
			result.addError("templates.paths", path, "not a directory")
		}
	}

	if config.Suffix != "" && !strings.HasPrefix(config.Suffix, ".") {
		result.addError("templates.suffix", config.Suffix, "suffix must start with a dot",
			fmt.Sprintf("Use %q", "."+config.Suffix))
	}
}

func validateRender(config *RenderConfig, result *ValidationResult) {
	if _, err := template.WhitespaceRemoverByName(config.Whitespace); err != nil {
		result.addError("render.whitespace", config.Whitespace, err.Error(),
			"Valid values: none, trim, collapse")
	}

	if config.LoopName != "" && strings.ContainsAny(config.LoopName, " .|<>%'\"") {
		result.addError("render.loop_name", config.LoopName, "loop name must be a plain identifier")
	}
}

func validateWatch(config *WatchConfig, result *ValidationResult) {
	switch {
	case config.Debounce < 0:
		result.addError("watch.debounce", config.Debounce, "debounce must not be negative")
	case config.Debounce > 10*time.Second:
		result.addWarning("watch.debounce", config.Debounce, "long debounce delays make watch feel unresponsive",
			"Values between 50ms and 500ms work well")
	}

	for _, pattern := range config.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.addError("watch.ignore", pattern, fmt.Sprintf("invalid pattern: %v", err))
		}
	}
}

func validateLog(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.addError("log.level", config.Level, err.Error(), "Valid values: debug, info, warn, error")
	}

	switch config.Format {
	case "", "text", "json":
	default:
		result.addError("log.format", config.Format, "unknown log format", "Valid values: text, json")
	}
}
