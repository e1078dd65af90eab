// Package cmd provides the command-line interface for tagtpl.
//
// This package implements the CLI commands using the Cobra framework on top
// of the template engine in pkg/template.
//
// # Available Commands
//
//   - render: Render a named template (or an inline one) with YAML or JSON data
//   - check: Parse templates and report syntax errors with their position
//   - watch: Re-render a template whenever a file under the template roots changes
//   - version: Show build information
//
// # Command Examples
//
//	// Render templates/page.tpl with data from a file
//	tagtpl render page --data page.yml
//
//	// Override single values
//	tagtpl render page --set user.name=Dan --set debug=true
//
//	// Render an inline template
//	tagtpl render -e 'Hello <% name>' --set name=World
//
//	// Check every template under the configured roots
//	tagtpl check --format json
//
//	// Keep out/index.html up to date while editing
//	tagtpl watch index --data site.yml --output out/index.html
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (--templates, --suffix, --whitespace, --log-level)
//  2. Environment variables (TAGTPL_TEMPLATES_SUFFIX, TAGTPL_LOG_LEVEL, ...)
//  3. The configuration file (--config, TAGTPL_CONFIG_FILE or .tagtpl.yml)
//  4. Built-in defaults
package cmd
