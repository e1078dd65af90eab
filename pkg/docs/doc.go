// Package docs describes tagtpl, a tag based text template engine with a
// command-line front end.
//
// Templates are plain text with tags opened by "<%" and closed by ">". A tag
// whose body starts with whitespace is a data reference, any other tag is a
// keyword (foreach, if, include, ...) or a plugin. References resolve through
// a hierarchy of contexts and may be piped through filters.
//
// # Key Features
//
//   - Hierarchical contexts: merged contexts, parents and temporary children
//   - Accessors: member lookup chosen by runtime type, with reflection fallback
//   - Filters and plugins: registered per context, inherited by children
//   - Providers: templates loaded from directories, embedded file systems or
//     context values, cached by modification time
//   - Diagnostics: every parse and render error carries the template name,
//     line and column of the offending tag
//
// # Quick Start
//
//	// Render templates/page.tpl with data
//	tagtpl render page --data page.yml
//
//	// Check every template for syntax errors
//	tagtpl check
//
//	// Re-render whenever a template changes
//	tagtpl watch page --output out/page.html
//
// # Architecture
//
//   - Template Engine (pkg/template/): parser, parts, contexts, filters, providers
//   - CLI Commands (cmd/): Cobra-based command interface
//   - Configuration (internal/config/): Viper-based configuration management
//   - Logging (internal/logging/): slog based structured logging
//   - File Watcher (internal/watcher/): fsnotify monitoring with debouncing
//
// # Configuration
//
// tagtpl supports configuration through multiple sources:
//
//   - Configuration file (.tagtpl.yml)
//   - Environment variables (TAGTPL_*)
//   - Command-line flags
//
// Example configuration:
//
//	templates:
//	  paths:
//	    - "./templates"
//	    - "./partials"
//	  suffix: ".tpl"
//
//	render:
//	  whitespace: trim
//	  loop_name: loop
//
//	watch:
//	  debounce: 100ms
//	  ignore:
//	    - "*.swp"
//
//	log:
//	  level: info
//	  format: text
//
// # Testing
//
// Unit tests use testify. Property based tests use gopter and run with the
// property build tag:
//
//	go test -tags property ./...
//
// For more information, see the individual package documentation.
package docs
