// Package internal contains the supporting packages of the tagtpl CLI.
//
// These packages follow Go's internal package convention and are not
// importable by other modules. The template engine itself lives in
// pkg/template and depends on none of them.
//
// # Package Organization
//
//   - config: Viper based configuration with validation and suggestions
//   - logging: Structured logging on log/slog with file output and timing
//   - version: Build information from -ldflags and the module build info
//   - watcher: File system monitoring with debouncing for watch mode
//
// # Inter-Package Communication
//
// config translates its sections into template factory options and logger
// configuration; the cmd package wires the result together. The logging
// Logger satisfies the logger interface of the template providers, so
// template load failures end up in the same log as everything else.
package internal
