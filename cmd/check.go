package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tagtpl/pkg/template"
)

var checkCmd = &cobra.Command{
	Use:     "check [files...]",
	Aliases: []string{"c"},
	Short:   "Parse templates and report syntax errors",
	Long: `Parse template files and report every syntax error with its line and
column. Without arguments every file under the template roots that carries
the configured suffix is checked.

The command exits with a non-zero status when any template fails to parse.

Examples:
  tagtpl check                       # Check all templates
  tagtpl check page.tpl header.tpl   # Check specific files
  tagtpl check --format json         # Machine readable report`,
	RunE: runCheck,
}

var (
	checkFormat  string
	checkVerbose bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text, json, yaml)")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "List templates that parse cleanly too")

	AddFlagValidation(checkCmd, "format", ValidateFormat("text", "json", "yaml"))
}

// CheckResult is the outcome of parsing one template file.
type CheckResult struct {
	File    string `json:"file" yaml:"file"`
	OK      bool   `json:"ok" yaml:"ok"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column  int    `json:"column,omitempty" yaml:"column,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	files := args
	if len(files) == 0 {
		files, err = a.templateFiles(cmd.Context())
		if err != nil {
			return err
		}
	}

	results := make([]CheckResult, 0, len(files))
	failed := 0
	for _, file := range files {
		result := checkFile(a.factory, file)
		if !result.OK {
			failed++
		}
		results = append(results, result)
	}

	if err := writeCheckResults(cmd.OutOrStdout(), checkFormat, results); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed to parse", failed, len(results))
	}
	return nil
}

// checkFile parses file with the factory's settings.
func checkFile(f *template.Factory, file string) CheckResult {
	result := CheckResult{File: file, OK: true}

	_, err := f.ParseFile(file)
	if err == nil {
		return result
	}

	result.OK = false
	result.Message = err.Error()

	var te *template.Error
	if errors.As(err, &te) {
		result.Code = te.Code
		result.Line = te.Line
		result.Column = te.Column
		result.Message = describe(te)
	}
	return result
}

// describe formats a template error without its location.
func describe(e *template.Error) string {
	msg := e.Message
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// templateFiles lists every template under the configured roots, skipping
// hidden directories. Missing roots are skipped with a warning.
func (a *app) templateFiles(ctx context.Context) ([]string, error) {
	suffix := a.cfg.Templates.Suffix

	var files []string
	for _, root := range a.cfg.Templates.Paths {
		if _, err := os.Stat(root); err != nil {
			a.logger.Warn(ctx, err, "Skipping template root", "root", root)
			continue
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if suffix == "" || strings.HasSuffix(path, suffix) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func writeCheckResults(w io.Writer, format string, results []CheckResult) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(results)
	case "text", "":
		failed := 0
		for _, r := range results {
			if r.OK {
				if checkVerbose {
					fmt.Fprintf(w, "ok   %s\n", r.File)
				}
				continue
			}
			failed++
			if r.Line > 0 {
				fmt.Fprintf(w, "%s:%d:%d: %s\n", r.File, r.Line, r.Column, r.Message)
			} else {
				fmt.Fprintf(w, "%s: %s\n", r.File, r.Message)
			}
		}
		fmt.Fprintf(w, "Checked %d templates, %d failed\n", len(results), failed)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}
