package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tagtpl/internal/logging"
	"github.com/conneroisu/tagtpl/pkg/template"
)

// DataFlags describes the data a template is rendered with.
type DataFlags struct {
	DataFile string   `flag:"data,d" desc:"YAML or JSON data file, - for stdin"`
	Sets     []string `flag:"set" desc:"Set a value (key=value, dotted keys nest)"`
	Output   string   `flag:"output,o" desc:"Write the result to a file instead of stdout"`
}

// AddDataFlags adds the data and output flags to a command
func AddDataFlags(cmd *cobra.Command) *DataFlags {
	flags := &DataFlags{}

	cmd.Flags().StringVarP(&flags.DataFile, "data", "d", "", "YAML or JSON data file, - for stdin")
	cmd.Flags().StringArrayVar(&flags.Sets, "set", nil, "Set a value (key=value, dotted keys nest, values are YAML scalars)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Write the result to a file instead of stdout")

	AddFlagValidation(cmd, "data", func(filename string) error {
		if filename == "-" {
			return nil
		}
		return ValidateFileExists(filename)
	})

	return flags
}

// Load reads the data file, if any, and applies --set assignments on top.
func (f *DataFlags) Load(stdin io.Reader) (map[string]any, error) {
	data := make(map[string]any)

	if f.DataFile != "" {
		var (
			raw []byte
			err error
		)
		if f.DataFile == "-" {
			raw, err = io.ReadAll(stdin)
		} else {
			raw, err = os.ReadFile(f.DataFile)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read data file %s: %w", f.DataFile, err)
		}

		// JSON is a subset of YAML, one decoder serves both.
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("invalid data in %s: %w", f.DataFile, err)
		}
		if data == nil {
			data = make(map[string]any)
		}
	}

	for _, assignment := range f.Sets {
		if err := applyAssignment(data, assignment); err != nil {
			return nil, err
		}
	}

	return data, nil
}

// WriteOutput writes a rendered result to the output file, or to w when
// no file is set.
func (f *DataFlags) WriteOutput(w io.Writer, result string) error {
	if f.Output == "" {
		_, err := io.WriteString(w, result)
		return err
	}
	if err := os.WriteFile(f.Output, []byte(result), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Output, err)
	}
	return nil
}

// applyAssignment stores key=value in data, creating nested maps for
// dotted keys. Numbers and booleans keep their type; anything YAML would
// read as a map or a list is stored as the raw string.
func applyAssignment(data map[string]any, assignment string) error {
	if err := ValidateAssignment(assignment); err != nil {
		return err
	}
	key, raw, _ := strings.Cut(assignment, "=")

	var value any = raw
	var decoded any
	if raw != "" && yaml.Unmarshal([]byte(raw), &decoded) == nil && isScalar(decoded) {
		value = decoded
	}

	path := strings.Split(key, ".")
	target := data
	for _, segment := range path[:len(path)-1] {
		next, ok := target[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			target[segment] = next
		}
		target = next
	}
	target[path[len(path)-1]] = value

	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, map[string]any, map[any]any, []any:
		return false
	}
	return true
}

// SetViperBindings binds flags to viper configuration keys
func SetViperBindings(cmd *cobra.Command, bindings map[string]string) {
	for flagName, configKey := range bindings {
		flag := cmd.PersistentFlags().Lookup(flagName)
		if flag == nil {
			flag = cmd.Flags().Lookup(flagName)
		}
		if flag != nil {
			_ = viper.BindPFlag(configKey, flag)
		}
	}
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.PersistentFlags().Lookup(flagName)
	if flag == nil {
		flag = cmd.Flags().Lookup(flagName)
	}
	if flag == nil {
		return
	}

	// Store original value setter
	originalSet := flag.Value.Set

	// Create wrapper that validates
	flag.Value = &validatingValue{
		Value:       flag.Value,
		validator:   validator,
		originalSet: originalSet,
	}
}

type validatingValue struct {
	pflag.Value
	validator   func(string) error
	originalSet func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.originalSet(val)
}

// File existence validation helper
func ValidateFileExists(filename string) error {
	if filename == "" {
		return nil // Empty is valid for optional files
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	return nil
}

// ValidateWhitespace checks a whitespace remover name
func ValidateWhitespace(name string) error {
	_, err := template.WhitespaceRemoverByName(name)
	return err
}

// ValidateLogLevel checks a log level name
func ValidateLogLevel(level string) error {
	_, err := logging.ParseLevel(level)
	return err
}

// ValidateAssignment checks a --set argument
func ValidateAssignment(assignment string) error {
	key, _, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("invalid assignment %q, expected key=value", assignment)
	}
	if key == "" || slices.Contains(strings.Split(key, "."), "") {
		return fmt.Errorf("invalid key in assignment %q", assignment)
	}
	return nil
}

// ValidateFormat returns a validator accepting one of formats
func ValidateFormat(formats ...string) func(string) error {
	return func(format string) error {
		if slices.Contains(formats, format) {
			return nil
		}
		return fmt.Errorf("invalid output format %s, must be one of: %s",
			format, strings.Join(formats, ", "))
	}
}
