package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tagtpl/internal/config"
	"github.com/conneroisu/tagtpl/internal/logging"
	"github.com/conneroisu/tagtpl/pkg/template"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tagtpl",
	Short: "Render tag templates from the command line",
	Long: `tagtpl renders text templates written with <% ... > tags.

A tag starting with a space is a data reference, optionally piped through
filters:

  Hello <% user.name|default value=Anonymous|upper>!

Any other tag is a keyword or a plugin:

  <%foreach items item><% item><%foreachelse>empty<%/foreach>
  <%if user.admin>admin<%else>user<%/if>
  <%include header title=page.title>

Quick Start:
  tagtpl render page --data page.yml    Render templates/page.tpl
  tagtpl check                          Check every template for syntax errors
  tagtpl watch page -o out/page.html    Re-render on every change

Command Aliases (for faster typing):
  render (r), check (c), watch (w)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .tagtpl.yml, can also use TAGTPL_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	flags.StringSliceP("templates", "t", nil, "template root directories, searched in order")
	flags.String("suffix", "", "file suffix appended to template names (default .tpl)")
	flags.StringP("whitespace", "w", "", "whitespace handling for literal text (none, trim, collapse)")

	AddFlagValidation(rootCmd, "whitespace", ValidateWhitespace)
	AddFlagValidation(rootCmd, "log-level", ValidateLogLevel)
}

// flagBindings maps persistent flags to configuration keys.
var flagBindings = map[string]string{
	"log-level":  "log.level",
	"templates":  "templates.paths",
	"suffix":     "templates.suffix",
	"whitespace": "render.whitespace",
}

// initConfig initializes the configuration system with support for multiple config sources.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. TAGTPL_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .tagtpl.yml in current directory
//
// Every configuration key can be overridden with a TAGTPL_ environment
// variable, e.g. TAGTPL_RENDER_WHITESPACE=trim.
func initConfig() {
	SetViperBindings(rootCmd, flagBindings)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TAGTPL_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(config.DefaultFile, ".yml"))
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing or malformed file falls back to defaults; config.Load
	// reports values that do not validate.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	}
}

// app bundles what every command needs: the validated configuration, a
// logger and a template factory wired to the configured roots.
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	factory *template.Factory
	closers []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, err
	}
	lc.Output = cmd.ErrOrStderr()

	a := &app{cfg: cfg}
	if cfg.Log.Dir != "" {
		fileLogger, err := logging.NewFileLogger(lc, cfg.Log.Dir)
		if err != nil {
			return nil, err
		}
		a.logger = fileLogger
		a.closers = append(a.closers, fileLogger.Close)
	} else {
		a.logger = logging.NewLogger(lc)
	}

	opts, err := cfg.FactoryOptions(a.logger.WithComponent("template"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.factory = template.NewFactory(opts...)

	a.logger.Debug(cmd.Context(), "configuration loaded",
		"templates", cfg.Templates.Paths,
		"suffix", cfg.Templates.Suffix,
		"whitespace", cfg.Render.Whitespace)

	return a, nil
}

// newContext returns a render context holding data.
func (a *app) newContext(data map[string]any) *template.Context {
	ctx := a.factory.NewContext()
	for name, value := range data {
		ctx.Set(name, value)
	}
	return ctx
}

// Close releases resources held by the app, such as the log file.
func (a *app) Close() {
	for _, closer := range a.closers {
		_ = closer()
	}
	a.closers = nil
}
