package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tagtpl/internal/logging"
	"github.com/conneroisu/tagtpl/pkg/template"
)

var renderCmd = &cobra.Command{
	Use:     "render [name]",
	Aliases: []string{"r"},
	Short:   "Render a template with data",
	Long: `Render a template found under the template roots, or an inline template,
and write the result to stdout or a file.

Template names are looked up in each root in order, with the configured
suffix appended: "page" resolves to templates/page.tpl by default.

Examples:
  tagtpl render page                           # Render templates/page.tpl
  tagtpl render page --data page.yml           # Render with YAML or JSON data
  tagtpl render page --set user.name=Dan       # Set a single value
  tagtpl render page -o out/page.html          # Write to a file
  tagtpl render -e 'Hi <% name>' --set name=X  # Render an inline template`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var errTemplateNotFound = &template.Error{Kind: template.KindMissing, Code: template.CodeTemplateNotFound}

var (
	renderData   *DataFlags
	renderInline string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderData = AddDataFlags(renderCmd)
	renderCmd.Flags().StringVarP(&renderInline, "inline", "e", "", "Render this template source instead of a named template")
}

func runRender(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (renderInline == "") {
		return fmt.Errorf("specify either a template name or --inline")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := renderData.Load(cmd.InOrStdin())
	if err != nil {
		return err
	}

	name := "inline"
	if len(args) > 0 {
		name = args[0]
	}

	perf := logging.StartOperation(a.logger, "render")
	result, err := a.render(name, renderInline, data)
	if err != nil {
		perf.EndWithError(cmd.Context(), err)
		return err
	}
	perf.End(cmd.Context())

	return renderData.WriteOutput(cmd.OutOrStdout(), result)
}

// render renders the named template, or src when it is not empty, into a
// string so that a failed render never leaves a partial output file.
func (a *app) render(name, src string, data map[string]any) (string, error) {
	ctx := a.newContext(data)

	var out strings.Builder
	if src != "" {
		t, err := a.factory.ParseString(name, src)
		if err != nil {
			return "", err
		}
		if err := t.Render(ctx, &out); err != nil {
			return "", err
		}
		return out.String(), nil
	}

	if err := a.factory.Render(name, ctx, &out); err != nil {
		if errors.Is(err, errTemplateNotFound) {
			return "", fmt.Errorf("%w (searched %s for %s%s)", err,
				strings.Join(a.cfg.Templates.Paths, ", "), name, a.cfg.Templates.Suffix)
		}
		return "", err
	}
	return out.String(), nil
}
