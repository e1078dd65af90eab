package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tagtpl/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch <name>",
	Aliases: []string{"w"},
	Short:   "Re-render a template whenever its sources change",
	Long: `Render a template once, then watch the template roots and render it again
whenever a template file changes. Changed files are dropped from the
template cache before the next render, so included templates are picked
up as well.

Render failures are reported and watching continues.

Examples:
  tagtpl watch page                          # Print page on every change
  tagtpl watch page -o out/page.html         # Keep out/page.html up to date
  tagtpl watch page --data page.yml -v       # List the files that changed`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchData    *DataFlags
	watchVerbose bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchData = AddDataFlags(watchCmd)
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := watchData.Load(cmd.InOrStdin())
	if err != nil {
		return err
	}

	name := args[0]
	status := cmd.ErrOrStderr()

	rerender := func() error {
		result, err := a.render(name, "", data)
		if err != nil {
			return err
		}
		return watchData.WriteOutput(cmd.OutOrStdout(), result)
	}

	if err := rerender(); err != nil {
		a.logger.Error(cmd.Context(), err, "Initial render failed", "template", name)
	}

	fileWatcher, err := watcher.NewFileWatcher(a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)
	fileWatcher.AddFilter(watcher.SuffixFilter(a.cfg.Templates.Suffix))
	fileWatcher.AddFilter(watcher.IgnoreFilter(a.cfg.Watch.Ignore))

	fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, event := range events {
			a.factory.Invalidate(event.Path)
			if watchVerbose {
				fmt.Fprintf(status, "   %s: %s\n", event.Type, event.Path)
			}
		}
		fmt.Fprintf(status, "%d file(s) changed, rendering %s\n", len(events), name)

		if err := rerender(); err != nil {
			a.logger.Error(context.Background(), err, "Render failed", "template", name)
		}
		return nil
	})

	for _, root := range a.cfg.Templates.Paths {
		if err := fileWatcher.AddRecursive(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintf(status, "Watching %d directories. Press Ctrl+C to stop.\n", len(fileWatcher.WatchList()))
	<-ctx.Done()
	fmt.Fprintln(status, "Stopping watcher")

	return nil
}
