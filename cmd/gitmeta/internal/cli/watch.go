package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/watch"
)

var watchFlags struct {
	debounce int
	verbose  bool
	json     bool
	noColor  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Update the store whenever the git index changes",
	Long: `Watches the git index and runs 'gitmeta update' after every burst of
staging activity, so the store always matches what the next commit
will contain.

Example output:

  $ gitmeta watch

  gitmeta: watching /path/to/repo/.git/index
  gitmeta: store /path/to/repo/.git_store_meta
  gitmeta: ready

  [14:32:16] ✓ store updated (1,247 records)

Press Ctrl+C to stop watching.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", 0,
		"Debounce window in milliseconds (default from config, then 500)")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show every index event")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")
	watchCmd.Flags().BoolVar(&watchFlags.noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	// Setup signal handling for graceful shutdown
	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	// Same preconditions as update, checked once up front.
	if err := metastore.ReadHeader(s.store).Check(metastore.UpdateVersions); err != nil {
		return err
	}
	index, err := s.repo.IndexPath(ctx)
	if err != nil {
		return err
	}

	debounce := watchFlags.debounce
	if !cmd.Flags().Changed("debounce") {
		debounce = cfg.Watch.Debounce
	}

	w, err := watch.New(watch.Config{
		IndexPath: index,
		StorePath: s.store,
		Debounce:  debounce,
		Writer:    cmd.OutOrStdout(),
		Verbose:   watchFlags.verbose,
		NoColor:   watchFlags.noColor,
		JSON:      watchFlags.json,
		Update: func(ctx context.Context) (*metastore.Result, error) {
			return s.engine(cmd, metastore.Options{}).Update(ctx)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	// Run watch loop
	return w.Run(ctx)
}
