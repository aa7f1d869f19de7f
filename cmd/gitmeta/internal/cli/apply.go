package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
)

var applyFlags struct {
	fields  []string
	dryRun  bool
	verbose bool
	force   bool
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Restore recorded metadata onto the working tree",
	Long: `Reads the store and sets the recorded attributes on every path it
lists. Attributes that already match are left alone, so running apply
twice changes nothing the second time.

Problems with single paths (a missing file, a permission error, an
unknown user) are reported as warnings and do not fail the command.
Apply refuses to run on a working tree with uncommitted changes unless
--force is given. Use it from post-checkout and post-merge hooks:

  gitmeta apply --fields mtime`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringSliceVarP(&applyFlags.fields, "fields", "f", nil,
		"Restore only these fields (default: every field in the store)")
	applyCmd.Flags().BoolVarP(&applyFlags.dryRun, "dry-run", "n", false,
		"Report what would change without changing anything")
	applyCmd.Flags().BoolVar(&applyFlags.verbose, "verbose", false,
		"Report every attribute as it is set")
	applyCmd.Flags().BoolVar(&applyFlags.force, "force", false,
		"Apply even when the working tree has uncommitted changes")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	fields, err := resolveFields(applyFlags.fields, true)
	if err != nil {
		return err
	}

	res, err := s.engine(cmd, metastore.Options{
		Fields:  fields,
		DryRun:  applyFlags.dryRun,
		Verbose: applyFlags.verbose,
		Force:   applyFlags.force || cfg.ForceApply(),
	}).Apply(ctx)
	if err != nil {
		return err
	}

	w := cmd.ErrOrStderr()
	if res.Missing {
		_, _ = fmt.Fprintf(w, "gitmeta: no store at %s, nothing to apply\n", s.relStore())
		return nil
	}
	verb := "applied"
	if res.DryRun {
		verb = "would apply"
	}
	_, _ = fmt.Fprintf(w, "gitmeta: %s %d changes from %d records (%d skipped, %d warnings)\n",
		verb, res.Changes, res.Records, res.Skipped, res.Warnings)
	return nil
}
