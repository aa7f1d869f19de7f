package cli

import (
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
)

var updateFlags struct {
	fields []string
	dryRun bool
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the store for staged changes",
	Long: `Rewrites the store so that the paths added, modified or deleted in
the index are re-measured, copying every other record unchanged.

Update keeps the fields of the existing store; use 'gitmeta store' to
change them. It is meant to run from a pre-commit hook:

  gitmeta update && git add .git_store_meta`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringSliceVarP(&updateFlags.fields, "fields", "f", nil,
		"Not allowed: update keeps the fields of the existing store")
	updateCmd.Flags().BoolVarP(&updateFlags.dryRun, "dry-run", "n", false,
		"Print the store instead of writing it")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	// Explicit fields are passed through so the engine can reject them.
	fields, err := resolveFields(updateFlags.fields, false)
	if err != nil {
		return err
	}

	res, err := s.engine(cmd, metastore.Options{
		Fields: fields,
		DryRun: updateFlags.dryRun,
	}).Update(ctx)
	if err != nil {
		return err
	}
	printResult(cmd, "updated", s, res)
	return nil
}
