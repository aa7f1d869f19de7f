package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
)

var storeFlags struct {
	fields []string
	dryRun bool
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Record the metadata of every tracked path",
	Long: `Measures every path tracked by git and writes a new store file,
replacing the previous one.

Without --fields the field list of the existing store is reused, or
file,type,mtime when there is none. With --dry-run the store is printed
to stdout instead of being written.`,
	RunE: runStore,
}

func init() {
	storeCmd.Flags().StringSliceVarP(&storeFlags.fields, "fields", "f", nil,
		"Fields to record (comma-separated: mtime,atime,mode,uid,gid,user,group,acl,directory)")
	storeCmd.Flags().BoolVarP(&storeFlags.dryRun, "dry-run", "n", false,
		"Print the store instead of writing it")

	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	fields, err := resolveFields(storeFlags.fields, true)
	if err != nil {
		return err
	}

	res, err := s.engine(cmd, metastore.Options{
		Fields: fields,
		DryRun: storeFlags.dryRun,
	}).Store(ctx)
	if err != nil {
		return err
	}
	printResult(cmd, "stored", s, res)
	return nil
}

// printResult writes the one-line summary of a Store or Update run.
func printResult(cmd *cobra.Command, verb string, s *session, res *metastore.Result) {
	w := cmd.ErrOrStderr()
	switch {
	case res.DryRun:
		_, _ = fmt.Fprintf(w, "gitmeta: %d records (dry run, %s not written)\n", res.Records, s.relStore())
	case !res.Changed:
		_, _ = fmt.Fprintf(w, "gitmeta: %s unchanged (%d records)\n", s.relStore(), res.Records)
	default:
		_, _ = fmt.Fprintf(w, "gitmeta: %s %d records in %s (fields: %s)\n", verb, res.Records, s.relStore(), res.Fields)
	}
}
