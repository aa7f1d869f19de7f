// Package cli implements the gitmeta command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
	"github.com/albertocavalcante/gitmeta/internal/log"
	"github.com/albertocavalcante/gitmeta/pkg/config"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
	target    string
}

// cfg is the layered configuration, loaded before any command runs.
var cfg = config.NewConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitmeta",
	Short: "Store and restore file metadata alongside a git repository",
	Long: `Gitmeta keeps the metadata git does not track (modification and access
times, permission bits, ownership, ACLs) in a plain text file committed next
to the code, and restores it after a checkout.

  gitmeta store    record every tracked path
  gitmeta update   refresh the records of staged changes
  gitmeta apply    restore recorded metadata onto the working tree`,
	SilenceUsage:      true,
	PersistentPreRunE: initSession,
	// Default behavior: show help
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "gitmeta %s (%s) store schema %s\n",
			Version, GitCommit, metastore.SchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.target, "target", "t", "",
		"Store file to use (default from config, then "+metastore.DefaultStoreFile+")")
}

// initSession loads the configuration and applies it to the logger.
// Flags given on the command line win over configured values.
func initSession(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	verbosity := globalFlags.verbosity
	if !cmd.Flags().Changed("verbosity") && cfg.Log.Verbosity != nil {
		verbosity = *cfg.Log.Verbosity
	}
	format := globalFlags.logFormat
	if !cmd.Flags().Changed("log-format") && cfg.Log.Format != "" {
		format = cfg.Log.Format
	}
	log.InitWithWriter(verbosity, format, cmd.ErrOrStderr())
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
