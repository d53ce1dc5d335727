// Package cli implements the cabinet command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit code used when a command returns an error.
const exitUserError = 1

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
}

// NewRootCmd creates the top-level "cabinet" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "cabinet",
		Short: "A small web portal for books, tasks and items",
		Long: `Cabinet serves list, detail, add and delete pages for three independent
collections: books, tasks and items. Each collection is kept in memory and
rewritten to its store after every change.`,
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/cabinet)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newListCmd(flags))

	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitUserError)
	}
}

// addStoreFlags registers the flags that select and locate the store.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "store backend: json, jsonl, sqlite or redis (default: json)")
	cmd.Flags().String("data-dir", "", "data directory (default: $(CWD)/.cabinet)")
	cmd.Flags().String("redis-addr", "", "redis address for the redis backend (default: localhost:6379)")
}
