package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the cabinet release, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/cabinet/internal/cli.Version=...".
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cabinet version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "cabinet", Version)
		},
	}
}
