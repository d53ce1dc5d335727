package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cabinet/internal/paths"
	"github.com/mesh-intelligence/cabinet/internal/repository"
	"github.com/mesh-intelligence/cabinet/internal/store"
	"github.com/mesh-intelligence/cabinet/pkg/types"
)

func newListCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print a stored collection as JSON",
		Long: `List prints every record of the given collection, in stored order, as
indented JSON.

Valid resources: ` + strings.Join(types.StandardResourceNames, ", ") + `

Example:
  cabinet list books
  cabinet list items --backend sqlite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, flags, args[0])
		},
	}
	addStoreFlags(cmd)
	return cmd
}

func runList(cmd *cobra.Command, flags *rootFlags, resource string) error {
	if !types.IsResource(resource) {
		return fmt.Errorf("unknown resource %q (valid: %s)", resource, strings.Join(types.StandardResourceNames, ", "))
	}

	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(cmd, configDir)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := repository.WithLogger(log.New(cmd.ErrOrStderr(), "cabinet: ", 0))
	switch resource {
	case types.BooksResource:
		return printCollection[types.Book](ctx, out, resource, st, logger)
	case types.TasksResource:
		return printCollection[types.Task](ctx, out, resource, st, logger)
	default:
		return printCollection[types.Item](ctx, out, resource, st, logger)
	}
}

func printCollection[T types.Record](ctx context.Context, out io.Writer, name string, st store.Store, opts ...repository.Option) error {
	records := repository.New[T](ctx, name, st, opts...).List()
	if records == nil {
		records = []T{}
	}
	output, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	fmt.Fprintln(out, string(output))
	return nil
}
