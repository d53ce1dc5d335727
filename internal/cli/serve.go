package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cabinet/internal/metrics"
	"github.com/mesh-intelligence/cabinet/internal/paths"
	"github.com/mesh-intelligence/cabinet/internal/repository"
	"github.com/mesh-intelligence/cabinet/internal/store"
	"github.com/mesh-intelligence/cabinet/internal/web"
	"github.com/mesh-intelligence/cabinet/pkg/types"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cabinet portal over HTTP",
		Long: `Serve loads the books, tasks and items collections from the configured
store and serves the portal until interrupted.

Example:
  cabinet serve
  cabinet serve --addr :9090 --backend sqlite
  CABINET_ID_STRATEGY=max cabinet serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	addStoreFlags(cmd)
	cmd.Flags().String("addr", "", "listen address (default: :8080)")
	cmd.Flags().String("id-strategy", "", "id assignment: last or max (default: last)")
	return cmd
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(cmd, configDir)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := log.New(cmd.ErrOrStderr(), "cabinet: ", log.LstdFlags)
	logger.Printf("backend=%s data_dir=%s id_strategy=%s", cfg.Backend, cfg.DataDir, cfg.IDStrategy)

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	repos := openRepositories(ctx, st,
		repository.WithLogger(logger),
		repository.WithRecorder(m),
		repository.WithIDStrategy(cfg.IDStrategy),
	)

	srv, err := web.NewServer(cfg.Addr, repos, web.WithLogger(logger), web.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	return srv.ListenAndServe(ctx)
}

// openRepositories loads every standard collection from st.
func openRepositories(ctx context.Context, st store.Store, opts ...repository.Option) web.Repositories {
	return web.Repositories{
		Books: repository.New[types.Book](ctx, types.BooksResource, st, opts...),
		Tasks: repository.New[types.Task](ctx, types.TasksResource, st, opts...),
		Items: repository.New[types.Item](ctx, types.ItemsResource, st, opts...),
	}
}
