package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cabinet/internal/paths"
	"github.com/mesh-intelligence/cabinet/internal/store"
	"github.com/mesh-intelligence/cabinet/pkg/types"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize cabinet configuration and storage",
		Long: `Init creates the configuration directory and a default config.yaml if
none exists, then stores an empty collection for every resource that has no
stored data yet. Existing data is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags)
		},
	}
	addStoreFlags(cmd)
	return cmd
}

func runInit(cmd *cobra.Command, flags *rootFlags) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	cfg, err := loadConfig(cmd, configDir)
	if err != nil {
		return err
	}

	configPath := paths.ConfigFile(configDir)
	wrote, err := writeConfigIfMissing(configPath, cfg)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	out := cmd.OutOrStdout()
	if wrote {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	for _, name := range types.StandardResourceNames {
		_, err := st.Load(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNoData) {
			return fmt.Errorf("check %s: %w", name, err)
		}
		if err := st.Save(ctx, name, nil); err != nil {
			return fmt.Errorf("initialize %s: %w", name, err)
		}
		fmt.Fprintf(out, "Created empty %s collection\n", name)
	}

	fmt.Fprintf(out, "Cabinet initialized (%s backend, data in %s)\n", cfg.Backend, cfg.DataDir)
	return nil
}
