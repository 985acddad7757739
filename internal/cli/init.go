package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize skulls configuration and storage",
		Long:  "Create the configuration directory with a default config.yaml, then create\nthe data directory and database for the configured backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a)
		},
	}
}

func runInit(cmd *cobra.Command, a *app) error {
	configDir, err := a.configDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	dataDir, err := a.dataDir()
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	s := a.settings
	if a.flags.dataDir != "" {
		s.DataDir = dataDir
	}
	wrote, err := writeConfigIfMissing(configDir, s)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Attaching creates the data directory and schema.
	reg, closeStore, err := a.openRegistry(nil, nil)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	count := reg.CategoryCount()
	if err := closeStore(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return writeJSON(out, map[string]any{
			"config_dir":     configDir,
			"config_written": wrote,
			"data_dir":       dataDir,
			"backend":        a.settings.Backend,
			"category_count": count,
		})
	}
	fmt.Fprintln(out, "skulls initialized successfully")
	fmt.Fprintln(out, "  config: ", configDir)
	fmt.Fprintln(out, "  data:   ", dataDir)
	fmt.Fprintln(out, "  backend:", a.settings.Backend)
	return nil
}
