// Package cli implements the skulls command-line interface: configuration
// and data directory setup, the HTTP server, snapshot import and export, and
// direct access to the registry's execute and query messages.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baedrik/skulls2/internal/paths"
	"github.com/baedrik/skulls2/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state shared by the commands of one root command.
type app struct {
	flags    rootFlags
	settings settings
}

// NewRootCmd creates the top-level "skulls" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "skulls",
		Short: "Trait registry and composition engine for generative NFT collections",
		Long: "skulls manages the trait categories, variants and layer dependencies of a\n" +
			"generative collection, and transmutes existing compositions against them.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := a.configDir()
			if err != nil {
				return err
			}
			s, err := loadSettings(configDir)
			if err != nil {
				return err
			}
			a.settings = s
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: .skulls-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newExecuteCmd(a))
	root.AddCommand(newQueryCmd(a))
	root.AddCommand(newCategoryCmd(a))
	root.AddCommand(newVariantCmd(a))
	root.AddCommand(newDependenciesCmd(a))
	root.AddCommand(newTransmuteCmd(a))
	root.AddCommand(newSkullTypeCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "skulls:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode classifies err: registry rejections and bad input are user
// errors, everything else is a system error.
func exitCode(err error) int {
	for _, user := range []error{
		types.ErrNotFound,
		types.ErrDuplicate,
		types.ErrOverflow,
		types.ErrInvalidComposition,
		types.ErrConflictingDependency,
		types.ErrInvalidName,
		types.ErrInvalidRequest,
		types.ErrInvalidData,
		types.ErrBackendUnknown,
		errUsage,
	} {
		if errors.Is(err, user) {
			return exitUserError
		}
	}
	return exitSysError
}

// errUsage marks command-line mistakes cobra does not catch itself.
var errUsage = errors.New("usage")

// configDir returns the config directory: flag > SKULLS_CONFIG_DIR > default.
func (a *app) configDir() (string, error) {
	return paths.ResolveConfigDir(a.flags.configDir)
}

// dataDir returns the data directory: flag > config > SKULLS_DATA_DIR > default.
func (a *app) dataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.settings.DataDir)
}
