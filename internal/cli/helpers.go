// Shared helpers for skulls CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/baedrik/skulls2/internal/logging"
	"github.com/baedrik/skulls2/internal/traits"
	"github.com/baedrik/skulls2/pkg/sqlite"
	"github.com/baedrik/skulls2/pkg/types"
)

// openRegistry builds a registry for the configured backend. With the sqlite
// backend the registry is loaded from and persisted to the data directory;
// the returned func detaches the store. log and obs may be nil.
func (a *app) openRegistry(log *logrus.Logger, obs traits.Observer) (*traits.Registry, func() error, error) {
	if log == nil {
		log = logging.Discard()
	}
	opts := []traits.Option{traits.WithLogger(log)}
	if obs != nil {
		opts = append(opts, traits.WithObserver(obs))
	}

	if a.settings.Backend == types.BackendMemory {
		return traits.New(opts...), func() error { return nil }, nil
	}

	dataDir, err := a.dataDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve data dir: %w", err)
	}
	backend := sqlite.NewBackend()
	if err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}); err != nil {
		return nil, nil, fmt.Errorf("attach backend: %w", err)
	}
	reg, err := traits.Open(append(opts, traits.WithStore(backend))...)
	if err != nil {
		_ = backend.Detach()
		return nil, nil, err
	}
	return reg, backend.Detach, nil
}

// withRegistry opens the registry, runs fn, and detaches the store.
func (a *app) withRegistry(fn func(reg *traits.Registry) error) (err error) {
	reg, closeStore, err := a.openRegistry(nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = fmt.Errorf("detach backend: %w", cerr)
		}
	}()
	return fn(reg)
}

// newLogger builds the logger described by the settings, writing to stderr.
func (a *app) newLogger() (*logrus.Logger, error) {
	return logging.New(os.Stderr, a.settings.LogLevel, a.settings.LogFormat)
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput returns the contents of path, or of stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
