package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/baedrik/skulls2/internal/traits"
	"github.com/baedrik/skulls2/pkg/sqlite"
	"github.com/baedrik/skulls2/pkg/types"
)

// Snapshot and seed file formats.
const (
	formatJSONL = "jsonl"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

// formatFor picks a file format from an explicit flag or the extension.
func formatFor(path, flag string) (string, error) {
	f := strings.ToLower(flag)
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jsonl":
			f = formatJSONL
		case ".yaml", ".yml":
			f = formatYAML
		case ".json":
			f = formatJSON
		default:
			return "", fmt.Errorf("%w: cannot infer format of %q, pass --format", errUsage, path)
		}
	}
	switch f {
	case formatJSONL, formatYAML, formatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", errUsage, flag)
}

func newImportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a seed or snapshot into the registry",
		Long: `Import reads a file into the registry in a single transaction.

A .yaml or .json file is a name-addressed seed (categories, dependencies,
skull_type_layers, metadata) added on top of the current registry.
A .jsonl file is a full snapshot written by export; it replaces the registry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatFor(args[0], format)
			if err != nil {
				return err
			}
			return a.withRegistry(func(reg *traits.Registry) error {
				if err := importFile(reg, args[0], f); err != nil {
					return err
				}
				st := reg.State()
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d categories\n", args[0], st.CategoryCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "file format: jsonl, yaml or json (default: from extension)")
	return cmd
}

func importFile(reg *traits.Registry, path, format string) error {
	if format == formatJSONL {
		snap, err := sqlite.ImportJSONL(path)
		if err != nil {
			return err
		}
		return reg.Restore(snap)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	seed, err := decodeSeed(data, format)
	if err != nil {
		return err
	}
	return reg.ApplySeed(seed)
}

// decodeSeed parses a YAML or JSON seed. Unknown fields are rejected.
func decodeSeed(data []byte, format string) (*types.Seed, error) {
	var seed types.Seed
	switch format {
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&seed); err != nil {
			return nil, fmt.Errorf("%w: decode seed: %v", types.ErrInvalidData, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&seed); err != nil {
			return nil, fmt.Errorf("%w: decode seed: %v", types.ErrInvalidData, err)
		}
	}
	return &seed, nil
}

func newExportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the registry to a file",
		Long: `Export writes the registry to a file.

jsonl writes a full snapshot that import restores exactly. yaml and json
write a name-addressed seed that import can apply to an empty registry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatFor(args[0], format)
			if err != nil {
				return err
			}
			return a.withRegistry(func(reg *traits.Registry) error {
				if err := exportFile(reg, args[0], f); err != nil {
					return err
				}
				if !a.flags.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "file format: jsonl, yaml or json (default: from extension)")
	return cmd
}

func exportFile(reg *traits.Registry, path, format string) error {
	snap := reg.Snapshot()
	if format == formatJSONL {
		return sqlite.ExportJSONL(path, snap)
	}

	seed, err := seedFromSnapshot(snap)
	if err != nil {
		return err
	}
	var data []byte
	if format == formatJSON {
		data, err = json.MarshalIndent(seed, "", "  ")
	} else {
		data, err = yaml.Marshal(seed)
	}
	if err != nil {
		return fmt.Errorf("marshal seed: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// seedFromSnapshot converts an index-addressed snapshot into a seed by
// resolving every dependency reference to names.
func seedFromSnapshot(snap *types.Snapshot) (*types.Seed, error) {
	name := func(id types.StoredLayerID) (types.LayerID, error) {
		if int(id.Category) >= len(snap.Categories) {
			return types.LayerID{}, fmt.Errorf("%w: dangling layer %s", types.ErrInvalidData, id)
		}
		cat := snap.Categories[id.Category]
		if int(id.Variant) >= len(cat.Variants) {
			return types.LayerID{}, fmt.Errorf("%w: dangling layer %s", types.ErrInvalidData, id)
		}
		return types.LayerID{Category: cat.Name, Variant: cat.Variants[id.Variant].Name}, nil
	}

	seed := &types.Seed{
		Categories:      make([]types.CategoryInfo, 0, len(snap.Categories)),
		Dependencies:    make([]types.Dependency, 0, len(snap.Dependencies)),
		SkullTypeLayers: snap.SkullTypeLayers,
		Metadata:        snap.Metadata,
	}
	for _, c := range snap.Categories {
		seed.Categories = append(seed.Categories, types.CategoryInfo{Name: c.Name, Skip: c.Skip, Variants: c.Variants})
	}
	for _, d := range snap.Dependencies {
		id, err := name(d.ID)
		if err != nil {
			return nil, err
		}
		dep := types.Dependency{ID: id, Correlated: make([]types.LayerID, 0, len(d.Correlated))}
		for _, c := range d.Correlated {
			l, err := name(c)
			if err != nil {
				return nil, err
			}
			dep.Correlated = append(dep.Correlated, l)
		}
		seed.Dependencies = append(seed.Dependencies, dep)
	}
	return seed, nil
}
