// Read-only inspection commands. Each one prints a table, or the query
// answer as JSON with --json.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/baedrik/skulls2/internal/traits"
	"github.com/baedrik/skulls2/pkg/types"
)

// parseComposition parses a comma-separated list of variant indices.
func parseComposition(s string) (types.Composition, error) {
	if strings.TrimSpace(s) == "" {
		return types.Composition{}, nil
	}
	parts := strings.Split(s, ",")
	c := make(types.Composition, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d: %v", types.ErrInvalidComposition, i, err)
		}
		c[i] = uint8(v)
	}
	return c, nil
}

// parseLayer parses "category/variant".
func parseLayer(s string) (types.LayerID, error) {
	cat, variant, ok := strings.Cut(s, "/")
	if !ok || cat == "" || variant == "" {
		return types.LayerID{}, fmt.Errorf("%w: layer %q must be category/variant", errUsage, s)
	}
	return types.LayerID{Category: cat, Variant: variant}, nil
}

// parseStoredLayer parses "category:variant" indices.
func parseStoredLayer(s string) (types.StoredLayerID, error) {
	cs, vs, ok := strings.Cut(s, ":")
	if !ok {
		return types.StoredLayerID{}, fmt.Errorf("%w: layer %q must be category:variant", errUsage, s)
	}
	c, err := strconv.ParseUint(cs, 10, 8)
	if err != nil {
		return types.StoredLayerID{}, fmt.Errorf("%w: layer %q: %v", errUsage, s, err)
	}
	v, err := strconv.ParseUint(vs, 10, 8)
	if err != nil {
		return types.StoredLayerID{}, fmt.Errorf("%w: layer %q: %v", errUsage, s, err)
	}
	return types.StoredLayerID{Category: uint8(c), Variant: uint8(v)}, nil
}

func joinLayers(ids []types.LayerID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func newCategoryCmd(a *app) *cobra.Command {
	var (
		index   int
		startAt int
		limit   int
		art     bool
	)
	cmd := &cobra.Command{
		Use:   "category [name]",
		Short: "Show a category and a page of its variants",
		Long: `Category shows a category's metadata and a window of its variants with the
layers each one forces. With neither a name nor --index, category 0 is shown.

Example:
  skulls category eyes
  skulls category --index 3 --start-at 30 --limit 30`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q traits.CategoryQuery
			if len(args) == 1 {
				q.Name = &args[0]
			}
			if cmd.Flags().Changed("index") {
				if index < 0 || index > 255 {
					return fmt.Errorf("%w: --index %d out of range", errUsage, index)
				}
				idx := uint8(index)
				q.Index = &idx
			}
			if cmd.Flags().Changed("start-at") {
				if startAt < 0 || startAt > 255 {
					return fmt.Errorf("%w: --start-at %d out of range", errUsage, startAt)
				}
				s := uint8(startAt)
				q.StartAt = &s
			}
			if cmd.Flags().Changed("limit") {
				q.Limit = &limit
			}
			q.IncludeArt = art

			return a.withRegistry(func(reg *traits.Registry) error {
				page, err := reg.Category(q)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), page)
				}
				return printCategory(cmd.OutOrStdout(), page)
			})
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "select the category by index")
	cmd.Flags().IntVar(&startAt, "start-at", 0, "first variant index to show")
	cmd.Flags().IntVar(&limit, "limit", traits.DefaultCatalogLimit, "maximum number of variants to show")
	cmd.Flags().BoolVar(&art, "art", false, "include variant art")
	return cmd
}

func printCategory(out io.Writer, page traits.CategoryPage) error {
	fmt.Fprintf(out, "category %d/%d: %s (skip=%t, %d variants)\n",
		page.Index, page.CategoryCount, page.Name, page.Skip, page.VariantCount)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tDISPLAY\tINCLUDES")
	fmt.Fprintln(w, "-----\t----\t-------\t--------")
	for _, v := range page.Variants {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.Index, v.VariantInfo.Name, v.VariantInfo.DisplayName, joinLayers(v.Includes))
	}
	return w.Flush()
}

func newVariantCmd(a *app) *cobra.Command {
	var (
		byIndex string
		art     bool
	)
	cmd := &cobra.Command{
		Use:   "variant [category/variant]",
		Short: "Show a single variant",
		Long: `Variant shows one variant, selected by name or by index.

Example:
  skulls variant eyes/cyclops
  skulls variant --index 1:1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := traits.VariantQuery{IncludeArt: art}
			if len(args) == 1 {
				id, err := parseLayer(args[0])
				if err != nil {
					return err
				}
				q.ByName = &id
			}
			if byIndex != "" {
				id, err := parseStoredLayer(byIndex)
				if err != nil {
					return err
				}
				q.ByIndex = &id
			}

			return a.withRegistry(func(reg *traits.Registry) error {
				page, err := reg.Variant(q)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), page)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "layer:    %d:%d\n", page.CategoryIndex, page.Info.Index)
				fmt.Fprintf(out, "name:     %s\n", page.Info.VariantInfo.Name)
				fmt.Fprintf(out, "display:  %s\n", page.Info.VariantInfo.DisplayName)
				fmt.Fprintf(out, "includes: %s\n", joinLayers(page.Info.Includes))
				if page.Info.VariantInfo.Art != nil {
					fmt.Fprintf(out, "art:      %d bytes\n", len(*page.Info.VariantInfo.Art))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&byIndex, "index", "", "select the variant by category:variant index")
	cmd.Flags().BoolVar(&art, "art", false, "include variant art")
	return cmd
}

func newDependenciesCmd(a *app) *cobra.Command {
	var startAt, limit uint16
	cmd := &cobra.Command{
		Use:   "dependencies",
		Short: "List layer dependencies in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var startPtr, limitPtr *uint16
			if cmd.Flags().Changed("start-at") {
				startPtr = &startAt
			}
			if cmd.Flags().Changed("limit") {
				limitPtr = &limit
			}
			return a.withRegistry(func(reg *traits.Registry) error {
				page, err := reg.Dependencies(startPtr, limitPtr)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), page)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d dependencies\n", page.Count)
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "LAYER\tCORRELATED\tINCLUDES")
				fmt.Fprintln(w, "-----\t----------\t--------")
				for _, d := range page.Dependencies {
					fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, joinLayers(d.Correlated), joinLayers(d.Includes))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().Uint16Var(&startAt, "start-at", 0, "first dependency position to show")
	cmd.Flags().Uint16Var(&limit, "limit", traits.DefaultDependencyLimit, "maximum number of dependencies to show")
	return cmd
}

func newTransmuteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transmute <composition> <category/variant>...",
		Short: "Apply new layers to a composition",
		Long: `Transmute applies the named layers, and every layer they force, to a
comma-separated composition and prints the result. Nothing is stored.

Example:
  skulls transmute 0,0,3 eyes/cyclops`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := parseComposition(args[0])
			if err != nil {
				return err
			}
			layers := make([]types.LayerID, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := parseLayer(arg)
				if err != nil {
					return err
				}
				layers = append(layers, id)
			}

			return a.withRegistry(func(reg *traits.Registry) error {
				next, err := reg.Transmute(current, layers)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), map[string]types.Composition{"composition": next})
				}
				parts := make([]string, len(next))
				for i, v := range next {
					parts[i] = strconv.Itoa(int(v))
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, ","))
				return nil
			})
		},
	}
}

func newSkullTypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "skull-type <composition>",
		Short: "Classify a composition as cyclops and/or jawless",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseComposition(args[0])
			if err != nil {
				return err
			}
			return a.withRegistry(func(reg *traits.Registry) error {
				st, err := reg.SkullType(c)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cyclops: %t\njawless: %t\n", st.IsCyclops, st.IsJawless)
				return nil
			})
		},
	}
}
