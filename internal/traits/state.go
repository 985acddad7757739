package traits

import (
	"fmt"

	"github.com/baedrik/skulls2/pkg/types"
)

// category is the in-memory form of a trait category. Variants are stored by
// index; variantIndex is derived from them.
type category struct {
	name         string
	skip         bool
	variants     []types.VariantInfo
	variantIndex map[string]uint8
}

// state is the whole registry. It is never mutated in place once published:
// mutations work on a clone and swap it in on success.
type state struct {
	categories    []*category
	categoryIndex map[string]uint8

	// dependencies is kept in insertion order; depIndex maps an id to its
	// position.
	dependencies []types.StoredDependency
	depIndex     map[types.StoredLayerID]int

	skullTypeLayers *types.SkullTypeLayers
	metadata        types.CommonMetadata
}

func newState() *state {
	return &state{
		categoryIndex: make(map[string]uint8),
		depIndex:      make(map[types.StoredLayerID]int),
	}
}

// clone returns a deep copy of s.
func (s *state) clone() *state {
	out := &state{
		categories:   make([]*category, len(s.categories)),
		dependencies: make([]types.StoredDependency, len(s.dependencies)),
	}
	for i, c := range s.categories {
		out.categories[i] = &category{
			name:     c.name,
			skip:     c.skip,
			variants: append([]types.VariantInfo(nil), c.variants...),
		}
	}
	for i, d := range s.dependencies {
		out.dependencies[i] = d.Clone()
	}
	if s.skullTypeLayers != nil {
		l := *s.skullTypeLayers
		out.skullTypeLayers = &l
	}
	out.metadata = types.CommonMetadata{
		Public:  cloneDocument(s.metadata.Public),
		Private: cloneDocument(s.metadata.Private),
	}
	out.reindex()
	return out
}

// reindex rebuilds every name and dependency lookup from the index-keyed
// storage.
func (s *state) reindex() {
	s.categoryIndex = make(map[string]uint8, len(s.categories))
	for i, c := range s.categories {
		s.categoryIndex[c.name] = uint8(i)
		c.variantIndex = make(map[string]uint8, len(c.variants))
		for j, v := range c.variants {
			c.variantIndex[v.Name] = uint8(j)
		}
	}
	s.depIndex = make(map[types.StoredLayerID]int, len(s.dependencies))
	for i, d := range s.dependencies {
		s.depIndex[d.ID] = i
	}
}

// layerCount is the total number of (category, variant) pairs. It bounds
// every dependency expansion.
func (s *state) layerCount() int {
	n := 0
	for _, c := range s.categories {
		n += len(c.variants)
	}
	return n
}

// lookupCategory resolves a category name.
func (s *state) lookupCategory(name string) (uint8, *category, error) {
	idx, ok := s.categoryIndex[name]
	if !ok {
		return 0, nil, fmt.Errorf("category %q: %w", name, types.ErrNotFound)
	}
	return idx, s.categories[idx], nil
}

// resolve converts a name-based layer reference to indices.
func (s *state) resolve(id types.LayerID) (types.StoredLayerID, error) {
	catIdx, cat, err := s.lookupCategory(id.Category)
	if err != nil {
		return types.StoredLayerID{}, err
	}
	varIdx, ok := cat.variantIndex[id.Variant]
	if !ok {
		return types.StoredLayerID{}, fmt.Errorf("category %q has no variant %q: %w", id.Category, id.Variant, types.ErrNotFound)
	}
	return types.StoredLayerID{Category: catIdx, Variant: varIdx}, nil
}

// display converts an index-based layer reference to names.
func (s *state) display(id types.StoredLayerID) (types.LayerID, error) {
	if int(id.Category) >= len(s.categories) {
		return types.LayerID{}, fmt.Errorf("category index %d: %w", id.Category, types.ErrNotFound)
	}
	cat := s.categories[id.Category]
	if int(id.Variant) >= len(cat.variants) {
		return types.LayerID{}, fmt.Errorf("category %q variant index %d: %w", cat.name, id.Variant, types.ErrNotFound)
	}
	return types.LayerID{Category: cat.name, Variant: cat.variants[id.Variant].Name}, nil
}

// displayAll converts a list of index-based references to names.
func (s *state) displayAll(ids []types.StoredLayerID) ([]types.LayerID, error) {
	out := make([]types.LayerID, 0, len(ids))
	for _, id := range ids {
		l, err := s.display(id)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// exists reports whether id references a registered layer.
func (s *state) exists(id types.StoredLayerID) bool {
	return int(id.Category) < len(s.categories) &&
		int(id.Variant) < len(s.categories[id.Category].variants)
}

// validateComposition checks that c has one in-range slot per category.
func (s *state) validateComposition(c types.Composition) error {
	if len(c) != len(s.categories) {
		return fmt.Errorf("%w: has %d slots, registry has %d categories",
			types.ErrInvalidComposition, len(c), len(s.categories))
	}
	for i, v := range c {
		if int(v) >= len(s.categories[i].variants) {
			return fmt.Errorf("%w: slot %d (%s) holds %d, category has %d variants",
				types.ErrInvalidComposition, i, s.categories[i].name, v, len(s.categories[i].variants))
		}
	}
	return nil
}

func cloneDocument(d types.Document) types.Document {
	if d == nil {
		return nil
	}
	out := make(types.Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
