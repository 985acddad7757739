package traits

import (
	"fmt"

	"github.com/baedrik/skulls2/pkg/types"
)

// BulkExport is the index-based dump of the registry for high-volume
// consumers that resolve names themselves.
type BulkExport struct {
	CategoryNames []string                 `json:"category_names"`
	Dependencies  []types.StoredDependency `json:"dependencies"`
	Skip          types.Indices            `json:"skip"`
}

// ServeBulkExport returns category names in index order, every dependency in
// insertion order, and the indices of skipped categories.
func (r *Registry) ServeBulkExport() BulkExport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := BulkExport{
		CategoryNames: make([]string, 0, len(r.st.categories)),
		Dependencies:  make([]types.StoredDependency, 0, len(r.st.dependencies)),
		Skip:          types.Indices{},
	}
	for i, c := range r.st.categories {
		out.CategoryNames = append(out.CategoryNames, c.name)
		if c.skip {
			out.Skip = append(out.Skip, uint8(i))
		}
	}
	for _, d := range r.st.dependencies {
		out.Dependencies = append(out.Dependencies, d.Clone())
	}
	return out
}

// Snapshot returns a deep copy of the full registry state.
func (r *Registry) Snapshot() *types.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.snapshot()
}

// Restore replaces the registry state with snap after validating it. The
// new state is persisted like any other mutation.
func (r *Registry) Restore(snap *types.Snapshot) error {
	restored, err := stateFromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return r.mutate("restore", func(s *state) error {
		*s = *restored
		return nil
	})
}

// ApplySeed adds the seed's categories and dependencies and sets its
// sentinels and metadata, all in one transaction.
func (r *Registry) ApplySeed(seed *types.Seed) error {
	return r.mutate("apply_seed", func(s *state) error {
		if err := s.addCategories(seed.Categories); err != nil {
			return err
		}
		if err := s.addDependencies(seed.Dependencies); err != nil {
			return err
		}
		if seed.SkullTypeLayers != nil {
			l := *seed.SkullTypeLayers
			s.skullTypeLayers = &l
		}
		if seed.Metadata != nil {
			s.metadata = types.CommonMetadata{
				Public:  emptyToNil(seed.Metadata.Public),
				Private: emptyToNil(seed.Metadata.Private),
			}
		}
		return nil
	})
}

func (s *state) snapshot() *types.Snapshot {
	snap := &types.Snapshot{
		Categories:   make([]types.CategoryRecord, 0, len(s.categories)),
		Dependencies: make([]types.StoredDependency, 0, len(s.dependencies)),
	}
	for _, c := range s.categories {
		snap.Categories = append(snap.Categories, types.CategoryRecord{
			Name:     c.name,
			Skip:     c.skip,
			Variants: append([]types.VariantInfo{}, c.variants...),
		})
	}
	for _, d := range s.dependencies {
		snap.Dependencies = append(snap.Dependencies, d.Clone())
	}
	if s.skullTypeLayers != nil {
		l := *s.skullTypeLayers
		snap.SkullTypeLayers = &l
	}
	if s.metadata.Public != nil || s.metadata.Private != nil {
		snap.Metadata = &types.CommonMetadata{
			Public:  cloneDocument(s.metadata.Public),
			Private: cloneDocument(s.metadata.Private),
		}
	}
	return snap
}

// stateFromSnapshot rebuilds a state and checks every registry invariant:
// caps, unique non-empty names, and resolvable dependency references.
func stateFromSnapshot(snap *types.Snapshot) (*state, error) {
	s := newState()
	if snap == nil {
		return s, nil
	}
	if len(snap.Categories) > types.MaxCategories {
		return nil, fmt.Errorf("%d categories: %w", len(snap.Categories), types.ErrOverflow)
	}
	for _, rec := range snap.Categories {
		if err := s.addCategories([]types.CategoryInfo{{Name: rec.Name, Skip: rec.Skip, Variants: rec.Variants}}); err != nil {
			return nil, err
		}
	}
	for _, d := range snap.Dependencies {
		if !s.exists(d.ID) {
			return nil, fmt.Errorf("dependency id %s: %w", d.ID, types.ErrNotFound)
		}
		if _, dup := s.depIndex[d.ID]; dup {
			return nil, fmt.Errorf("dependency id %s: %w", d.ID, types.ErrDuplicate)
		}
		sd := types.StoredDependency{ID: d.ID}
		for _, c := range d.Correlated {
			if !s.exists(c) {
				return nil, fmt.Errorf("dependency %s correlated %s: %w", d.ID, c, types.ErrNotFound)
			}
			if !sd.Contains(c) {
				sd.Correlated = append(sd.Correlated, c)
			}
		}
		if len(sd.Correlated) == 0 {
			continue
		}
		s.depIndex[d.ID] = len(s.dependencies)
		s.dependencies = append(s.dependencies, sd)
	}
	if snap.SkullTypeLayers != nil {
		l := *snap.SkullTypeLayers
		s.skullTypeLayers = &l
	}
	if snap.Metadata != nil {
		s.metadata = types.CommonMetadata{
			Public:  cloneDocument(snap.Metadata.Public),
			Private: cloneDocument(snap.Metadata.Private),
		}
	}
	return s, nil
}
