package traits

import (
	"fmt"

	"github.com/baedrik/skulls2/pkg/types"
)

// Transmute applies newLayers to current and returns the resulting
// composition. Every requested layer pulls in the layers it depends on,
// transitively. Two layers of the expanded set that pick different variants
// of one category fail with ErrConflictingDependency; there is no
// precedence between requested and forced layers. Slots the expanded set
// does not touch are copied from current. current is never modified.
func (r *Registry) Transmute(current types.Composition, newLayers []types.LayerID) (types.Composition, error) {
	var out types.Composition
	err := r.view("transmute", func(s *state) error {
		if err := s.validateComposition(current); err != nil {
			return err
		}
		requested := make([]types.StoredLayerID, 0, len(newLayers))
		for _, l := range newLayers {
			id, err := s.resolve(l)
			if err != nil {
				return err
			}
			requested = append(requested, id)
		}

		expanded := s.expand(requested)
		r.obs.Expansion(len(expanded))

		assigned := make(map[uint8]types.StoredLayerID, len(expanded))
		for _, id := range expanded {
			prev, ok := assigned[id.Category]
			if ok && prev.Variant != id.Variant {
				a, _ := s.display(prev)
				b, _ := s.display(id)
				return fmt.Errorf("%w: %s and %s", types.ErrConflictingDependency, a, b)
			}
			assigned[id.Category] = id
		}

		out = current.Clone()
		for cat, id := range assigned {
			out[cat] = id.Variant
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// expand returns seed unioned with everything its members force, to a
// fixpoint. Order is first discovery, seed first. The number of passes is
// bounded by the registry's layer count.
func (s *state) expand(seed []types.StoredLayerID) []types.StoredLayerID {
	seen := make(map[types.StoredLayerID]bool, len(seed))
	var set []types.StoredLayerID
	for _, id := range seed {
		if !seen[id] {
			seen[id] = true
			set = append(set, id)
		}
	}

	bound := s.layerCount()
	frontier := set
	for pass := 0; len(frontier) > 0 && pass < bound; pass++ {
		var next []types.StoredLayerID
		for _, id := range frontier {
			i, ok := s.depIndex[id]
			if !ok {
				continue
			}
			for _, c := range s.dependencies[i].Correlated {
				if !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		set = append(set, next...)
		frontier = next
	}
	return set
}
