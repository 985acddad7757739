package traits

import (
	"fmt"
	"math"

	"github.com/baedrik/skulls2/pkg/types"
)

// Dependency listing page sizes.
const (
	DefaultDependencyLimit = 100
	MaxDependencyLimit     = 1000
)

// DependencyEntry is one row of a dependency listing.
type DependencyEntry struct {
	ID         types.LayerID   `json:"id"`
	Correlated []types.LayerID `json:"correlated"`
	// Includes is the transitive closure of layers forced by ID.
	Includes []types.LayerID `json:"includes"`
}

// DependencyPage is a window over the dependency list in insertion order.
type DependencyPage struct {
	Count        uint16            `json:"count"`
	Dependencies []DependencyEntry `json:"dependencies"`
}

// resolveDependency converts a name-based dependency to indices, collapsing
// duplicate correlated members.
func (s *state) resolveDependency(d types.Dependency) (types.StoredDependency, error) {
	id, err := s.resolve(d.ID)
	if err != nil {
		return types.StoredDependency{}, fmt.Errorf("dependency id %s: %w", d.ID, err)
	}
	out := types.StoredDependency{ID: id, Correlated: make([]types.StoredLayerID, 0, len(d.Correlated))}
	for _, c := range d.Correlated {
		cid, err := s.resolve(c)
		if err != nil {
			return types.StoredDependency{}, fmt.Errorf("dependency %s correlated %s: %w", d.ID, c, err)
		}
		if !out.Contains(cid) {
			out.Correlated = append(out.Correlated, cid)
		}
	}
	return out, nil
}

// dropDependency removes the entry at position i, keeping insertion order.
func (s *state) dropDependency(i int) {
	s.dependencies = append(s.dependencies[:i], s.dependencies[i+1:]...)
	s.reindex()
}

// AddDependencies unions each correlated set into the entry for its id,
// creating the entry at the end of the list when absent.
func (r *Registry) AddDependencies(deps []types.Dependency) error {
	return r.mutate("add_dependencies", func(s *state) error {
		return s.addDependencies(deps)
	})
}

func (s *state) addDependencies(deps []types.Dependency) error {
	for _, d := range deps {
		sd, err := s.resolveDependency(d)
		if err != nil {
			return err
		}
		i, ok := s.depIndex[sd.ID]
		if !ok {
			if len(sd.Correlated) == 0 {
				continue
			}
			s.depIndex[sd.ID] = len(s.dependencies)
			s.dependencies = append(s.dependencies, sd)
			continue
		}
		entry := &s.dependencies[i]
		for _, c := range sd.Correlated {
			if !entry.Contains(c) {
				entry.Correlated = append(entry.Correlated, c)
			}
		}
	}
	return nil
}

// RemoveDependencies removes the listed correlated members from each entry.
// An entry left empty is dropped, and an empty correlated list drops the
// whole entry. Removing from an absent entry, or removing an absent member,
// changes nothing.
func (r *Registry) RemoveDependencies(deps []types.Dependency) error {
	return r.mutate("remove_dependencies", func(s *state) error {
		for _, d := range deps {
			sd, err := s.resolveDependency(d)
			if err != nil {
				return err
			}
			i, ok := s.depIndex[sd.ID]
			if !ok {
				continue
			}
			if len(sd.Correlated) == 0 {
				s.dropDependency(i)
				continue
			}
			entry := &s.dependencies[i]
			kept := entry.Correlated[:0]
			for _, c := range entry.Correlated {
				if !sd.Contains(c) {
					kept = append(kept, c)
				}
			}
			entry.Correlated = kept
			if len(kept) == 0 {
				s.dropDependency(i)
			}
		}
		return nil
	})
}

// ModifyDependencies replaces the correlated set of existing entries. An
// empty set drops the entry.
func (r *Registry) ModifyDependencies(deps []types.Dependency) error {
	return r.mutate("modify_dependencies", func(s *state) error {
		for _, d := range deps {
			sd, err := s.resolveDependency(d)
			if err != nil {
				return err
			}
			i, ok := s.depIndex[sd.ID]
			if !ok {
				return fmt.Errorf("dependency %s: %w", d.ID, types.ErrNotFound)
			}
			if len(sd.Correlated) == 0 {
				s.dropDependency(i)
				continue
			}
			s.dependencies[i].Correlated = sd.Correlated
		}
		return nil
	})
}

// includes returns every layer reachable from root through the dependency
// graph, breadth first, excluding root itself. Traversal visits each layer
// at most once and never more than layerCount layers, so cycles terminate.
func (s *state) includes(root types.StoredLayerID) []types.StoredLayerID {
	i, ok := s.depIndex[root]
	if !ok {
		return nil
	}
	bound := s.layerCount()
	visited := map[types.StoredLayerID]bool{root: true}
	queue := append([]types.StoredLayerID(nil), s.dependencies[i].Correlated...)
	var out []types.StoredLayerID
	for len(queue) > 0 && len(out) < bound {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)
		if j, ok := s.depIndex[cur]; ok {
			for _, next := range s.dependencies[j].Correlated {
				if !visited[next] {
					queue = append(queue, next)
				}
			}
		}
	}
	return out
}

// Includes returns the transitive closure of layers forced by id.
func (r *Registry) Includes(id types.StoredLayerID) []types.StoredLayerID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.includes(id)
}

// Dependencies returns a window of the dependency list. A nil startAt begins
// at the first entry; a nil limit uses DefaultDependencyLimit.
func (r *Registry) Dependencies(startAt, limit *uint16) (DependencyPage, error) {
	var page DependencyPage
	err := r.view("dependencies", func(s *state) error {
		total := len(s.dependencies)
		page.Count = uint16(min(total, math.MaxUint16))

		start := 0
		if startAt != nil {
			start = min(int(*startAt), total)
		}
		n := DefaultDependencyLimit
		if limit != nil {
			n = min(int(*limit), MaxDependencyLimit)
		}
		end := min(start+n, total)

		page.Dependencies = make([]DependencyEntry, 0, end-start)
		for _, d := range s.dependencies[start:end] {
			entry, err := s.dependencyEntry(d)
			if err != nil {
				return err
			}
			page.Dependencies = append(page.Dependencies, entry)
		}
		return nil
	})
	return page, err
}

func (s *state) dependencyEntry(d types.StoredDependency) (DependencyEntry, error) {
	id, err := s.display(d.ID)
	if err != nil {
		return DependencyEntry{}, err
	}
	correlated, err := s.displayAll(d.Correlated)
	if err != nil {
		return DependencyEntry{}, err
	}
	includes, err := s.displayAll(s.includes(d.ID))
	if err != nil {
		return DependencyEntry{}, err
	}
	return DependencyEntry{ID: id, Correlated: correlated, Includes: includes}, nil
}
