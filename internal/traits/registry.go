// Package traits is the trait registry and composition engine: categories and
// their variants, the dependency graph between layers, transmutation of
// existing compositions, skull-type classification, and the read-only catalog
// views built on top of them.
//
// All state lives in a Registry. Mutations are transactional: each one runs
// against a private copy of the state, is persisted through the optional
// types.Store, and only then replaces the published state. A rejected
// mutation leaves nothing behind.
package traits

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/baedrik/skulls2/internal/logging"
	"github.com/baedrik/skulls2/pkg/types"
)

// Observer receives operation outcomes. *metrics.Metrics implements it.
type Observer interface {
	Operation(op string, err error)
	Expansion(layers int)
}

type nopObserver struct{}

func (nopObserver) Operation(string, error) {}
func (nopObserver) Expansion(int)           {}

// Registry owns the trait state. It is safe for concurrent use; mutations
// are serialized.
type Registry struct {
	mu    sync.RWMutex
	st    *state
	store types.Store
	log   *logrus.Logger
	obs   Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore persists every committed mutation through store. The store must
// already be attached.
func WithStore(store types.Store) Option {
	return func(r *Registry) { r.store = store }
}

// WithLogger sets the logger used for mutation records.
func WithLogger(log *logrus.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithObserver sets the receiver of operation outcomes.
func WithObserver(obs Observer) Option {
	return func(r *Registry) { r.obs = obs }
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		st:  newState(),
		log: logging.Discard(),
		obs: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns a Registry initialized from the snapshot held by its store.
// Without WithStore it behaves like New.
func Open(opts ...Option) (*Registry, error) {
	r := New(opts...)
	if r.store == nil {
		return r, nil
	}
	snap, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	st, err := stateFromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	r.st = st
	r.log.WithFields(logrus.Fields{
		"categories":   len(st.categories),
		"dependencies": len(st.dependencies),
	}).Info("registry loaded")
	return r, nil
}

// mutate runs fn against a copy of the current state and publishes the copy
// if fn succeeds and the store accepts it.
func (r *Registry) mutate(op string, fn func(s *state) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.st.clone()
	err := fn(next)
	if err == nil {
		next.reindex()
		if r.store != nil {
			if serr := r.store.Save(next.snapshot()); serr != nil {
				err = fmt.Errorf("persist: %w", serr)
			}
		}
	}
	r.obs.Operation(op, err)
	if err != nil {
		r.log.WithField("op", op).WithError(err).Debug("mutation rejected")
		return fmt.Errorf("%s: %w", op, err)
	}

	r.st = next
	r.log.WithFields(logrus.Fields{
		"op":           op,
		"categories":   len(next.categories),
		"dependencies": len(next.dependencies),
	}).Info("mutation committed")
	return nil
}

// view runs fn against the published state under the read lock.
func (r *Registry) view(op string, fn func(s *state) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	err := fn(r.st)
	r.obs.Operation(op, err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AddCategories appends new categories, each with its initial variants, and
// returns the resulting category count.
func (r *Registry) AddCategories(infos []types.CategoryInfo) (int, error) {
	var count int
	err := r.mutate("add_categories", func(s *state) error {
		if err := s.addCategories(infos); err != nil {
			return err
		}
		count = len(s.categories)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *state) addCategories(infos []types.CategoryInfo) error {
	for _, info := range infos {
		if info.Name == "" {
			return fmt.Errorf("category name: %w", types.ErrInvalidName)
		}
		if _, ok := s.categoryIndex[info.Name]; ok {
			return fmt.Errorf("category %q: %w", info.Name, types.ErrDuplicate)
		}
		if len(s.categories) >= types.MaxCategories {
			return fmt.Errorf("category %q: at most %d categories: %w", info.Name, types.MaxCategories, types.ErrOverflow)
		}
		cat := &category{
			name:         info.Name,
			skip:         info.Skip,
			variantIndex: make(map[string]uint8),
		}
		if err := cat.addVariants(info.Variants); err != nil {
			return err
		}
		s.categoryIndex[info.Name] = uint8(len(s.categories))
		s.categories = append(s.categories, cat)
	}
	return nil
}

// AddVariants appends variants to an existing category.
func (r *Registry) AddVariants(categoryName string, variants []types.VariantInfo) error {
	return r.mutate("add_variants", func(s *state) error {
		_, cat, err := s.lookupCategory(categoryName)
		if err != nil {
			return err
		}
		return cat.addVariants(variants)
	})
}

// addVariants appends variants in order, keeping variantIndex current so
// collisions inside the batch are caught.
func (c *category) addVariants(variants []types.VariantInfo) error {
	for _, v := range variants {
		if v.Name == "" {
			return fmt.Errorf("category %q variant name: %w", c.name, types.ErrInvalidName)
		}
		if _, ok := c.variantIndex[v.Name]; ok {
			return fmt.Errorf("category %q variant %q: %w", c.name, v.Name, types.ErrDuplicate)
		}
		if len(c.variants) >= types.MaxVariants {
			return fmt.Errorf("category %q variant %q: at most %d variants: %w", c.name, v.Name, types.MaxVariants, types.ErrOverflow)
		}
		c.variantIndex[v.Name] = uint8(len(c.variants))
		c.variants = append(c.variants, v)
	}
	return nil
}

// ModifyCategory renames a category and/or changes its skip flag. Nil
// arguments leave the corresponding field unchanged.
func (r *Registry) ModifyCategory(name string, newName *string, newSkip *bool) error {
	return r.mutate("modify_category", func(s *state) error {
		idx, cat, err := s.lookupCategory(name)
		if err != nil {
			return err
		}
		if newName != nil && *newName != name {
			if *newName == "" {
				return fmt.Errorf("category name: %w", types.ErrInvalidName)
			}
			if _, ok := s.categoryIndex[*newName]; ok {
				return fmt.Errorf("category %q: %w", *newName, types.ErrDuplicate)
			}
			delete(s.categoryIndex, name)
			s.categoryIndex[*newName] = idx
			cat.name = *newName
		}
		if newSkip != nil {
			cat.skip = *newSkip
		}
		return nil
	})
}

// ModifyVariants replaces the display data, and optionally the name, of
// variants in one category. Modifications apply in order.
func (r *Registry) ModifyVariants(categoryName string, mods []types.VariantModification) error {
	return r.mutate("modify_variants", func(s *state) error {
		_, cat, err := s.lookupCategory(categoryName)
		if err != nil {
			return err
		}
		for _, m := range mods {
			idx, ok := cat.variantIndex[m.Name]
			if !ok {
				return fmt.Errorf("category %q has no variant %q: %w", cat.name, m.Name, types.ErrNotFound)
			}
			newName := m.ModifiedVariant.Name
			if newName != m.Name {
				if newName == "" {
					return fmt.Errorf("category %q variant name: %w", cat.name, types.ErrInvalidName)
				}
				if _, ok := cat.variantIndex[newName]; ok {
					return fmt.Errorf("category %q variant %q: %w", cat.name, newName, types.ErrDuplicate)
				}
				delete(cat.variantIndex, m.Name)
				cat.variantIndex[newName] = idx
			}
			cat.variants[idx] = m.ModifiedVariant
		}
		return nil
	})
}

// Resolve converts a name-based layer reference to indices.
func (r *Registry) Resolve(id types.LayerID) (types.StoredLayerID, error) {
	var out types.StoredLayerID
	err := r.view("resolve", func(s *state) error {
		var err error
		out, err = s.resolve(id)
		return err
	})
	return out, err
}

// Display converts an index-based layer reference to names.
func (r *Registry) Display(id types.StoredLayerID) (types.LayerID, error) {
	var out types.LayerID
	err := r.view("display", func(s *state) error {
		var err error
		out, err = s.display(id)
		return err
	})
	return out, err
}

// StateInfo summarizes the registry: how many categories exist and which are
// skipped when rolling.
type StateInfo struct {
	CategoryCount int      `json:"category_count"`
	Skip          []string `json:"skip"`
}

// State returns the category count and the names of skipped categories in
// index order.
func (r *Registry) State() StateInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := StateInfo{CategoryCount: len(r.st.categories), Skip: []string{}}
	for _, c := range r.st.categories {
		if c.skip {
			info.Skip = append(info.Skip, c.name)
		}
	}
	return info
}

// CategoryCount returns the number of registered categories, which is also
// the length of every well-formed composition.
func (r *Registry) CategoryCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.st.categories)
}

// SetMetadata replaces the halves of the common metadata that are provided.
// An empty document clears its half.
func (r *Registry) SetMetadata(meta types.CommonMetadata) error {
	return r.mutate("set_metadata", func(s *state) error {
		if meta.Public != nil {
			s.metadata.Public = emptyToNil(meta.Public)
		}
		if meta.Private != nil {
			s.metadata.Private = emptyToNil(meta.Private)
		}
		return nil
	})
}

// Metadata returns the common metadata.
func (r *Registry) Metadata() types.CommonMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return types.CommonMetadata{
		Public:  cloneDocument(r.st.metadata.Public),
		Private: cloneDocument(r.st.metadata.Private),
	}
}

func emptyToNil(d types.Document) types.Document {
	if len(d) == 0 {
		return nil
	}
	return cloneDocument(d)
}
