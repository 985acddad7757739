package traits

import (
	"fmt"

	"github.com/baedrik/skulls2/pkg/types"
)

// SetSkullTypeLayers designates the sentinel layers used by SkullType. The
// sentinels are index-based and may name a category that is not registered
// yet; such a sentinel never matches until the category exists.
func (r *Registry) SetSkullTypeLayers(layers types.SkullTypeLayers) error {
	return r.mutate("set_skull_type_layers", func(s *state) error {
		l := layers
		s.skullTypeLayers = &l
		return nil
	})
}

// SkullTypeLayers returns the sentinel layers, or ErrNotFound if none have
// been set.
func (r *Registry) SkullTypeLayers() (types.SkullTypeLayers, error) {
	var out types.SkullTypeLayers
	err := r.view("skull_type_layer_ids", func(s *state) error {
		if s.skullTypeLayers == nil {
			return fmt.Errorf("skull type layers: %w", types.ErrNotFound)
		}
		out = *s.skullTypeLayers
		return nil
	})
	return out, err
}

// SkullType classifies a composition against the sentinel layers.
func (r *Registry) SkullType(c types.Composition) (types.SkullType, error) {
	var out types.SkullType
	err := r.view("skull_type", func(s *state) error {
		if err := s.validateComposition(c); err != nil {
			return err
		}
		if s.skullTypeLayers == nil {
			return fmt.Errorf("skull type layers: %w", types.ErrNotFound)
		}
		out = types.SkullType{
			IsCyclops: occupies(c, s.skullTypeLayers.Cyclops),
			IsJawless: occupies(c, s.skullTypeLayers.Jawless),
		}
		return nil
	})
	return out, err
}

// occupies reports whether c holds id's variant in id's category slot.
func occupies(c types.Composition, id types.StoredLayerID) bool {
	return int(id.Category) < len(c) && c[id.Category] == id.Variant
}
