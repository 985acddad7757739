package traits

import (
	"fmt"
	"strconv"

	"github.com/baedrik/skulls2/pkg/types"
)

// Unrevealed marks a composition slot whose variant has not been revealed
// yet. It is only meaningful for categories with fewer than 256 variants.
const Unrevealed uint8 = 255

// Attribute names and values appended to every token's trait list.
const (
	UnrevealedValue       = "???"
	NoneDisplayName       = "None"
	TraitUnrevealedCount  = "Unrevealed Trait Categories"
	TraitCount            = "Trait Count"
	TraitCleanRevealCount = "Clean Traits (Nones) Currently Revealed"
)

// TokenAttributes renders a composition as a token's attribute list. Skipped
// categories are omitted. Unrevealed slots show as "???". The list ends with
// the number of unrevealed categories followed by either the count of
// non-"None" traits, when fully revealed, or the count of revealed "None"
// traits otherwise.
func (r *Registry) TokenAttributes(image types.Composition) ([]types.Trait, error) {
	var attrs []types.Trait
	err := r.view("token_metadata", func(s *state) error {
		if len(image) != len(s.categories) {
			return fmt.Errorf("%w: has %d slots, registry has %d categories",
				types.ErrInvalidComposition, len(image), len(s.categories))
		}
		attrs = make([]types.Trait, 0, len(image)+2)
		var shown, revealed, nones int
		for i, v := range image {
			cat := s.categories[i]
			hidden := v == Unrevealed && len(cat.variants) <= int(Unrevealed)
			if !hidden && int(v) >= len(cat.variants) {
				return fmt.Errorf("%w: slot %d (%s) holds %d, category has %d variants",
					types.ErrInvalidComposition, i, cat.name, v, len(cat.variants))
			}
			if cat.skip {
				continue
			}
			shown++
			value := UnrevealedValue
			if !hidden {
				revealed++
				value = cat.variants[v].DisplayName
				if value == NoneDisplayName {
					nones++
				}
			}
			attrs = append(attrs, types.Trait{TraitType: cat.name, Value: value})
		}

		unrevealed := shown - revealed
		attrs = append(attrs, types.Trait{TraitType: TraitUnrevealedCount, Value: strconv.Itoa(unrevealed)})
		if unrevealed == 0 {
			attrs = append(attrs, types.Trait{TraitType: TraitCount, Value: strconv.Itoa(shown - nones)})
		} else {
			attrs = append(attrs, types.Trait{TraitType: TraitCleanRevealCount, Value: strconv.Itoa(nones)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attrs, nil
}
