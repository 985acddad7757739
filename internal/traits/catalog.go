package traits

import (
	"fmt"

	"github.com/baedrik/skulls2/pkg/types"
)

// Catalog page sizes. Pages that carry art are smaller by default.
const (
	DefaultCatalogLimit    = 30
	DefaultCatalogArtLimit = 5
	MaxCatalogLimit        = 100
)

// CategoryQuery selects a category by name or index (index 0 when neither
// is set) and a window of its variants.
type CategoryQuery struct {
	Name       *string `json:"name,omitempty"`
	Index      *uint8  `json:"index,omitempty"`
	StartAt    *uint8  `json:"start_at,omitempty"`
	Limit      *int    `json:"limit,omitempty"`
	IncludeArt bool    `json:"include_art,omitempty"`
}

// CategoryPage is a category's metadata plus a window of its variants.
type CategoryPage struct {
	CategoryCount int                     `json:"category_count"`
	Index         uint8                   `json:"index"`
	Name          string                  `json:"name"`
	Skip          bool                    `json:"skip"`
	VariantCount  int                     `json:"variant_count"`
	Variants      []types.VariantInfoPlus `json:"variants"`
}

// VariantQuery selects one variant by name or by index.
type VariantQuery struct {
	ByName     *types.LayerID       `json:"by_name,omitempty"`
	ByIndex    *types.StoredLayerID `json:"by_index,omitempty"`
	IncludeArt bool                 `json:"include_art,omitempty"`
}

// VariantPage is a single catalog entry and the index of its category.
type VariantPage struct {
	CategoryIndex uint8                 `json:"category_index"`
	Info          types.VariantInfoPlus `json:"info"`
}

// Category returns a page of the selected category. start_at is clamped to
// the last variant; limit is clamped to MaxCatalogLimit and a non-positive
// limit yields no entries.
func (r *Registry) Category(q CategoryQuery) (CategoryPage, error) {
	var page CategoryPage
	err := r.view("category", func(s *state) error {
		var (
			idx uint8
			cat *category
		)
		switch {
		case q.Name != nil:
			var err error
			if idx, cat, err = s.lookupCategory(*q.Name); err != nil {
				return err
			}
		default:
			if q.Index != nil {
				idx = *q.Index
			}
			if int(idx) >= len(s.categories) {
				return fmt.Errorf("category index %d: %w", idx, types.ErrNotFound)
			}
			cat = s.categories[idx]
		}

		count := len(cat.variants)
		start := 0
		if q.StartAt != nil && count > 0 {
			start = min(int(*q.StartAt), count-1)
		}
		limit := DefaultCatalogLimit
		if q.IncludeArt {
			limit = DefaultCatalogArtLimit
		}
		if q.Limit != nil {
			limit = min(max(*q.Limit, 0), MaxCatalogLimit)
		}
		end := min(start+limit, count)

		page = CategoryPage{
			CategoryCount: len(s.categories),
			Index:         idx,
			Name:          cat.name,
			Skip:          cat.skip,
			VariantCount:  count,
			Variants:      make([]types.VariantInfoPlus, 0, end-start),
		}
		for v := start; v < end; v++ {
			entry, err := s.variantEntry(types.StoredLayerID{Category: idx, Variant: uint8(v)}, q.IncludeArt)
			if err != nil {
				return err
			}
			page.Variants = append(page.Variants, entry)
		}
		return nil
	})
	return page, err
}

// Variant returns one catalog entry. ErrInvalidRequest when the query names
// no variant.
func (r *Registry) Variant(q VariantQuery) (VariantPage, error) {
	var page VariantPage
	err := r.view("variant", func(s *state) error {
		var id types.StoredLayerID
		switch {
		case q.ByName != nil:
			var err error
			if id, err = s.resolve(*q.ByName); err != nil {
				return err
			}
		case q.ByIndex != nil:
			id = *q.ByIndex
		default:
			return fmt.Errorf("variant query needs by_name or by_index: %w", types.ErrInvalidRequest)
		}
		entry, err := s.variantEntry(id, q.IncludeArt)
		if err != nil {
			return err
		}
		page = VariantPage{CategoryIndex: id.Category, Info: entry}
		return nil
	})
	return page, err
}

func (s *state) variantEntry(id types.StoredLayerID, includeArt bool) (types.VariantInfoPlus, error) {
	if !s.exists(id) {
		return types.VariantInfoPlus{}, fmt.Errorf("layer %s: %w", id, types.ErrNotFound)
	}
	info := s.categories[id.Category].variants[id.Variant]
	if !includeArt {
		info.Art = nil
	}
	includes, err := s.displayAll(s.includes(id))
	if err != nil {
		return types.VariantInfoPlus{}, err
	}
	return types.VariantInfoPlus{Index: id.Variant, VariantInfo: info, Includes: includes}, nil
}
