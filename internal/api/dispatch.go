package api

import (
	"fmt"

	"github.com/baedrik/skulls2/internal/traits"
	"github.com/baedrik/skulls2/pkg/types"
)

// StatusSuccess is the status reported by execute answers that carry no
// other data.
const StatusSuccess = "success"

// Answer is a response body tagged with its operation key, e.g.
// {"add_categories": {"count": 3}}.
type Answer map[string]any

type statusAnswer struct {
	Status string `json:"status"`
}

type countAnswer struct {
	Count int `json:"count"`
}

type transmuteAnswer struct {
	Composition types.Composition `json:"composition"`
}

type tokenMetadataAnswer struct {
	Attributes []types.Trait `json:"attributes"`
}

type metadataAnswer struct {
	Metadata types.CommonMetadata `json:"metadata"`
}

func tagged(op interface{ Key() string }, body any) Answer {
	return Answer{op.Key(): body}
}

// Execute applies a mutating operation to reg.
func Execute(reg *traits.Registry, op ExecuteOp) (Answer, error) {
	ok := statusAnswer{Status: StatusSuccess}
	switch o := op.(type) {
	case AddCategories:
		n, err := reg.AddCategories(o.Categories)
		if err != nil {
			return nil, err
		}
		return tagged(o, countAnswer{Count: n}), nil
	case AddVariants:
		if err := reg.AddVariants(o.CategoryName, o.Variants); err != nil {
			return nil, err
		}
		return tagged(o, ok), nil
	case ModifyCategory:
		if err := reg.ModifyCategory(o.Name, o.NewName, o.NewSkip); err != nil {
			return nil, err
		}
		return tagged(o, ok), nil
	case ModifyVariants:
		if err := reg.ModifyVariants(o.Category, o.Modifications); err != nil {
			return nil, err
		}
		return tagged(o, ok), nil
	case AddDependencies:
		if err := reg.AddDependencies(o.Dependencies); err != nil {
			return nil, err
		}
		return tagged(o, ok), nil
	case RemoveDependencies:
		if err := reg.RemoveDependencies(o.Dependencies); err != nil {
			return nil, err
		}
		return tagged(o, ok), nil
	case ModifyDependencies:
		if err := reg.ModifyDependencies(o.Dependencies); err != nil {
			return nil, err
		}
		return tagged(o, ok), nil
	case SetSkullTypeLayers:
		if err := reg.SetSkullTypeLayers(types.SkullTypeLayers{Cyclops: o.Cyclops, Jawless: o.Jawless}); err != nil {
			return nil, err
		}
		return tagged(o, ok), nil
	case SetMetadata:
		if err := reg.SetMetadata(types.CommonMetadata{Public: o.Public, Private: o.Private}); err != nil {
			return nil, err
		}
		return tagged(o, metadataAnswer{Metadata: reg.Metadata()}), nil
	default:
		return nil, fmt.Errorf("unhandled execute operation %T: %w", op, types.ErrInvalidRequest)
	}
}

// Query answers a read-only operation against reg.
func Query(reg *traits.Registry, op QueryOp) (Answer, error) {
	switch o := op.(type) {
	case StateQuery:
		return tagged(o, reg.State()), nil
	case CategoryQuery:
		page, err := reg.Category(traits.CategoryQuery(o))
		if err != nil {
			return nil, err
		}
		return tagged(o, page), nil
	case VariantQuery:
		page, err := reg.Variant(traits.VariantQuery(o))
		if err != nil {
			return nil, err
		}
		return tagged(o, page), nil
	case DependenciesQuery:
		page, err := reg.Dependencies(o.StartAt, o.Limit)
		if err != nil {
			return nil, err
		}
		return tagged(o, page), nil
	case TransmuteQuery:
		c, err := reg.Transmute(o.Current, o.NewLayers)
		if err != nil {
			return nil, err
		}
		return tagged(o, transmuteAnswer{Composition: c}), nil
	case SkullTypeQuery:
		st, err := reg.SkullType(o.Composition)
		if err != nil {
			return nil, err
		}
		return tagged(o, st), nil
	case SkullTypeLayerIDsQuery:
		layers, err := reg.SkullTypeLayers()
		if err != nil {
			return nil, err
		}
		return tagged(o, layers), nil
	case ServeBulkExportQuery:
		return tagged(o, reg.ServeBulkExport()), nil
	case TokenMetadataQuery:
		attrs, err := reg.TokenAttributes(o.Image)
		if err != nil {
			return nil, err
		}
		return tagged(o, tokenMetadataAnswer{Attributes: attrs}), nil
	case CommonMetadataQuery:
		return tagged(o, metadataAnswer{Metadata: reg.Metadata()}), nil
	default:
		return nil, fmt.Errorf("unhandled query %T: %w", op, types.ErrInvalidRequest)
	}
}
