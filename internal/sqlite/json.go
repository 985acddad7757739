// JSON record structures for the JSONL snapshot format.
package sqlite

import "github.com/baedrik/skulls2/pkg/types"

// Record kinds. Each JSONL line carries exactly one.
const (
	kindCategory        = "category"
	kindDependency      = "dependency"
	kindSkullTypeLayers = "skull_type_layers"
	kindMetadata        = "metadata"
)

// recordJSON is one line of a snapshot export. Kind selects which of the
// remaining fields are populated.
type recordJSON struct {
	Kind string `json:"kind"`

	// category
	Index    *int                `json:"index,omitempty"`
	Name     string              `json:"name,omitempty"`
	Skip     bool                `json:"skip,omitempty"`
	Variants []types.VariantInfo `json:"variants,omitempty"`

	// dependency
	ID         *types.StoredLayerID  `json:"id,omitempty"`
	Correlated []types.StoredLayerID `json:"correlated,omitempty"`

	// skull_type_layers
	SkullTypeLayers *types.SkullTypeLayers `json:"skull_type_layers,omitempty"`

	// metadata
	Metadata *types.CommonMetadata `json:"metadata,omitempty"`
}
