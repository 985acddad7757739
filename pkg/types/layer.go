package types

import "fmt"

// Index capacities. Category and variant indices are single bytes, so each
// list holds at most 256 entries.
const (
	MaxCategories = 256
	MaxVariants   = 256
)

// LayerID identifies a layer by category and variant name. This is the form
// callers use on the wire.
type LayerID struct {
	Category string `json:"category" yaml:"category"`
	Variant  string `json:"variant" yaml:"variant"`
}

// String renders the layer as "category/variant".
func (l LayerID) String() string {
	return l.Category + "/" + l.Variant
}

// StoredLayerID identifies a layer by category and variant index. It is
// comparable and is used as a map key throughout the engine.
type StoredLayerID struct {
	Category uint8 `json:"category" yaml:"category"`
	Variant  uint8 `json:"variant" yaml:"variant"`
}

// String renders the layer as "category:variant" indices.
func (s StoredLayerID) String() string {
	return fmt.Sprintf("%d:%d", s.Category, s.Variant)
}

// SkullTypeLayers holds the two sentinel layers used to classify a
// composition: the eye-configuration variant that marks a cyclops and the jaw
// variant that marks a jawless skull.
type SkullTypeLayers struct {
	Cyclops StoredLayerID `json:"cyclops" yaml:"cyclops"`
	Jawless StoredLayerID `json:"jawless" yaml:"jawless"`
}

// SkullType is the classification derived from a composition.
type SkullType struct {
	IsCyclops bool `json:"is_cyclops"`
	IsJawless bool `json:"is_jawless"`
}
