package types

// VariantInfo is one concrete choice within a category. Art is an optional
// inline payload (typically an SVG fragment) that is only returned when a
// caller asks for it.
type VariantInfo struct {
	Name        string  `json:"name" yaml:"name"`
	DisplayName string  `json:"display_name" yaml:"display_name"`
	Art         *string `json:"art,omitempty" yaml:"art,omitempty"`
}

// CategoryInfo describes a category to add, including its initial variants.
// Skip marks the category as excluded from weighted rolling.
type CategoryInfo struct {
	Name     string        `json:"name" yaml:"name"`
	Skip     bool          `json:"skip" yaml:"skip"`
	Variants []VariantInfo `json:"variants" yaml:"variants"`
}

// VariantModification replaces the variant currently named Name with
// ModifiedVariant. A differing ModifiedVariant.Name renames the variant.
type VariantModification struct {
	Name            string      `json:"name" yaml:"name"`
	ModifiedVariant VariantInfo `json:"modified_variant" yaml:"modified_variant"`
}

// VariantInfoPlus is a catalog entry: the variant, its index within its
// category, and the layers its selection forces into a composition.
type VariantInfoPlus struct {
	Index       uint8       `json:"index"`
	VariantInfo VariantInfo `json:"variant_info"`
	Includes    []LayerID   `json:"includes"`
}

// CommonMetadata is the collection-wide metadata shared by every token. Both
// halves are opaque JSON documents owned by the caller.
type CommonMetadata struct {
	Public  Document `json:"public,omitempty" yaml:"public,omitempty"`
	Private Document `json:"private,omitempty" yaml:"private,omitempty"`
}

// Trait is one entry of a token's attribute list.
type Trait struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Document is an opaque JSON object.
type Document map[string]any
