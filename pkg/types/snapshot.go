package types

// CategoryRecord is a persisted category: its name, skip flag, and variants
// in index order. A record's position in Snapshot.Categories is its index.
type CategoryRecord struct {
	Name     string        `json:"name" yaml:"name"`
	Skip     bool          `json:"skip" yaml:"skip"`
	Variants []VariantInfo `json:"variants" yaml:"variants"`
}

// Snapshot is the complete registry state as a Store persists it.
// Dependencies are kept in insertion order.
type Snapshot struct {
	Categories      []CategoryRecord   `json:"categories"`
	Dependencies    []StoredDependency `json:"dependencies"`
	SkullTypeLayers *SkullTypeLayers   `json:"skull_type_layers,omitempty"`
	Metadata        *CommonMetadata    `json:"metadata,omitempty"`
}

// Seed is the name-addressed document accepted by the import command. It is
// applied through the same operations an administrator would call.
type Seed struct {
	Categories      []CategoryInfo   `json:"categories" yaml:"categories"`
	Dependencies    []Dependency     `json:"dependencies" yaml:"dependencies"`
	SkullTypeLayers *SkullTypeLayers `json:"skull_type_layers,omitempty" yaml:"skull_type_layers,omitempty"`
	Metadata        *CommonMetadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
