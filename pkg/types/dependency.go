package types

// Dependency declares that selecting ID forces every layer in Correlated into
// the composition. Correlation is directional: it never implies the reverse.
type Dependency struct {
	ID         LayerID   `json:"id" yaml:"id"`
	Correlated []LayerID `json:"correlated" yaml:"correlated"`
}

// StoredDependency is the index-based form of a Dependency as the engine
// keeps it.
type StoredDependency struct {
	ID         StoredLayerID   `json:"id"`
	Correlated []StoredLayerID `json:"correlated"`
}

// Clone returns a deep copy of d.
func (d StoredDependency) Clone() StoredDependency {
	out := StoredDependency{ID: d.ID}
	if d.Correlated != nil {
		out.Correlated = append(make([]StoredLayerID, 0, len(d.Correlated)), d.Correlated...)
	}
	return out
}

// Contains reports whether id is one of d's correlated layers.
func (d StoredDependency) Contains(id StoredLayerID) bool {
	for _, c := range d.Correlated {
		if c == id {
			return true
		}
	}
	return false
}
