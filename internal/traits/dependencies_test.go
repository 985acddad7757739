package traits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baedrik/skulls2/pkg/types"
)

// newChainRegistry builds a registry with one category per letter, each
// holding variants "on" and "off", and the dependencies a -> {b, c}, b -> {d}.
func newChainRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	_, err := r.AddCategories([]types.CategoryInfo{
		{Name: "a", Variants: variants("off", "on")},
		{Name: "b", Variants: variants("off", "on")},
		{Name: "c", Variants: variants("off", "on")},
		{Name: "d", Variants: variants("off", "on")},
	})
	require.NoError(t, err)
	require.NoError(t, r.AddDependencies([]types.Dependency{
		{ID: layer("a", "on"), Correlated: []types.LayerID{layer("b", "on"), layer("c", "on")}},
		{ID: layer("b", "on"), Correlated: []types.LayerID{layer("d", "on")}},
	}))
	return r
}

func stored(c, v uint8) types.StoredLayerID {
	return types.StoredLayerID{Category: c, Variant: v}
}

func TestAddDependencies_Union(t *testing.T) {
	r := newChainRegistry(t)
	require.NoError(t, r.AddDependencies([]types.Dependency{
		{ID: layer("a", "on"), Correlated: []types.LayerID{layer("c", "on"), layer("d", "off"), layer("d", "off")}},
	}))

	export := r.ServeBulkExport()
	require.Len(t, export.Dependencies, 2)
	assert.Equal(t, stored(0, 1), export.Dependencies[0].ID)
	assert.Equal(t, []types.StoredLayerID{stored(1, 1), stored(2, 1), stored(3, 0)}, export.Dependencies[0].Correlated)
}

func TestAddDependencies_Unresolved(t *testing.T) {
	r := newChainRegistry(t)
	before := r.ServeBulkExport()

	err := r.AddDependencies([]types.Dependency{
		{ID: layer("c", "on"), Correlated: []types.LayerID{layer("d", "on")}},
		{ID: layer("a", "on"), Correlated: []types.LayerID{layer("z", "on")}},
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, before, r.ServeBulkExport(), "failed batch must not commit its first entry")

	err = r.AddDependencies([]types.Dependency{{ID: layer("a", "maybe")}})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRemoveDependencies(t *testing.T) {
	tests := []struct {
		name    string
		remove  []types.Dependency
		wantErr error
		want    []types.StoredDependency
	}{
		{
			name:   "removes one member",
			remove: []types.Dependency{{ID: layer("a", "on"), Correlated: []types.LayerID{layer("b", "on")}}},
			want: []types.StoredDependency{
				{ID: stored(0, 1), Correlated: []types.StoredLayerID{stored(2, 1)}},
				{ID: stored(1, 1), Correlated: []types.StoredLayerID{stored(3, 1)}},
			},
		},
		{
			name:   "drops entry once empty",
			remove: []types.Dependency{{ID: layer("b", "on"), Correlated: []types.LayerID{layer("d", "on")}}},
			want: []types.StoredDependency{
				{ID: stored(0, 1), Correlated: []types.StoredLayerID{stored(1, 1), stored(2, 1)}},
			},
		},
		{
			name:   "empty list drops entry",
			remove: []types.Dependency{{ID: layer("a", "on")}},
			want: []types.StoredDependency{
				{ID: stored(1, 1), Correlated: []types.StoredLayerID{stored(3, 1)}},
			},
		},
		{
			name:   "absent entry is a no-op",
			remove: []types.Dependency{{ID: layer("c", "on"), Correlated: []types.LayerID{layer("d", "on")}}},
			want: []types.StoredDependency{
				{ID: stored(0, 1), Correlated: []types.StoredLayerID{stored(1, 1), stored(2, 1)}},
				{ID: stored(1, 1), Correlated: []types.StoredLayerID{stored(3, 1)}},
			},
		},
		{
			name:   "absent member is a no-op",
			remove: []types.Dependency{{ID: layer("a", "on"), Correlated: []types.LayerID{layer("d", "on")}}},
			want: []types.StoredDependency{
				{ID: stored(0, 1), Correlated: []types.StoredLayerID{stored(1, 1), stored(2, 1)}},
				{ID: stored(1, 1), Correlated: []types.StoredLayerID{stored(3, 1)}},
			},
		},
		{
			name:    "unresolved name fails",
			remove:  []types.Dependency{{ID: layer("a", "on"), Correlated: []types.LayerID{layer("q", "on")}}},
			wantErr: types.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newChainRegistry(t)
			err := r.RemoveDependencies(tt.remove)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.ServeBulkExport().Dependencies)
		})
	}
}

func TestModifyDependencies(t *testing.T) {
	r := newChainRegistry(t)

	require.NoError(t, r.ModifyDependencies([]types.Dependency{
		{ID: layer("a", "on"), Correlated: []types.LayerID{layer("d", "off")}},
	}))
	assert.Equal(t, []types.StoredLayerID{stored(3, 0)}, r.ServeBulkExport().Dependencies[0].Correlated)

	err := r.ModifyDependencies([]types.Dependency{
		{ID: layer("c", "on"), Correlated: []types.LayerID{layer("d", "off")}},
	})
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, r.ModifyDependencies([]types.Dependency{{ID: layer("a", "on")}}))
	assert.Len(t, r.ServeBulkExport().Dependencies, 1)
}

func TestModifyDependencies_Idempotent(t *testing.T) {
	r := newChainRegistry(t)
	before := r.ServeBulkExport()

	page, err := r.Dependencies(nil, nil)
	require.NoError(t, err)
	same := make([]types.Dependency, 0, len(page.Dependencies))
	for _, e := range page.Dependencies {
		same = append(same, types.Dependency{ID: e.ID, Correlated: e.Correlated})
	}

	require.NoError(t, r.ModifyDependencies(same))
	assert.Equal(t, before, r.ServeBulkExport())
	require.NoError(t, r.ModifyDependencies(same))
	assert.Equal(t, before, r.ServeBulkExport())
}

func TestIncludes(t *testing.T) {
	r := newChainRegistry(t)

	assert.Equal(t, []types.StoredLayerID{stored(1, 1), stored(2, 1), stored(3, 1)}, r.Includes(stored(0, 1)))
	assert.Equal(t, []types.StoredLayerID{stored(3, 1)}, r.Includes(stored(1, 1)))
	assert.Empty(t, r.Includes(stored(3, 1)))

	// Correlation is directional: d never pulls in b.
	assert.NotContains(t, r.Includes(stored(3, 1)), stored(1, 1))
}

func TestIncludes_Cycle(t *testing.T) {
	r := newChainRegistry(t)
	require.NoError(t, r.AddDependencies([]types.Dependency{
		{ID: layer("d", "on"), Correlated: []types.LayerID{layer("a", "on")}},
	}))

	got := r.Includes(stored(0, 1))
	assert.ElementsMatch(t, []types.StoredLayerID{stored(1, 1), stored(2, 1), stored(3, 1)}, got)
	assert.NotContains(t, got, stored(0, 1))
}

func TestDependencies_Page(t *testing.T) {
	r := newChainRegistry(t)

	page, err := r.Dependencies(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), page.Count)
	require.Len(t, page.Dependencies, 2)
	assert.Equal(t, layer("a", "on"), page.Dependencies[0].ID)
	assert.Equal(t, []types.LayerID{layer("b", "on"), layer("c", "on")}, page.Dependencies[0].Correlated)
	assert.Equal(t, []types.LayerID{layer("b", "on"), layer("c", "on"), layer("d", "on")}, page.Dependencies[0].Includes)

	start, limit := uint16(1), uint16(5)
	page, err = r.Dependencies(&start, &limit)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), page.Count)
	require.Len(t, page.Dependencies, 1)
	assert.Equal(t, layer("b", "on"), page.Dependencies[0].ID)

	start = 9
	page, err = r.Dependencies(&start, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Dependencies)
}
