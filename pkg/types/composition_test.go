package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositionJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Composition
		wantErr error
	}{
		{
			name:  "array of numbers",
			input: `[0, 1, 255]`,
			want:  Composition{0, 1, 255},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  Composition{},
		},
		{
			name:  "null decodes to nil",
			input: `null`,
			want:  nil,
		},
		{
			name:    "value above a byte",
			input:   `[0, 256]`,
			wantErr: ErrInvalidComposition,
		},
		{
			name:    "negative value",
			input:   `[-1]`,
			wantErr: ErrInvalidComposition,
		},
		{
			name:    "base64 string is rejected",
			input:   `"AAE="`,
			wantErr: ErrInvalidComposition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Composition
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompositionMarshalsAsArray(t *testing.T) {
	data, err := json.Marshal(struct {
		Composition Composition `json:"composition"`
		Skip        Indices     `json:"skip"`
	}{
		Composition: Composition{0, 7, 200},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"composition":[0,7,200],"skip":[]}`, string(data))
}

func TestCompositionClone(t *testing.T) {
	c := Composition{1, 2, 3}
	cp := c.Clone()
	cp[0] = 9
	assert.Equal(t, uint8(1), c[0])
	assert.Nil(t, Composition(nil).Clone())
}

func TestStoredDependencyClone(t *testing.T) {
	d := StoredDependency{
		ID:         StoredLayerID{Category: 1, Variant: 2},
		Correlated: []StoredLayerID{{Category: 3, Variant: 0}},
	}
	cp := d.Clone()
	cp.Correlated[0].Variant = 9
	assert.Equal(t, uint8(0), d.Correlated[0].Variant)
	assert.True(t, d.Contains(StoredLayerID{Category: 3, Variant: 0}))
	assert.False(t, d.Contains(StoredLayerID{Category: 3, Variant: 9}))
}
