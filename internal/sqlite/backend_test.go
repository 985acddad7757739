// Tests for the SQLite store.
package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/baedrik/skulls2/pkg/types"
)

func attach(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	if err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b
}

func sampleSnapshot() *types.Snapshot {
	art := "<circle/>"
	return &types.Snapshot{
		Categories: []types.CategoryRecord{
			{Name: "background", Variants: []types.VariantInfo{
				{Name: "red", DisplayName: "Red"},
				{Name: "blue", DisplayName: "Blue", Art: &art},
			}},
			{Name: "eyes", Skip: true, Variants: []types.VariantInfo{
				{Name: "two", DisplayName: "Two"},
				{Name: "cyclops", DisplayName: "Cyclops"},
			}},
			{Name: "empty", Variants: []types.VariantInfo{}},
		},
		Dependencies: []types.StoredDependency{
			{ID: types.StoredLayerID{Category: 1, Variant: 1}, Correlated: []types.StoredLayerID{{Category: 0, Variant: 1}}},
			{ID: types.StoredLayerID{Category: 0, Variant: 0}, Correlated: []types.StoredLayerID{{Category: 1, Variant: 0}, {Category: 0, Variant: 1}}},
		},
		SkullTypeLayers: &types.SkullTypeLayers{
			Cyclops: types.StoredLayerID{Category: 1, Variant: 1},
			Jawless: types.StoredLayerID{Category: 2, Variant: 0},
		},
		Metadata: &types.CommonMetadata{Public: types.Document{"description": "skulls"}},
	}
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()
	b := attach(t, tmpDir)

	dbPath := filepath.Join(tmpDir, DatabaseFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("%s not created", DatabaseFile)
	}
	if got := b.Path(); got != dbPath {
		t.Errorf("Path() = %q, want %q", got, dbPath)
	}

	err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: tmpDir})
	if !errors.Is(err, types.ErrAlreadyAttached) {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{DataDir: t.TempDir()})
	if !errors.Is(err, types.ErrBackendEmpty) {
		t.Errorf("expected ErrBackendEmpty, got %v", err)
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	if err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Errorf("second Detach should not error, got %v", err)
	}
	if _, err := b.Load(); !errors.Is(err, types.ErrStoreDetached) {
		t.Errorf("Load after Detach: expected ErrStoreDetached, got %v", err)
	}
	if err := b.Save(&types.Snapshot{}); !errors.Is(err, types.ErrStoreDetached) {
		t.Errorf("Save after Detach: expected ErrStoreDetached, got %v", err)
	}
	if b.Path() != "" {
		t.Errorf("Path after Detach should be empty")
	}
}

func TestBackend_LoadEmpty(t *testing.T) {
	b := attach(t, t.TempDir())
	snap, err := b.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snap.Categories) != 0 || len(snap.Dependencies) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
	if snap.SkullTypeLayers != nil || snap.Metadata != nil {
		t.Errorf("expected no settings, got %+v", snap)
	}
}

func TestBackend_SaveLoadRoundTrip(t *testing.T) {
	b := attach(t, t.TempDir())
	want := sampleSnapshot()
	if err := b.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestBackend_SaveReplaces(t *testing.T) {
	b := attach(t, t.TempDir())
	if err := b.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	smaller := &types.Snapshot{
		Categories: []types.CategoryRecord{
			{Name: "hat", Variants: []types.VariantInfo{{Name: "crown", DisplayName: "Crown"}}},
		},
		Dependencies: []types.StoredDependency{},
	}
	if err := b.Save(smaller); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, smaller) {
		t.Errorf("expected replaced state\n got: %+v\nwant: %+v", got, smaller)
	}
}

func TestBackend_SaveRejectsDanglingDependency(t *testing.T) {
	b := attach(t, t.TempDir())
	if err := b.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	bad := sampleSnapshot()
	bad.Dependencies = append(bad.Dependencies, types.StoredDependency{
		ID:         types.StoredLayerID{Category: 9, Variant: 9},
		Correlated: []types.StoredLayerID{{Category: 0, Variant: 0}},
	})
	if err := b.Save(bad); err == nil {
		t.Fatal("expected foreign key failure")
	}

	// The failed transaction left the previous state intact.
	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, sampleSnapshot()) {
		t.Errorf("state changed after failed Save: %+v", got)
	}
}

func TestBackend_PersistsAcrossAttach(t *testing.T) {
	tmpDir := t.TempDir()
	b := NewBackend()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}
	if err := b.Attach(cfg); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := b.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	b.Detach()

	b2 := attach(t, tmpDir)
	got, err := b2.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, sampleSnapshot()) {
		t.Errorf("state not persisted across attach: %+v", got)
	}
}
