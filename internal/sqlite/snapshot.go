package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/baedrik/skulls2/pkg/types"
)

// Load reads the full registry state. An empty database yields an empty
// snapshot.
func (b *Backend) Load() (*types.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	snap := &types.Snapshot{
		Categories:   []types.CategoryRecord{},
		Dependencies: []types.StoredDependency{},
	}
	if err := loadCategories(tx, snap); err != nil {
		return nil, err
	}
	if err := loadVariants(tx, snap); err != nil {
		return nil, err
	}
	if err := loadDependencies(tx, snap); err != nil {
		return nil, err
	}
	if err := loadSettings(tx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func loadCategories(tx *sql.Tx, snap *types.Snapshot) error {
	rows, err := tx.Query("SELECT idx, name, skip FROM categories ORDER BY idx")
	if err != nil {
		return fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx  int
			rec  types.CategoryRecord
			skip int
		)
		if err := rows.Scan(&idx, &rec.Name, &skip); err != nil {
			return fmt.Errorf("scanning category: %w", err)
		}
		if idx != len(snap.Categories) {
			return fmt.Errorf("category index %d out of sequence: %w", idx, types.ErrInvalidData)
		}
		rec.Skip = skip != 0
		rec.Variants = []types.VariantInfo{}
		snap.Categories = append(snap.Categories, rec)
	}
	return rows.Err()
}

func loadVariants(tx *sql.Tx, snap *types.Snapshot) error {
	rows, err := tx.Query("SELECT category_idx, idx, name, display_name, art FROM variants ORDER BY category_idx, idx")
	if err != nil {
		return fmt.Errorf("querying variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			catIdx, idx int
			v           types.VariantInfo
			art         sql.NullString
		)
		if err := rows.Scan(&catIdx, &idx, &v.Name, &v.DisplayName, &art); err != nil {
			return fmt.Errorf("scanning variant: %w", err)
		}
		if catIdx >= len(snap.Categories) {
			return fmt.Errorf("variant %q references category %d: %w", v.Name, catIdx, types.ErrInvalidData)
		}
		cat := &snap.Categories[catIdx]
		if idx != len(cat.Variants) {
			return fmt.Errorf("category %q variant index %d out of sequence: %w", cat.Name, idx, types.ErrInvalidData)
		}
		if art.Valid {
			s := art.String
			v.Art = &s
		}
		cat.Variants = append(cat.Variants, v)
	}
	return rows.Err()
}

func loadDependencies(tx *sql.Tx, snap *types.Snapshot) error {
	rows, err := tx.Query("SELECT position, category_idx, variant_idx FROM dependencies ORDER BY position")
	if err != nil {
		return fmt.Errorf("querying dependencies: %w", err)
	}
	positions := make(map[int]int)
	for rows.Next() {
		var pos int
		var id types.StoredLayerID
		if err := rows.Scan(&pos, &id.Category, &id.Variant); err != nil {
			rows.Close()
			return fmt.Errorf("scanning dependency: %w", err)
		}
		positions[pos] = len(snap.Dependencies)
		snap.Dependencies = append(snap.Dependencies, types.StoredDependency{ID: id})
	}
	if err := rows.Close(); err != nil {
		return err
	}

	members, err := tx.Query("SELECT dependency_position, category_idx, variant_idx FROM dependency_members ORDER BY dependency_position, ordinal")
	if err != nil {
		return fmt.Errorf("querying dependency members: %w", err)
	}
	defer members.Close()

	for members.Next() {
		var pos int
		var id types.StoredLayerID
		if err := members.Scan(&pos, &id.Category, &id.Variant); err != nil {
			return fmt.Errorf("scanning dependency member: %w", err)
		}
		i, ok := positions[pos]
		if !ok {
			return fmt.Errorf("member of unknown dependency %d: %w", pos, types.ErrInvalidData)
		}
		snap.Dependencies[i].Correlated = append(snap.Dependencies[i].Correlated, id)
	}
	return members.Err()
}

func loadSettings(tx *sql.Tx, snap *types.Snapshot) error {
	var raw string
	err := tx.QueryRow("SELECT value FROM settings WHERE key = ?", settingSkullTypeLayers).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading %s: %w", settingSkullTypeLayers, err)
	default:
		var layers types.SkullTypeLayers
		if err := json.Unmarshal([]byte(raw), &layers); err != nil {
			return fmt.Errorf("decoding %s: %w", settingSkullTypeLayers, types.ErrInvalidData)
		}
		snap.SkullTypeLayers = &layers
	}

	err = tx.QueryRow("SELECT value FROM settings WHERE key = ?", settingMetadata).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading %s: %w", settingMetadata, err)
	default:
		var meta types.CommonMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return fmt.Errorf("decoding %s: %w", settingMetadata, types.ErrInvalidData)
		}
		snap.Metadata = &meta
	}
	return nil
}

// Save replaces the stored state with snap in a single transaction.
func (b *Backend) Save(snap *types.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range clearOrder {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := saveCategories(tx, snap.Categories); err != nil {
		return err
	}
	if err := saveDependencies(tx, snap.Dependencies); err != nil {
		return err
	}
	if err := saveSettings(tx, snap); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	return nil
}

func saveCategories(tx *sql.Tx, cats []types.CategoryRecord) error {
	catStmt, err := tx.Prepare("INSERT INTO categories (idx, name, skip) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing category insert: %w", err)
	}
	defer catStmt.Close()
	varStmt, err := tx.Prepare("INSERT INTO variants (category_idx, idx, name, display_name, art) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing variant insert: %w", err)
	}
	defer varStmt.Close()

	for i, c := range cats {
		skip := 0
		if c.Skip {
			skip = 1
		}
		if _, err := catStmt.Exec(i, c.Name, skip); err != nil {
			return fmt.Errorf("inserting category %q: %w", c.Name, err)
		}
		for j, v := range c.Variants {
			var art sql.NullString
			if v.Art != nil {
				art = sql.NullString{String: *v.Art, Valid: true}
			}
			if _, err := varStmt.Exec(i, j, v.Name, v.DisplayName, art); err != nil {
				return fmt.Errorf("inserting variant %q/%q: %w", c.Name, v.Name, err)
			}
		}
	}
	return nil
}

func saveDependencies(tx *sql.Tx, deps []types.StoredDependency) error {
	depStmt, err := tx.Prepare("INSERT INTO dependencies (position, category_idx, variant_idx) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing dependency insert: %w", err)
	}
	defer depStmt.Close()
	memberStmt, err := tx.Prepare("INSERT INTO dependency_members (dependency_position, ordinal, category_idx, variant_idx) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing dependency member insert: %w", err)
	}
	defer memberStmt.Close()

	for i, d := range deps {
		if _, err := depStmt.Exec(i, d.ID.Category, d.ID.Variant); err != nil {
			return fmt.Errorf("inserting dependency %s: %w", d.ID, err)
		}
		for j, c := range d.Correlated {
			if _, err := memberStmt.Exec(i, j, c.Category, c.Variant); err != nil {
				return fmt.Errorf("inserting dependency %s member %s: %w", d.ID, c, err)
			}
		}
	}
	return nil
}

func saveSettings(tx *sql.Tx, snap *types.Snapshot) error {
	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if _, err := tx.Exec("INSERT INTO settings (key, value) VALUES (?, ?)", key, string(raw)); err != nil {
			return fmt.Errorf("inserting %s: %w", key, err)
		}
		return nil
	}
	if snap.SkullTypeLayers != nil {
		if err := put(settingSkullTypeLayers, snap.SkullTypeLayers); err != nil {
			return err
		}
	}
	if snap.Metadata != nil {
		if err := put(settingMetadata, snap.Metadata); err != nil {
			return err
		}
	}
	return nil
}
