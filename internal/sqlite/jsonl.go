// This file provides JSONL snapshot export and import with atomic writes.
package sqlite

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/baedrik/skulls2/pkg/types"
)

// maxLineBytes bounds one JSONL record. Variant art makes category lines
// large.
const maxLineBytes = 64 << 20

// readJSONL reads a JSONL file and returns each non-empty line. A line that
// is not valid JSON fails the read with its line number.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		if !json.Valid(b) {
			return nil, fmt.Errorf("%s line %d: %w", path, line, types.ErrInvalidData)
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ExportJSONL writes snap to path, one record per line: categories in index
// order, dependencies in insertion order, then the settings.
func ExportJSONL(path string, snap *types.Snapshot) error {
	recs := make([]recordJSON, 0, len(snap.Categories)+len(snap.Dependencies)+2)
	for i, c := range snap.Categories {
		idx := i
		recs = append(recs, recordJSON{Kind: kindCategory, Index: &idx, Name: c.Name, Skip: c.Skip, Variants: c.Variants})
	}
	for _, d := range snap.Dependencies {
		id := d.ID
		recs = append(recs, recordJSON{Kind: kindDependency, ID: &id, Correlated: d.Correlated})
	}
	if snap.SkullTypeLayers != nil {
		recs = append(recs, recordJSON{Kind: kindSkullTypeLayers, SkullTypeLayers: snap.SkullTypeLayers})
	}
	if snap.Metadata != nil {
		recs = append(recs, recordJSON{Kind: kindMetadata, Metadata: snap.Metadata})
	}

	raw := make([]json.RawMessage, 0, len(recs))
	for _, r := range recs {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding %s record: %w", r.Kind, err)
		}
		raw = append(raw, b)
	}
	return writeJSONL(path, raw)
}

// ImportJSONL reads a snapshot written by ExportJSONL. Unknown kinds and
// out-of-sequence category indices fail with ErrInvalidData.
func ImportJSONL(path string) (*types.Snapshot, error) {
	records, err := readJSONL(path)
	if err != nil {
		return nil, err
	}

	snap := &types.Snapshot{
		Categories:   []types.CategoryRecord{},
		Dependencies: []types.StoredDependency{},
	}
	for n, raw := range records {
		var rec recordJSON
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("record %d: %v: %w", n+1, err, types.ErrInvalidData)
		}
		switch rec.Kind {
		case kindCategory:
			if rec.Index == nil || *rec.Index != len(snap.Categories) {
				return nil, fmt.Errorf("record %d: category %q out of sequence: %w", n+1, rec.Name, types.ErrInvalidData)
			}
			variants := rec.Variants
			if variants == nil {
				variants = []types.VariantInfo{}
			}
			snap.Categories = append(snap.Categories, types.CategoryRecord{Name: rec.Name, Skip: rec.Skip, Variants: variants})
		case kindDependency:
			if rec.ID == nil {
				return nil, fmt.Errorf("record %d: dependency without id: %w", n+1, types.ErrInvalidData)
			}
			snap.Dependencies = append(snap.Dependencies, types.StoredDependency{ID: *rec.ID, Correlated: rec.Correlated})
		case kindSkullTypeLayers:
			snap.SkullTypeLayers = rec.SkullTypeLayers
		case kindMetadata:
			snap.Metadata = rec.Metadata
		default:
			return nil, fmt.Errorf("record %d: unknown kind %q: %w", n+1, rec.Kind, types.ErrInvalidData)
		}
	}
	return snap, nil
}
