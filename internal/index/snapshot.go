package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// snapshotVersion is bumped whenever the on-disk layout changes.
const snapshotVersion = 1

// ErrSnapshotVersion is returned when loading a snapshot written by an
// incompatible version.
var ErrSnapshotVersion = errors.New("unsupported index snapshot version")

type snapshot struct {
	Version int
	Dim     int
	Records []Record
}

// Save writes a gob snapshot of the index to w. Queries may run concurrently.
func (ix *Index) Save(w io.Writer) error {
	ix.mu.RLock()
	snap := snapshot{
		Version: snapshotVersion,
		Dim:     ix.dim,
		Records: make([]Record, len(ix.records)),
	}
	for i, r := range ix.records {
		snap.Records[i] = r.clone()
	}
	ix.mu.RUnlock()

	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save into a new index. The loaded index
// answers queries exactly like the one that was saved.
func Load(r io.Reader) (*Index, error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode index snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}

	ix := New(snap.Dim)
	ix.records = make([]Record, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if len(rec.Descriptor) != snap.Dim {
			return nil, fmt.Errorf("record %s: %w: got %d, want %d",
				rec.ID, ErrDimensionMismatch, len(rec.Descriptor), snap.Dim)
		}
		if _, dup := ix.byID[rec.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		ix.byID[rec.ID] = len(ix.records)
		ix.records = append(ix.records, rec)
	}
	return ix, nil
}

// SaveFile writes a snapshot to path atomically via a temporary file in the
// same directory.
func (ix *Index) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.gob")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := ix.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// LoadFile reads a snapshot from path.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index snapshot: %w", err)
	}
	defer f.Close()
	return Load(f)
}
