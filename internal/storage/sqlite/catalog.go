package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/geolocate-mcp/internal/geo"
	"github.com/ironsheep/geolocate-mcp/internal/imaging"
	"github.com/ironsheep/geolocate-mcp/internal/index"
)

const recordColumns = `id, category, latitude, longitude, description, attributes, descriptor, dim, created_at`

// SaveRecord inserts a reference record. The ID must not exist yet.
func (s *Store) SaveRecord(ctx context.Context, rec index.Record) error {
	attrs := rec.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}

	var lat, lon *float64
	if rec.Coordinates != nil {
		lat, lon = &rec.Coordinates.Lat, &rec.Coordinates.Lon
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reference_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		string(rec.Category),
		nullFloat(lat),
		nullFloat(lon),
		rec.Description,
		string(attrsJSON),
		float32SliceToBytes(rec.Descriptor),
		len(rec.Descriptor),
		created.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}
	return nil
}

// GetRecord returns one record, or an error wrapping index.ErrNotFound.
func (s *Store) GetRecord(ctx context.Context, id string) (index.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM reference_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return index.Record{}, fmt.Errorf("%w: %s", index.ErrNotFound, id)
	}
	return rec, err
}

// ListRecords returns every record in insertion order.
func (s *Store) ListRecords(ctx context.Context) ([]index.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM reference_records ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []index.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountRecords returns the catalog size.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reference_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// AppendAttributes merges attrs into a stored record. Existing keys keep
// their value, matching index.Index.AppendAttributes.
func (s *Store) AppendAttributes(ctx context.Context, id string, attrs map[string]string) (index.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return index.Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM reference_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return index.Record{}, fmt.Errorf("%w: %s", index.ErrNotFound, id)
	}
	if err != nil {
		return index.Record{}, err
	}

	if rec.Attributes == nil {
		rec.Attributes = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		if _, exists := rec.Attributes[k]; !exists {
			rec.Attributes[k] = v
		}
	}
	attrsJSON, err := json.Marshal(rec.Attributes)
	if err != nil {
		return index.Record{}, fmt.Errorf("marshalling attributes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE reference_records SET attributes = ? WHERE id = ?`, string(attrsJSON), id); err != nil {
		return index.Record{}, fmt.Errorf("updating attributes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return index.Record{}, fmt.Errorf("committing attributes: %w", err)
	}
	return rec, nil
}

// LoadIntoIndex bulk-inserts every catalog record into ix and returns how
// many were loaded.
func (s *Store) LoadIntoIndex(ctx context.Context, ix *index.Index) (int, error) {
	recs, err := s.ListRecords(ctx)
	if err != nil {
		return 0, err
	}

	entries := make([]index.Entry, len(recs))
	for i, r := range recs {
		entries[i] = index.Entry{
			Descriptor: r.Descriptor,
			Metadata: index.Metadata{
				ID:          r.ID,
				Category:    r.Category,
				Coordinates: r.Coordinates,
				Description: r.Description,
				Attributes:  r.Attributes,
				CreatedAt:   r.CreatedAt,
			},
		}
	}
	loaded, err := ix.BulkInsert(entries)
	if err != nil {
		return len(loaded), fmt.Errorf("loading catalog into index: %w", err)
	}
	return len(loaded), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (index.Record, error) {
	var (
		rec       index.Record
		category  string
		lat, lon  sql.NullFloat64
		attrsJSON string
		blob      []byte
		dim       int
		created   time.Time
	)
	if err := row.Scan(&rec.ID, &category, &lat, &lon, &rec.Description, &attrsJSON, &blob, &dim, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return index.Record{}, err
		}
		return index.Record{}, fmt.Errorf("scanning record: %w", err)
	}

	rec.Category = index.Category(category)
	if lat.Valid && lon.Valid {
		rec.Coordinates = &geo.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}
	if err := json.Unmarshal([]byte(attrsJSON), &rec.Attributes); err != nil {
		return index.Record{}, fmt.Errorf("unmarshalling attributes of %s: %w", rec.ID, err)
	}
	if len(rec.Attributes) == 0 {
		rec.Attributes = nil
	}
	rec.Descriptor = imaging.Descriptor(bytesToFloat64Slice(blob))
	if len(rec.Descriptor) != dim {
		return index.Record{}, fmt.Errorf("record %s: stored descriptor has %d values, want %d", rec.ID, len(rec.Descriptor), dim)
	}
	rec.CreatedAt = created.UTC()
	return rec, nil
}
