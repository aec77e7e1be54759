package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/geo"
)

// StoredResult is one row of the result history.
type StoredResult struct {
	ID        int64           `json:"id"`
	AssetPath string          `json:"asset_path"`
	GroupID   string          `json:"group_id,omitempty"`
	Result    evidence.Result `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// ResultFilter narrows ListResults. Zero fields match everything.
type ResultFilter struct {
	AssetPath string
	GroupID   string
	Limit     int
}

// SaveResult appends a result for assetPath. groupID is empty for a
// standalone image; a group's fused result is stored with an empty path.
func (s *Store) SaveResult(ctx context.Context, assetPath, groupID string, r evidence.Result) error {
	contributions := r.Contributions
	if contributions == nil {
		contributions = []evidence.Contribution{}
	}
	contribJSON, err := json.Marshal(contributions)
	if err != nil {
		return fmt.Errorf("marshalling contributions: %w", err)
	}

	var lat, lon *float64
	if r.Coordinates != nil {
		lat, lon = &r.Coordinates.Lat, &r.Coordinates.Lon
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (asset_path, group_id, latitude, longitude, confidence,
			validated, rejection_reason, fallback, address, contributions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		assetPath,
		groupID,
		nullFloat(lat),
		nullFloat(lon),
		r.Confidence,
		r.Validated,
		r.RejectionReason,
		r.Fallback,
		r.Address,
		string(contribJSON),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting result for %s: %w", assetPath, err)
	}
	return nil
}

// ListResults returns stored results, newest first.
func (s *Store) ListResults(ctx context.Context, f ResultFilter) ([]StoredResult, error) {
	var (
		where []string
		args  []any
	)
	if f.AssetPath != "" {
		where = append(where, "asset_path = ?")
		args = append(args, f.AssetPath)
	}
	if f.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, f.GroupID)
	}

	query := `SELECT id, asset_path, group_id, latitude, longitude, confidence, validated,
		rejection_reason, fallback, address, contributions, created_at FROM results`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var (
			sr          StoredResult
			lat, lon    sql.NullFloat64
			contribJSON string
		)
		err := rows.Scan(&sr.ID, &sr.AssetPath, &sr.GroupID, &lat, &lon,
			&sr.Result.Confidence, &sr.Result.Validated, &sr.Result.RejectionReason,
			&sr.Result.Fallback, &sr.Result.Address, &contribJSON, &sr.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if lat.Valid && lon.Valid {
			sr.Result.Coordinates = &geo.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
		}
		if err := json.Unmarshal([]byte(contribJSON), &sr.Result.Contributions); err != nil {
			return nil, fmt.Errorf("unmarshalling contributions: %w", err)
		}
		sr.CreatedAt = sr.CreatedAt.UTC()
		out = append(out, sr)
	}
	return out, rows.Err()
}
