// Package index is an in-memory nearest-neighbour index over image
// descriptors of reference photographs (buildings, landmarks, street views).
//
// Queries are exact: every stored descriptor is compared with the query, so a
// result is never missed. Similarity is derived from the squared Euclidean
// distance d between L2-normalized descriptors:
//
//	similarity = 1 - d/2
//
// which is 1 for identical descriptors and 0 for opposite ones, and is clamped
// to [0,1]. Matches are ordered by descending similarity; equal similarities
// keep insertion order.
//
// An Index allows any number of concurrent queries; inserts are serialized
// and block queries only while a record is appended.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/geolocate-mcp/internal/geo"
	"github.com/ironsheep/geolocate-mcp/internal/imaging"
)

var (
	// ErrDimensionMismatch is returned when a descriptor does not have the
	// index dimension.
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

	// ErrZeroDescriptor is returned when inserting a descriptor with no signal.
	ErrZeroDescriptor = errors.New("zero descriptor")

	// ErrDuplicateID is returned when a record ID is already present.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrNotFound is returned when no record has the requested ID.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidCategory is returned for an unknown reference category.
	ErrInvalidCategory = errors.New("invalid category")
)

// Category classifies a reference record.
type Category string

const (
	CategoryBuilding Category = "building"
	CategoryLandmark Category = "landmark"
	CategoryStreet   Category = "street"
)

// ParseCategory validates a category name. An empty name means building.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case "":
		return CategoryBuilding, nil
	case CategoryBuilding, CategoryLandmark, CategoryStreet:
		return Category(s), nil
	}
	return "", fmt.Errorf("%w: %q (want building, landmark or street)", ErrInvalidCategory, s)
}

// Record is one reference photograph in the archive.
//
// The descriptor never changes after insertion. Attributes may only grow:
// AppendAttributes adds keys but never overwrites existing ones.
type Record struct {
	ID          string             `json:"id"`
	Descriptor  imaging.Descriptor `json:"-"`
	Category    Category           `json:"category"`
	Coordinates *geo.Coordinates   `json:"coordinates,omitempty"`
	Description string             `json:"description,omitempty"`
	Attributes  map[string]string  `json:"attributes,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// clone returns a copy that shares no mutable state with r.
func (r Record) clone() Record {
	out := r
	out.Descriptor = r.Descriptor.Clone()
	if r.Coordinates != nil {
		c := *r.Coordinates
		out.Coordinates = &c
	}
	if r.Attributes != nil {
		out.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// Metadata describes a record being inserted. An empty ID gets a new UUID.
type Metadata struct {
	ID          string
	Category    Category
	Coordinates *geo.Coordinates
	Description string
	Attributes  map[string]string
	CreatedAt   time.Time
}

// Entry pairs a descriptor with its metadata for BulkInsert.
type Entry struct {
	Descriptor imaging.Descriptor
	Metadata   Metadata
}

// Match is a query hit.
type Match struct {
	Record     Record  `json:"record"`
	Similarity float64 `json:"similarity"`
}

// Index is an exhaustive similarity index. The zero value is not usable;
// create one with New.
type Index struct {
	mu      sync.RWMutex
	dim     int
	records []Record
	byID    map[string]int
}

// New creates an empty index for descriptors of length dim.
func New(dim int) *Index {
	return &Index{
		dim:  dim,
		byID: make(map[string]int),
	}
}

// Dim returns the descriptor dimension the index accepts.
func (ix *Index) Dim() int {
	return ix.dim
}

// Len returns the number of records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Insert adds a reference record. The descriptor is copied.
func (ix *Index) Insert(desc imaging.Descriptor, meta Metadata) (Record, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.insertLocked(desc, meta)
}

// BulkInsert adds entries in order under a single lock. It behaves exactly
// like calling Insert for each entry: on the first failure it stops and
// returns the records inserted so far together with the error.
func (ix *Index) BulkInsert(entries []Entry) ([]Record, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if cap(ix.records)-len(ix.records) < len(entries) {
		grown := make([]Record, len(ix.records), len(ix.records)+len(entries))
		copy(grown, ix.records)
		ix.records = grown
	}

	out := make([]Record, 0, len(entries))
	for i, e := range entries {
		rec, err := ix.insertLocked(e.Descriptor, e.Metadata)
		if err != nil {
			return out, fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (ix *Index) insertLocked(desc imaging.Descriptor, meta Metadata) (Record, error) {
	if len(desc) != ix.dim {
		return Record{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(desc), ix.dim)
	}
	if desc.IsZero() {
		return Record{}, ErrZeroDescriptor
	}
	category, err := ParseCategory(string(meta.Category))
	if err != nil {
		return Record{}, err
	}

	id := meta.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := ix.byID[id]; exists {
		return Record{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	created := meta.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	rec := Record{
		ID:          id,
		Descriptor:  desc.Clone(),
		Category:    category,
		Coordinates: meta.Coordinates,
		Description: meta.Description,
		Attributes:  meta.Attributes,
		CreatedAt:   created,
	}.clone()

	ix.byID[id] = len(ix.records)
	ix.records = append(ix.records, rec)
	return rec.clone(), nil
}

// Get returns the record with the given ID.
func (ix *Index) Get(id string) (Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	i, ok := ix.byID[id]
	if !ok {
		return Record{}, false
	}
	return ix.records[i].clone(), true
}

// AppendAttributes adds attrs to a record. Keys that already exist keep their
// current value. It returns the updated record.
func (ix *Index) AppendAttributes(id string, attrs map[string]string) (Record, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	i, ok := ix.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec := &ix.records[i]
	if rec.Attributes == nil {
		rec.Attributes = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		if _, exists := rec.Attributes[k]; !exists {
			rec.Attributes[k] = v
		}
	}
	return rec.clone(), nil
}

// Remove deletes the record with the given ID. Remaining records keep their
// insertion order.
func (ix *Index) Remove(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	i, ok := ix.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ix.records = append(ix.records[:i], ix.records[i+1:]...)
	delete(ix.byID, id)
	for j := i; j < len(ix.records); j++ {
		ix.byID[ix.records[j].ID] = j
	}
	return nil
}

// Records returns a copy of every record in insertion order.
func (ix *Index) Records() []Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Record, len(ix.records))
	for i, r := range ix.records {
		out[i] = r.clone()
	}
	return out
}

// Query returns up to k records whose similarity to desc is at least
// minSimilarity, best first. A k of zero or less returns every record that
// clears the threshold.
//
// The result is empty when the index is empty, when desc is a zero vector or
// has the wrong dimension, or when nothing clears the threshold.
func (ix *Index) Query(desc imaging.Descriptor, k int, minSimilarity float64) []Match {
	if len(desc) != ix.dim || desc.IsZero() {
		return []Match{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	matches := make([]Match, 0)
	for _, rec := range ix.records {
		sim := Similarity(desc, rec.Descriptor)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, Match{Record: rec, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	for i := range matches {
		matches[i].Record = matches[i].Record.clone()
	}
	return matches
}

// Similarity maps two L2-normalized descriptors to [0,1] as 1 - d/2 where d is
// their squared Euclidean distance.
func Similarity(a, b imaging.Descriptor) float64 {
	if len(a) != len(b) {
		return 0
	}
	d := floats.Distance(a, b, 2)
	sim := 1 - d*d/2
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
