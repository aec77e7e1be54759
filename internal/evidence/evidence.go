// Package evidence defines the location hypotheses produced by the signal
// extractors and the fused result produced by the aggregators.
//
// A Candidate is a single location hypothesis from one extractor. Its
// Provenance is a closed sum type: every Source has exactly one provenance
// struct, so a plate candidate can only carry plate fields, an archive match
// only archive fields, and so on.
package evidence

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/geolocate-mcp/internal/geo"
)

// Source identifies which extractor produced a candidate.
type Source int

// Sources in extractor order. Direct signals come before inferred ones so that
// a stable sort by confidence prefers them on ties.
const (
	SourceExif Source = iota
	SourceArchiveMatch
	SourceExternalGeocode
	SourceOCRAddress
	SourceOCRPhoneCode
	SourceOCRPostalCode
	SourceLicensePlate
	SourceObjectContext
)

var sourceNames = [...]string{
	SourceExif:            "exif",
	SourceArchiveMatch:    "archive_match",
	SourceExternalGeocode: "external_geocode",
	SourceOCRAddress:      "ocr_address",
	SourceOCRPhoneCode:    "ocr_phone_code",
	SourceOCRPostalCode:   "ocr_postal_code",
	SourceLicensePlate:    "license_plate",
	SourceObjectContext:   "object_context",
}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

// ParseSource maps a wire name such as "ocr_postal_code" back to a Source.
func ParseSource(name string) (Source, error) {
	for i, n := range sourceNames {
		if n == name {
			return Source(i), nil
		}
	}
	return 0, fmt.Errorf("unknown evidence source %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Provenance describes where a candidate came from. Implementations are the
// *Provenance structs in this package; the unexported method closes the set.
type Provenance interface {
	Source() Source
	Detail() string
	provenance()
}

// ExifProvenance is attached to GPS coordinates read from image metadata.
type ExifProvenance struct {
	Path string `json:"path,omitempty"`
}

// ArchiveProvenance is attached to a visual match in the reference archive.
type ArchiveProvenance struct {
	RecordID    string  `json:"record_id"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Similarity  float64 `json:"similarity"`
}

// GeocodeProvenance is attached to a result from an external geocoder.
type GeocodeProvenance struct {
	Provider    string `json:"provider"`
	Query       string `json:"query,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// AddressProvenance is attached to a recognised street address.
type AddressProvenance struct {
	MatchedText string `json:"matched_text"`
	Query       string `json:"query"`
	DisplayName string `json:"display_name,omitempty"`
}

// PhoneCodeProvenance is attached to a recognised telephone area code.
type PhoneCodeProvenance struct {
	MatchedText string `json:"matched_text"`
	AreaCode    string `json:"area_code"`
	City        string `json:"city"`
}

// PostalCodeProvenance is attached to a recognised postal code.
type PostalCodeProvenance struct {
	PostalCode string `json:"postal_code"`
	Area       string `json:"area"`
	// Rule is "prefix" or "exact" depending on which table matched.
	Rule string `json:"rule"`
}

// PlateProvenance is attached to a vehicle registration plate.
type PlateProvenance struct {
	RawText    string `json:"raw_text"`
	Normalized string `json:"normalized"`
	RegionCode string `json:"region_code"`
	Region     string `json:"region"`
}

// ObjectContextProvenance is attached to a location inferred from detected
// objects by an external detector.
type ObjectContextProvenance struct {
	Label    string `json:"label"`
	Detector string `json:"detector,omitempty"`
}

func (ExifProvenance) Source() Source          { return SourceExif }
func (ArchiveProvenance) Source() Source       { return SourceArchiveMatch }
func (GeocodeProvenance) Source() Source       { return SourceExternalGeocode }
func (AddressProvenance) Source() Source       { return SourceOCRAddress }
func (PhoneCodeProvenance) Source() Source     { return SourceOCRPhoneCode }
func (PostalCodeProvenance) Source() Source    { return SourceOCRPostalCode }
func (PlateProvenance) Source() Source         { return SourceLicensePlate }
func (ObjectContextProvenance) Source() Source { return SourceObjectContext }

func (p ExifProvenance) Detail() string { return p.Path }
func (p ArchiveProvenance) Detail() string {
	return fmt.Sprintf("%s (%.3f)", p.RecordID, p.Similarity)
}
func (p GeocodeProvenance) Detail() string       { return p.Provider + ": " + p.Query }
func (p AddressProvenance) Detail() string       { return p.MatchedText }
func (p PhoneCodeProvenance) Detail() string     { return p.AreaCode + " " + p.City }
func (p PostalCodeProvenance) Detail() string    { return p.PostalCode + " " + p.Area }
func (p PlateProvenance) Detail() string         { return p.Normalized + " region " + p.RegionCode }
func (p ObjectContextProvenance) Detail() string { return p.Label }

func (ExifProvenance) provenance()          {}
func (ArchiveProvenance) provenance()       {}
func (GeocodeProvenance) provenance()       {}
func (AddressProvenance) provenance()       {}
func (PhoneCodeProvenance) provenance()     {}
func (PostalCodeProvenance) provenance()    {}
func (PlateProvenance) provenance()         {}
func (ObjectContextProvenance) provenance() {}

// Candidate is one location hypothesis. Candidates are values and are never
// modified after an extractor returns them.
type Candidate struct {
	Coordinates geo.Coordinates
	Confidence  float64
	Provenance  Provenance
}

// New builds a candidate, clamping confidence into [0,1].
func New(coords geo.Coordinates, confidence float64, p Provenance) Candidate {
	return Candidate{
		Coordinates: coords,
		Confidence:  ClampConfidence(confidence),
		Provenance:  p,
	}
}

// Source returns the source of the candidate's provenance.
func (c Candidate) Source() Source {
	if c.Provenance == nil {
		return SourceObjectContext
	}
	return c.Provenance.Source()
}

// ClampConfidence limits v to [0,1]; NaN becomes 0.
func ClampConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SortByExtractorOrder stably orders candidates by source rank, keeping the
// relative order of candidates from the same source. The input is not
// modified.
func SortByExtractorOrder(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Source() < out[j].Source()
	})
	return out
}

// MarshalJSON flattens the candidate with its source name for audit output.
func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source      string          `json:"source"`
		Coordinates geo.Coordinates `json:"coordinates"`
		Confidence  float64         `json:"confidence"`
		Provenance  Provenance      `json:"provenance,omitempty"`
	}{
		Source:      c.Source().String(),
		Coordinates: c.Coordinates,
		Confidence:  c.Confidence,
		Provenance:  c.Provenance,
	})
}
