package evidence

import (
	"github.com/ironsheep/geolocate-mcp/internal/geo"
)

// Rejection reasons reported in Result.RejectionReason.
const (
	ReasonNoEvidence    = "no_evidence"
	ReasonOutsideRegion = "outside_region"
)

// Contribution records one input of an aggregation for audit.
type Contribution struct {
	Source      string          `json:"source"`
	Confidence  float64         `json:"confidence"`
	Coordinates geo.Coordinates `json:"coordinates"`
	Detail      string          `json:"detail,omitempty"`
}

// Result is the fused estimate for one asset or one object group.
//
// Coordinates are retained when the region validator rejects them so a
// reviewer can see what was estimated; only Validated results are
// authoritative.
type Result struct {
	Coordinates     *geo.Coordinates `json:"coordinates"`
	Confidence      float64          `json:"confidence"`
	Contributions   []Contribution   `json:"contributing_sources"`
	Validated       bool             `json:"validated"`
	RejectionReason string           `json:"rejection_reason,omitempty"`

	// Fallback is set when the caller replaced rejected coordinates with the
	// region center.
	Fallback bool `json:"fallback,omitempty"`

	// SpreadMeters is the largest distance between the fused point and any
	// contributing coordinate. Only multi-asset aggregation fills it.
	SpreadMeters float64 `json:"spread_meters,omitempty"`

	// Address is an optional human-readable label from reverse geocoding.
	Address string `json:"address,omitempty"`
}

// NoEvidence returns the canonical empty result.
func NoEvidence() Result {
	return Result{
		Coordinates:     nil,
		Confidence:      0,
		Contributions:   []Contribution{},
		Validated:       false,
		RejectionReason: ReasonNoEvidence,
	}
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	out := r
	if r.Coordinates != nil {
		c := *r.Coordinates
		out.Coordinates = &c
	}
	out.Contributions = make([]Contribution, len(r.Contributions))
	copy(out.Contributions, r.Contributions)
	return out
}

// ContributionOf converts a candidate to its audit record.
func ContributionOf(c Candidate) Contribution {
	detail := ""
	if c.Provenance != nil {
		detail = c.Provenance.Detail()
	}
	return Contribution{
		Source:      c.Source().String(),
		Confidence:  c.Confidence,
		Coordinates: c.Coordinates,
		Detail:      detail,
	}
}
