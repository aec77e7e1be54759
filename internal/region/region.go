// Package region checks fused coordinates against the operational area and
// prepares search queries for external geocoders so they stay inside it.
package region

import (
	"fmt"
	"strings"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/geo"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
)

// DefaultFallbackConfidence caps the confidence of a center-point fallback.
const DefaultFallbackConfidence = 0.1

// Config is the static description of the operational area. It is loaded at
// startup and never changed while the process runs.
type Config struct {
	Bounds geo.Bounds `toml:"bounds"`

	// Center is the fallback point. A zero value means the middle of Bounds.
	Center geo.Coordinates `toml:"center"`

	// Keywords are lower-case fragments that mark a query as already
	// regional, e.g. "москва" or "moscow".
	Keywords []string `toml:"keywords"`

	// Qualifier is appended to queries that contain no keyword.
	Qualifier string `toml:"qualifier"`

	// FallbackConfidence is the highest confidence a center fallback keeps.
	FallbackConfidence float64 `toml:"fallback_confidence"`
}

// DefaultConfig returns Moscow and Moscow Oblast.
func DefaultConfig() Config {
	return Config{
		Bounds: geo.Bounds{
			MinLat: 54.25,
			MaxLat: 56.96,
			MinLon: 35.14,
			MaxLon: 40.21,
		},
		Center:             geo.Coordinates{Lat: 55.7558, Lon: 37.6173},
		Keywords:           []string{"москва", "московская", "подмосковье", "moscow"},
		Qualifier:          "Москва",
		FallbackConfidence: DefaultFallbackConfidence,
	}
}

// Validate checks the bounds invariant and that the center, when set, lies
// inside them.
func (c Config) Validate() error {
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if c.Center != (geo.Coordinates{}) && (!c.Center.Valid() || !c.Bounds.Contains(c.Center)) {
		return fmt.Errorf("region center %s is outside bounds", c.Center)
	}
	if c.FallbackConfidence < 0 || c.FallbackConfidence > 1 {
		return fmt.Errorf("fallback confidence %.3f must be within [0,1]", c.FallbackConfidence)
	}
	return nil
}

// Validator accepts or rejects results against a fixed region. It holds no
// mutable state and is safe for concurrent use.
type Validator struct {
	cfg      Config
	keywords []string
}

// New creates a validator. The configuration is validated and copied.
func New(cfg Config) (*Validator, error) {
	if cfg.Center == (geo.Coordinates{}) {
		cfg.Center = cfg.Bounds.Center()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid region config: %w", err)
	}
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, k := range cfg.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	cfg.Keywords = append([]string(nil), keywords...)
	return &Validator{cfg: cfg, keywords: keywords}, nil
}

// Bounds returns the accepted area.
func (v *Validator) Bounds() geo.Bounds { return v.cfg.Bounds }

// Center returns the configured fallback point.
func (v *Validator) Center() geo.Coordinates { return v.cfg.Center }

// Contains reports whether c lies in the region, edges included.
func (v *Validator) Contains(c geo.Coordinates) bool {
	return c.Valid() && v.cfg.Bounds.Contains(c)
}

// Validate returns a copy of r with Validated and RejectionReason set.
//
//   - nil coordinates: not validated, reason no_evidence
//   - inside the bounds (edges inclusive): validated
//   - otherwise: not validated, reason outside_region, coordinates kept
//
// Validate never substitutes other coordinates; see WithCenterFallback.
// Results that already carry a center fallback are returned unchanged.
func (v *Validator) Validate(r evidence.Result) evidence.Result {
	out := r.Clone()
	if out.Fallback {
		return out
	}

	if out.Coordinates == nil {
		out.Validated = false
		out.RejectionReason = evidence.ReasonNoEvidence
		return out
	}

	if v.Contains(*out.Coordinates) {
		out.Validated = true
		out.RejectionReason = ""
		return out
	}

	logger.Debugf("rejected %s (confidence %.2f): outside region", out.Coordinates, out.Confidence)
	out.Validated = false
	out.RejectionReason = evidence.ReasonOutsideRegion
	return out
}

// WithCenterFallback replaces the coordinates of a rejected result with the
// region center. The result stays unvalidated and keeps its rejection reason;
// Fallback is set and confidence is capped at the configured fallback
// confidence. Validated results are returned unchanged.
func (v *Validator) WithCenterFallback(r evidence.Result) evidence.Result {
	out := r.Clone()
	if out.Validated {
		return out
	}
	if out.RejectionReason == "" {
		out = v.Validate(out)
		if out.Validated {
			return out
		}
	}

	center := v.cfg.Center
	out.Coordinates = &center
	out.Fallback = true
	if out.Confidence > v.cfg.FallbackConfidence {
		out.Confidence = v.cfg.FallbackConfidence
	}
	return out
}

// EnhanceQuery appends ", <qualifier>" to q unless q already mentions one of
// the regional keywords (case-insensitive). Blank queries are returned
// unchanged.
func (v *Validator) EnhanceQuery(q string) string {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" || v.cfg.Qualifier == "" {
		return q
	}
	lower := strings.ToLower(trimmed)
	for _, k := range v.keywords {
		if strings.Contains(lower, k) {
			return q
		}
	}
	return trimmed + ", " + v.cfg.Qualifier
}
