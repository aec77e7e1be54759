package fusion

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/geo"
)

// AssetEstimate is the outcome of the single-asset path for one member of an
// object group.
type AssetEstimate struct {
	Coordinates *geo.Coordinates `json:"coordinates"`
	Confidence  float64          `json:"confidence"`
	// Label names the asset or the source of the estimate, for audit.
	Label string `json:"label"`
}

// MultiAsset aggregates estimates from several assets that depict the same
// object.
type MultiAsset struct {
	validator Validator
}

// NewMultiAsset creates a multi-asset aggregator. A nil validator leaves
// results unvalidated.
func NewMultiAsset(v Validator) *MultiAsset {
	return &MultiAsset{validator: v}
}

// Aggregate computes the confidence-weighted centroid of the estimates that
// have coordinates:
//
//	lat = Σ(c_i·lat_i) / Σc_i      (lon likewise)
//	confidence = min(1, Σc_i / n)
//
// Every estimate contributes; there is no outlier rejection, so one confident
// but wrong estimate pulls the centroid toward it. SpreadMeters reports the
// largest distance from the centroid to a contributing estimate so callers can
// spot that case. When every confidence is zero the centroid falls back to the
// unweighted mean with confidence 0.
//
// Contributions list the estimates by descending confidence.
func (a *MultiAsset) Aggregate(estimates []AssetEstimate) evidence.Result {
	valid := make([]AssetEstimate, 0, len(estimates))
	for _, e := range estimates {
		if e.Coordinates == nil || !e.Coordinates.Valid() {
			continue
		}
		e.Confidence = evidence.ClampConfidence(e.Confidence)
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return a.validate(evidence.NoEvidence())
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Confidence > valid[j].Confidence
	})

	lats := make([]float64, len(valid))
	lons := make([]float64, len(valid))
	weights := make([]float64, len(valid))
	var total float64
	for i, e := range valid {
		lats[i] = e.Coordinates.Lat
		lons[i] = e.Coordinates.Lon
		weights[i] = e.Confidence
		total += e.Confidence
	}

	w := weights
	if total == 0 {
		w = nil
	}
	centroid := geo.Coordinates{
		Lat: stat.Mean(lats, w),
		Lon: stat.Mean(lons, w),
	}

	contributions := make([]evidence.Contribution, len(valid))
	var spread float64
	for i, e := range valid {
		contributions[i] = evidence.Contribution{
			Source:      e.Label,
			Confidence:  e.Confidence,
			Coordinates: *e.Coordinates,
		}
		spread = math.Max(spread, geo.DistanceMeters(centroid, *e.Coordinates))
	}

	return a.validate(evidence.Result{
		Coordinates:   &centroid,
		Confidence:    math.Min(1, total/float64(len(valid))),
		Contributions: contributions,
		SpreadMeters:  spread,
	})
}

func (a *MultiAsset) validate(r evidence.Result) evidence.Result {
	if a.validator == nil {
		return r
	}
	return a.validator.Validate(r)
}
