// Package fusion merges location evidence into a single estimate.
//
// SingleAsset handles the candidates of one photograph: it ranks them and
// takes the most confident one as is, because a photo has one true location
// and averaging unrelated signals would produce a point nobody observed.
//
// MultiAsset handles several photos or videos of the same physical object:
// it blends their per-asset estimates into a confidence-weighted centroid.
//
// Both aggregators are pure functions of their input and finish by passing
// the result through a Validator.
package fusion

import (
	"sort"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
)

// Validator is the region check applied to every aggregated result.
// *region.Validator implements it.
type Validator interface {
	Validate(evidence.Result) evidence.Result
}

// SingleAsset aggregates the candidates produced for one image.
type SingleAsset struct {
	validator Validator
}

// NewSingleAsset creates a single-asset aggregator. A nil validator leaves
// results unvalidated.
func NewSingleAsset(v Validator) *SingleAsset {
	return &SingleAsset{validator: v}
}

// Aggregate picks the highest-confidence candidate.
//
// Candidates are stable-sorted by confidence, so on equal confidence the one
// that came first wins; callers feed candidates in extractor order (see
// evidence.SortByExtractorOrder) so direct signals outrank inferred ones.
// The result carries the winner's coordinates and confidence, and lists every
// candidate, in ranked order, as a contribution. cands is not modified.
func (a *SingleAsset) Aggregate(cands []evidence.Candidate) evidence.Result {
	if len(cands) == 0 {
		return a.validate(evidence.NoEvidence())
	}

	ranked := make([]evidence.Candidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	winner := ranked[0]
	contributions := make([]evidence.Contribution, len(ranked))
	for i, c := range ranked {
		contributions[i] = evidence.ContributionOf(c)
	}

	coords := winner.Coordinates
	return a.validate(evidence.Result{
		Coordinates:   &coords,
		Confidence:    evidence.ClampConfidence(winner.Confidence),
		Contributions: contributions,
	})
}

func (a *SingleAsset) validate(r evidence.Result) evidence.Result {
	if a.validator == nil {
		return r
	}
	return a.validator.Validate(r)
}
