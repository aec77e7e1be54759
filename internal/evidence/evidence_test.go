package evidence

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/geolocate-mcp/internal/geo"
)

func TestSourceNamesRoundTrip(t *testing.T) {
	for s := SourceExif; s <= SourceObjectContext; s++ {
		parsed, err := ParseSource(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseSource("satellite")
	assert.Error(t, err)
}

func TestSourceJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		S Source `json:"s"`
	}{SourceOCRPostalCode})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"ocr_postal_code"}`, string(b))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.0, ClampConfidence(math.NaN()))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
}

func TestProvenanceDeterminesSource(t *testing.T) {
	c := New(geo.Coordinates{Lat: 1, Lon: 2}, 0.5, PlateProvenance{Normalized: "A123BC77", RegionCode: "77"})
	assert.Equal(t, SourceLicensePlate, c.Source())
	assert.Equal(t, "license_plate", ContributionOf(c).Source)
	assert.Contains(t, ContributionOf(c).Detail, "77")
}

func TestSortByExtractorOrder(t *testing.T) {
	in := []Candidate{
		New(geo.Coordinates{Lat: 1}, 0.5, PlateProvenance{RegionCode: "a"}),
		New(geo.Coordinates{Lat: 2}, 0.5, ExifProvenance{}),
		New(geo.Coordinates{Lat: 3}, 0.5, PlateProvenance{RegionCode: "b"}),
		New(geo.Coordinates{Lat: 4}, 0.5, ArchiveProvenance{RecordID: "r"}),
	}
	out := SortByExtractorOrder(in)

	require.Len(t, out, 4)
	assert.Equal(t, SourceExif, out[0].Source())
	assert.Equal(t, SourceArchiveMatch, out[1].Source())
	assert.Equal(t, 1.0, out[2].Coordinates.Lat, "same-source order must be kept")
	assert.Equal(t, 3.0, out[3].Coordinates.Lat)
	assert.Equal(t, SourceLicensePlate, in[0].Source(), "input must not be reordered")
}

func TestResultClone(t *testing.T) {
	r := Result{
		Coordinates:   &geo.Coordinates{Lat: 1, Lon: 2},
		Contributions: []Contribution{{Source: "exif"}},
	}
	c := r.Clone()
	c.Coordinates.Lat = 9
	c.Contributions[0].Source = "x"

	assert.Equal(t, 1.0, r.Coordinates.Lat)
	assert.Equal(t, "exif", r.Contributions[0].Source)
}

func TestNoEvidence(t *testing.T) {
	r := NoEvidence()
	assert.Nil(t, r.Coordinates)
	assert.Zero(t, r.Confidence)
	assert.False(t, r.Validated)
	assert.Equal(t, ReasonNoEvidence, r.RejectionReason)
}
