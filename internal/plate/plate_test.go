package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a123bc77", "A123BC77"},
		{"А 123 ВС 77", "A123BC77"},
		{"a-123-bc-777 rus", "A123BC777"},
		{"Х 001 ХХ 199", "X001XX199"},
		{"Д123ВС77", "Д123BC77"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		ok     bool
		region string
	}{
		{"A123BC77", true, "77"},
		{"м 456 кх 750", true, "750"},
		{"O001OO 99 RUS", true, "99"},
		{"A12BC77", false, ""},
		{"A123B77", false, ""},
		{"A123BC7", false, ""},
		{"A123BC7777", false, ""},
		{"Z123BC77", false, ""},
		{"Д123ВС77", false, ""},
		{"123ABC77", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, ok := Parse(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.region, p.RegionCode)
			if ok {
				assert.Equal(t, tt.in, p.Raw)
				assert.Len(t, p.Series, 3)
				assert.Len(t, p.Number, 3)
			}
		})
	}
}

// Every mix of Latin and Cyrillic twins must land on the same region.
func TestParseScriptRoundTrip(t *testing.T) {
	latin := []rune(Letters)
	cyrillic := []rune("АВЕКМНОРСТУХ")
	require.Len(t, cyrillic, len(latin))

	for i := range latin {
		l, c := string(latin[i]), string(cyrillic[i])
		variants := []string{
			l + "123" + l + l + "77",
			c + "123" + c + c + "77",
			l + "123" + c + l + "77",
			c + "123" + l + c + "77",
		}
		var want Plate
		for j, v := range variants {
			p, ok := Parse(v)
			require.True(t, ok, v)
			r, ok := p.Region()
			require.True(t, ok)
			assert.Equal(t, "Moscow", r.Name)
			if j == 0 {
				want = p
				continue
			}
			assert.Equal(t, want.Normalized, p.Normalized, v)
		}
	}
}

func TestLookupRegion(t *testing.T) {
	for _, code := range []string{"77", "97", "99", "177", "197", "199", "777", "797", "799", "977"} {
		r, ok := LookupRegion(code)
		require.True(t, ok, code)
		assert.Equal(t, "Moscow", r.Name)
		assert.Equal(t, code, r.Code)
		assert.InDelta(t, 55.7558, r.Coordinates.Lat, 1e-9)
		assert.InDelta(t, 37.6173, r.Coordinates.Lon, 1e-9)
	}

	r, ok := LookupRegion("50")
	require.True(t, ok)
	assert.Equal(t, "Moscow Oblast", r.Name)

	_, ok = LookupRegion("00")
	assert.False(t, ok)
	_, ok = LookupRegion("7")
	assert.False(t, ok)
}

func TestRegionTable(t *testing.T) {
	seen := map[string]string{}
	for _, e := range regionEntries {
		require.NotEmpty(t, e.codes, e.name)
		for _, code := range e.codes {
			prev, dup := seen[code]
			assert.False(t, dup, "code %s used by %s and %s", code, prev, e.name)
			seen[code] = e.name
			assert.Regexp(t, `^\d{2,3}$`, code)
		}
	}
	assert.GreaterOrEqual(t, len(regionEntries), 80)
	for code, r := range regionsByCode {
		assert.True(t, r.Coordinates.Valid(), code)
	}
}

func TestLocate(t *testing.T) {
	t.Run("no tokens", func(t *testing.T) {
		_, ok := Locate(nil)
		assert.False(t, ok)
	})

	t.Run("no plate", func(t *testing.T) {
		_, ok := Locate([]Token{{"STOP", 0.9}, {"ул. Тверская", 0.8}})
		assert.False(t, ok)
	})

	t.Run("unknown region", func(t *testing.T) {
		_, ok := Locate([]Token{{"A123BC00", 0.9}})
		assert.False(t, ok)
	})

	t.Run("confidence is the OCR confidence", func(t *testing.T) {
		c, ok := Locate([]Token{{"Х777ХХ 178", 0.63}})
		require.True(t, ok)
		assert.Equal(t, evidence.SourceLicensePlate, c.Source())
		assert.Equal(t, 0.63, c.Confidence)
		p := c.Provenance.(evidence.PlateProvenance)
		assert.Equal(t, "X777XX178", p.Normalized)
		assert.Equal(t, "178", p.RegionCode)
		assert.Equal(t, "Saint Petersburg", p.Region)
		assert.Equal(t, "Х777ХХ 178", p.RawText)
	})

	t.Run("highest confidence wins", func(t *testing.T) {
		c, ok := Locate([]Token{
			{"A123BC77", 0.5},
			{"B456EK50", 0.9},
			{"C789MH16", 0.7},
		})
		require.True(t, ok)
		assert.Equal(t, "50", c.Provenance.(evidence.PlateProvenance).RegionCode)
	})

	t.Run("ties go to first seen", func(t *testing.T) {
		c, ok := Locate([]Token{
			{"A123BC16", 0.8},
			{"B456EK50", 0.8},
		})
		require.True(t, ok)
		assert.Equal(t, "16", c.Provenance.(evidence.PlateProvenance).RegionCode)
	})

	t.Run("split across tokens", func(t *testing.T) {
		c, ok := Locate([]Token{
			{"парковка", 0.95},
			{"A", 0.9},
			{"123", 0.8},
			{"BC", 0.85},
			{"77", 0.7},
		})
		require.True(t, ok)
		assert.Equal(t, 0.7, c.Confidence)
		assert.Equal(t, "A123BC77", c.Provenance.(evidence.PlateProvenance).Normalized)
	})
}
