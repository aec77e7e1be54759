// Package plate parses Russian vehicle registration plates and maps the
// region code they carry to a representative coordinate.
//
// A civilian plate reads "A123BC77": one letter, three digits, two letters,
// then a 2- or 3-digit region code. Only the twelve letters whose Latin and
// Cyrillic forms look alike are used, which is also why OCR may return either
// script. Everything here works on the canonical Latin form.
package plate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
)

// Letters is the canonical plate alphabet.
const Letters = "ABEKMHOPCTYX"

// cyrillicToLatin maps each Cyrillic plate letter to its Latin twin.
var cyrillicToLatin = map[rune]rune{
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M', 'Н': 'H',
	'О': 'O', 'Р': 'P', 'С': 'C', 'Т': 'T', 'У': 'Y', 'Х': 'X',
}

var platePattern = regexp.MustCompile(`^([` + Letters + `])(\d{3})([` + Letters + `]{2})(\d{2,3})$`)

// Plate is a parsed registration number.
type Plate struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Series     string `json:"series"`
	Number     string `json:"number"`
	RegionCode string `json:"region_code"`
}

// Normalize upper-cases s, drops everything that is not a letter or digit,
// maps Cyrillic plate letters to Latin, and removes a trailing "RUS" marker.
// Letters outside the plate alphabet are kept so they fail parsing.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		if l, ok := cyrillicToLatin[r]; ok {
			r = l
		}
		b.WriteRune(r)
	}
	return strings.TrimSuffix(b.String(), "RUS")
}

// Parse recognises a plate in s.
func Parse(s string) (Plate, bool) {
	n := Normalize(s)
	m := platePattern.FindStringSubmatch(n)
	if m == nil {
		return Plate{}, false
	}
	return Plate{
		Raw:        s,
		Normalized: n,
		Series:     m[1] + m[3],
		Number:     m[2],
		RegionCode: m[4],
	}, true
}

// Region returns the registration region of the plate.
func (p Plate) Region() (Region, bool) {
	return LookupRegion(p.RegionCode)
}

// Token is one piece of recognised text with the OCR engine's confidence in
// [0,1].
type Token struct {
	Text       string
	Confidence float64
}

// Locate returns a candidate for the most legible plate among tokens whose
// region code is known. A token is tried alone first; when OCR splits a plate
// across adjacent tokens ("A 123 BC 77") up to four consecutive tokens are
// joined, with the lowest confidence among them. The highest confidence wins
// and the first one seen wins ties.
func Locate(tokens []Token) (evidence.Candidate, bool) {
	var (
		best      evidence.Candidate
		bestFound bool
	)
	consider := func(raw string, conf float64) bool {
		p, ok := Parse(raw)
		if !ok {
			return false
		}
		reg, ok := p.Region()
		if !ok {
			return false
		}
		if bestFound && conf <= best.Confidence {
			return true
		}
		best = evidence.New(reg.Coordinates, conf, evidence.PlateProvenance{
			RawText:    raw,
			Normalized: p.Normalized,
			RegionCode: p.RegionCode,
			Region:     reg.Name,
		})
		bestFound = true
		return true
	}

	for i := range tokens {
		if consider(tokens[i].Text, tokens[i].Confidence) {
			continue
		}
		joined := tokens[i].Text
		conf := tokens[i].Confidence
		for j := i + 1; j < len(tokens) && j < i+4; j++ {
			joined += " " + tokens[j].Text
			conf = min(conf, tokens[j].Confidence)
			if consider(joined, conf) {
				break
			}
		}
	}
	return best, bestFound
}
