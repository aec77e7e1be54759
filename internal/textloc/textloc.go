// Package textloc turns recognised text into location candidates.
//
// Three kinds of hint are recognised: telephone area codes, 6-digit postal
// codes, and street addresses. Area and postal codes resolve through the
// static tables in this package; addresses need an AddressResolver, usually
// an external geocoder.
package textloc

import (
	"context"
	"regexp"
	"strings"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/geo"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
)

// Fixed confidences per hint kind.
const (
	AddressConfidence    = 0.70
	PhoneCodeConfidence  = 0.80
	PostalCodeConfidence = 0.85
)

var (
	phonePattern = regexp.MustCompile(
		`(?:(?:\+\s*7|\b8)[\s\-]*\(?\s*(\d{3})\s*\)?|\(\s*(\d{3})\s*\))[\s\-]*\d{3}[\s\-]?\d{2}[\s\-]?\d{2}\b`)

	postalPattern = regexp.MustCompile(`\b(\d{6})\b`)

	addressPatterns = []*regexp.Regexp{
		// ул. Тверская, д. 7
		regexp.MustCompile(`(?i)(?:(?:улица|проспект|переулок|шоссе|бульвар|набережная|площадь)\s+|(?:ул|пр|просп|пер|ш|наб|пл)\.\s*|(?:пр-т|б-р)\s*)` +
			`\p{L}[\p{L}\-\. ]{1,40}?,?\s*(?:дом\s*|д\.\s*)?\d{1,4}\p{L}?`),
		// Ленинский проспект, 10
		regexp.MustCompile(`(?i)\p{L}[\p{L}\-]*\s+(?:улица|проспект|переулок|шоссе|бульвар|набережная|площадь|ул\.|пр-т|пер\.)\s*,?\s*(?:дом\s*|д\.\s*)?\d{1,4}\p{L}?`),
		// 221 Baker Street
		regexp.MustCompile(`(?i)\b\d{1,5}\s+\p{L}[\p{L}\- ]{1,40}?\s+(?:street|avenue|lane|road|boulevard|st\.|ave\.|rd\.|blvd\.)`),
		// Tverskaya Street 7
		regexp.MustCompile(`(?i)\b\p{L}[\p{L}\-]*\s+(?:street|avenue|lane|road|boulevard)\s*,?\s*\d{1,4}\b`),
	}

	spaces = regexp.MustCompile(`\s+`)
)

// PhoneHint is a telephone number whose area code was recognised.
type PhoneHint struct {
	MatchedText string `json:"matched_text"`
	AreaCode    string `json:"area_code"`
}

// AddressHint is a street address found in text.
type AddressHint struct {
	MatchedText string `json:"matched_text"`
	// Query is MatchedText with whitespace collapsed and trailing
	// punctuation removed, ready for a geocoder.
	Query string `json:"query"`
}

// Hints is everything Extract recognised in a piece of text, in order of
// first appearance and without duplicates.
type Hints struct {
	Phones      []PhoneHint   `json:"phones"`
	PostalCodes []string      `json:"postal_codes"`
	Addresses   []AddressHint `json:"addresses"`
}

// Empty reports whether no hint was found.
func (h Hints) Empty() bool {
	return len(h.Phones) == 0 && len(h.PostalCodes) == 0 && len(h.Addresses) == 0
}

// Resolution is a geocoded address.
type Resolution struct {
	Coordinates geo.Coordinates
	DisplayName string
}

// AddressResolver resolves a free-form address. A nil Resolution with a nil
// error means the address was not found.
type AddressResolver interface {
	ResolveAddress(ctx context.Context, query string) (*Resolution, error)
}

// QueryEnhancer qualifies an address query with the region of interest.
// *region.Validator implements it.
type QueryEnhancer interface {
	EnhanceQuery(q string) string
}

// Locator produces candidates from recognised text.
type Locator struct {
	resolver AddressResolver
	enhancer QueryEnhancer
}

// NewLocator creates a Locator. Both arguments are optional: without a
// resolver addresses are extracted but not located, and without an enhancer
// queries are sent as written.
func NewLocator(resolver AddressResolver, enhancer QueryEnhancer) *Locator {
	return &Locator{resolver: resolver, enhancer: enhancer}
}

// Extract finds phone numbers, postal codes and addresses in text.
func Extract(text string) Hints {
	var h Hints

	seenPhone := map[string]bool{}
	for _, m := range phonePattern.FindAllStringSubmatch(text, -1) {
		code := m[1]
		if code == "" {
			code = m[2]
		}
		if seenPhone[code] {
			continue
		}
		seenPhone[code] = true
		h.Phones = append(h.Phones, PhoneHint{MatchedText: m[0], AreaCode: code})
	}

	// Phone digits must not be mistaken for postal codes.
	rest := phonePattern.ReplaceAllString(text, " ")
	seenPostal := map[string]bool{}
	for _, m := range postalPattern.FindAllStringSubmatch(rest, -1) {
		if seenPostal[m[1]] {
			continue
		}
		seenPostal[m[1]] = true
		h.PostalCodes = append(h.PostalCodes, m[1])
	}

	h.Addresses = extractAddresses(rest)
	return h
}

func extractAddresses(text string) []AddressHint {
	type span struct{ start, end int }
	var taken []span
	overlaps := func(s span) bool {
		for _, t := range taken {
			if s.start < t.end && t.start < s.end {
				return true
			}
		}
		return false
	}

	var out []AddressHint
	seen := map[string]bool{}
	for _, re := range addressPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			s := span{loc[0], loc[1]}
			if overlaps(s) {
				continue
			}
			taken = append(taken, s)

			matched := text[s.start:s.end]
			query := normalizeQuery(matched)
			key := strings.ToLower(query)
			if query == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, AddressHint{MatchedText: matched, Query: query})
		}
	}
	return out
}

func normalizeQuery(s string) string {
	s = spaces.ReplaceAllString(s, " ")
	return strings.Trim(s, " ,.;:")
}

// Locate extracts hints from text and turns each resolvable one into a
// candidate, at most one per distinct area code, postal code or address.
// Candidates come out in extractor order: addresses, phone codes, postal
// codes. Resolver failures are logged and skipped.
func (l *Locator) Locate(ctx context.Context, text string) []evidence.Candidate {
	h := Extract(text)
	var out []evidence.Candidate

	if l.resolver != nil {
		for _, a := range h.Addresses {
			if ctx.Err() != nil {
				break
			}
			query := a.Query
			if l.enhancer != nil {
				query = l.enhancer.EnhanceQuery(query)
			}
			res, err := l.resolver.ResolveAddress(ctx, query)
			if err != nil {
				logger.Warnf("textloc: resolve %q: %v", query, err)
				continue
			}
			if res == nil || !res.Coordinates.Valid() {
				logger.Debugf("textloc: no match for %q", query)
				continue
			}
			out = append(out, evidence.New(res.Coordinates, AddressConfidence, evidence.AddressProvenance{
				MatchedText: a.MatchedText,
				Query:       query,
				DisplayName: res.DisplayName,
			}))
		}
	}

	for _, p := range h.Phones {
		city, ok := LookupAreaCode(p.AreaCode)
		if !ok {
			continue
		}
		out = append(out, evidence.New(city.Coordinates, PhoneCodeConfidence, evidence.PhoneCodeProvenance{
			MatchedText: p.MatchedText,
			AreaCode:    p.AreaCode,
			City:        city.Name,
		}))
	}

	for _, code := range h.PostalCodes {
		area, rule, ok := LookupPostalCode(code)
		if !ok {
			continue
		}
		out = append(out, evidence.New(area.Coordinates, PostalCodeConfidence, evidence.PostalCodeProvenance{
			PostalCode: code,
			Area:       area.Name,
			Rule:       rule,
		}))
	}

	return out
}
