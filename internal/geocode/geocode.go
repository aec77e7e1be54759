// Package geocode talks to an external geocoding provider.
//
// The only provider is Nominatim (OpenStreetMap). Requests are paced with a
// token bucket because the public instance allows about one request per
// second, and every call honours the caller's context.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/geo"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
	"github.com/ironsheep/geolocate-mcp/internal/textloc"
)

// Confidence is assigned to external_geocode candidates.
const Confidence = 0.75

const providerName = "nominatim"

var (
	// ErrRateLimited is returned when the provider answers 429.
	ErrRateLimited = errors.New("geocoder rate limit exceeded")

	// ErrDisabled is returned by every call when geocoding is turned off.
	ErrDisabled = errors.New("geocoder disabled")
)

// Place is one geocoding result.
type Place struct {
	Coordinates geo.Coordinates `json:"coordinates"`
	DisplayName string          `json:"display_name"`
	Type        string          `json:"type,omitempty"`
	Importance  float64         `json:"importance,omitempty"`
}

// Geocoder resolves free text to places and coordinates to an address.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]Place, error)
	Reverse(ctx context.Context, c geo.Coordinates) (*Place, error)
}

// Config configures the Nominatim client.
type Config struct {
	Enabled           bool    `toml:"enabled"`
	BaseURL           string  `toml:"base_url"`
	UserAgent         string  `toml:"user_agent"`
	Language          string  `toml:"language"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	Limit             int     `toml:"limit"`

	// Bounded restricts searches to this viewbox when set.
	Bounded *geo.Bounds `toml:"-"`
}

// DefaultConfig points at the public Nominatim instance, disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		BaseURL:           "https://nominatim.openstreetmap.org",
		UserAgent:         "geolocate-mcp/1.0",
		Language:          "ru,en",
		RequestsPerSecond: 1,
		TimeoutSeconds:    10,
		Limit:             5,
	}
}

// Nominatim is a Geocoder backed by the Nominatim HTTP API.
type Nominatim struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

var (
	_ Geocoder                = (*Nominatim)(nil)
	_ textloc.AddressResolver = (*Nominatim)(nil)
)

// NewNominatim creates a client. Zero values in cfg fall back to defaults.
func NewNominatim(cfg Config) *Nominatim {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = def.TimeoutSeconds
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Nominatim{
		cfg:     cfg,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
	Error       string  `json:"error"`
}

func (p nominatimPlace) place() (Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("failed to parse latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("failed to parse longitude %q: %w", p.Lon, err)
	}
	c := geo.Coordinates{Lat: lat, Lon: lon}
	if !c.Valid() {
		return Place{}, fmt.Errorf("provider returned invalid coordinates %v", c)
	}
	return Place{
		Coordinates: c,
		DisplayName: p.DisplayName,
		Type:        p.Type,
		Importance:  p.Importance,
	}, nil
}

// Search geocodes free text. An empty slice means nothing matched.
func (n *Nominatim) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(n.cfg.Limit))
	if b := n.cfg.Bounded; b != nil {
		params.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f", b.MinLon, b.MaxLat, b.MaxLon, b.MinLat))
		params.Set("bounded", "1")
	}

	var raw []nominatimPlace
	if err := n.get(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		p, err := r.place()
		if err != nil {
			logger.Debugf("geocode: skipping result for %q: %v", query, err)
			continue
		}
		places = append(places, p)
	}
	return places, nil
}

// Reverse returns the address at c, or nil when the provider knows none.
func (n *Nominatim) Reverse(ctx context.Context, c geo.Coordinates) (*Place, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	params.Set("format", "jsonv2")

	var raw nominatimPlace
	if err := n.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, nil
	}
	p, err := raw.place()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ResolveAddress returns the best match for an address found in text.
func (n *Nominatim) ResolveAddress(ctx context.Context, query string) (*textloc.Resolution, error) {
	return resolveFirst(ctx, n, query)
}

type resolver struct{ g Geocoder }

func (r resolver) ResolveAddress(ctx context.Context, query string) (*textloc.Resolution, error) {
	return resolveFirst(ctx, r.g, query)
}

// AsResolver adapts any Geocoder to the text locator's address resolver.
func AsResolver(g Geocoder) textloc.AddressResolver {
	if r, ok := g.(textloc.AddressResolver); ok {
		return r
	}
	return resolver{g: g}
}

func resolveFirst(ctx context.Context, g Geocoder, query string) (*textloc.Resolution, error) {
	places, err := g.Search(ctx, query)
	if err != nil || len(places) == 0 {
		return nil, err
	}
	return &textloc.Resolution{
		Coordinates: places[0].Coordinates,
		DisplayName: places[0].DisplayName,
	}, nil
}

func (n *Nominatim) get(ctx context.Context, path string, params url.Values, out any) error {
	if !n.cfg.Enabled {
		return ErrDisabled
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)
	if n.cfg.Language != "" {
		req.Header.Set("Accept-Language", n.cfg.Language)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("geocoder returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	return nil
}

// Candidate turns a search result into an external_geocode candidate.
func Candidate(query string, p Place) evidence.Candidate {
	return evidence.New(p.Coordinates, Confidence, evidence.GeocodeProvenance{
		Provider:    providerName,
		Query:       query,
		DisplayName: p.DisplayName,
	})
}

// Locate geocodes a caller-supplied hint into a candidate. ok is false when
// nothing matched.
func Locate(ctx context.Context, g Geocoder, query string) (c evidence.Candidate, ok bool, err error) {
	places, err := g.Search(ctx, query)
	if err != nil {
		return evidence.Candidate{}, false, err
	}
	if len(places) == 0 {
		return evidence.Candidate{}, false, nil
	}
	return Candidate(query, places[0]), true, nil
}
