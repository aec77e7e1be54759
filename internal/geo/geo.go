// Package geo holds the coordinate and bounding-box types shared by every
// geolocation component.
//
// Coordinates are WGS 84 degrees. Internally the package converts to
// github.com/paulmach/orb points, which use [lon, lat] ordering; callers never
// see that ordering.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// ErrInvalidBounds is returned when a bounding box violates min < max on
// either axis or contains non-finite values.
var ErrInvalidBounds = errors.New("invalid region bounds")

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat" toml:"lat"`
	Lon float64 `json:"lon" toml:"lon"`
}

// Point returns the coordinates as an orb point.
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// Valid reports whether the coordinates are finite and inside the WGS 84 range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Ptr returns a pointer to a copy of c.
func (c Coordinates) Ptr() *Coordinates {
	return &c
}

// DistanceMeters returns the haversine distance between a and b in meters.
func DistanceMeters(a, b Coordinates) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// Bounds is a rectangular lat/lon box. Both edges are inclusive.
type Bounds struct {
	MinLat float64 `json:"min_lat" toml:"min_lat"`
	MaxLat float64 `json:"max_lat" toml:"max_lat"`
	MinLon float64 `json:"min_lon" toml:"min_lon"`
	MaxLon float64 `json:"max_lon" toml:"max_lon"`
}

// Validate checks the min < max invariant on both axes.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidBounds)
		}
	}
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("%w: min_lat %.6f must be < max_lat %.6f", ErrInvalidBounds, b.MinLat, b.MaxLat)
	}
	if b.MinLon >= b.MaxLon {
		return fmt.Errorf("%w: min_lon %.6f must be < max_lon %.6f", ErrInvalidBounds, b.MinLon, b.MaxLon)
	}
	return nil
}

// Bound converts b to an orb.Bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Contains reports whether c lies inside b, edges included.
func (b Bounds) Contains(c Coordinates) bool {
	return b.Bound().Contains(c.Point())
}

// Center returns the geometric center of the box.
func (b Bounds) Center() Coordinates {
	p := b.Bound().Center()
	return Coordinates{Lat: p[1], Lon: p[0]}
}
