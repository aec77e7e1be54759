// Package exif reads GPS coordinates and capture details from image metadata.
package exif

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/geo"
)

// Confidence is assigned to every EXIF GPS candidate.
const Confidence = 0.90

// ErrNoGPS means the metadata has no usable GPS position.
var ErrNoGPS = errors.New("no GPS position in metadata")

// Metadata is the subset of EXIF the locator cares about.
type Metadata struct {
	Coordinates *geo.Coordinates `json:"coordinates,omitempty"`
	Taken       time.Time        `json:"taken,omitempty"`
	CameraMake  string           `json:"camera_make,omitempty"`
	CameraModel string           `json:"camera_model,omitempty"`
}

// ReadFile decodes metadata from the image at path. A file without EXIF
// yields empty Metadata and no error; only I/O failures are returned.
func ReadFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes metadata from r. Decoding problems are not errors: whatever
// could be parsed is returned.
func Read(r io.Reader) (*Metadata, error) {
	x, err := goexif.Decode(r)
	if x == nil || (err != nil && goexif.IsCriticalError(err)) {
		return &Metadata{}, nil
	}

	md := &Metadata{}
	if lat, lon, err := x.LatLong(); err == nil {
		c := geo.Coordinates{Lat: lat, Lon: lon}
		// Many cameras write 0,0 when they have no fix.
		if c.Valid() && (lat != 0 || lon != 0) {
			md.Coordinates = &c
		}
	}
	if t, err := x.DateTime(); err == nil {
		md.Taken = t
	}
	md.CameraMake = stringField(x, goexif.Make)
	md.CameraModel = stringField(x, goexif.Model)
	return md, nil
}

func stringField(x *goexif.Exif, name goexif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Locate returns an exif candidate for the image at path, or ErrNoGPS.
func Locate(path string) (evidence.Candidate, error) {
	md, err := ReadFile(path)
	if err != nil {
		return evidence.Candidate{}, err
	}
	return md.Candidate(path)
}

// Candidate converts the GPS position to a candidate, or returns ErrNoGPS.
func (m *Metadata) Candidate(path string) (evidence.Candidate, error) {
	if m.Coordinates == nil {
		return evidence.Candidate{}, ErrNoGPS
	}
	return evidence.New(*m.Coordinates, Confidence, evidence.ExifProvenance{Path: path}), nil
}
