// Package config loads the static service configuration.
//
// Settings come from three layers, later ones winning: built-in defaults
// (the Moscow operational region), an optional TOML file and GEOLOCATE_*
// environment variables. The loaded configuration is validated once and is
// never changed while the process runs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ironsheep/geolocate-mcp/internal/geocode"
	"github.com/ironsheep/geolocate-mcp/internal/ocr"
	"github.com/ironsheep/geolocate-mcp/internal/region"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// IndexConfig controls the reference archive lookup.
type IndexConfig struct {
	// SnapshotPath is the gob snapshot loaded at startup, if present.
	SnapshotPath  string  `toml:"snapshot_path"`
	TopK          int     `toml:"top_k"`
	MinSimilarity float64 `toml:"min_similarity"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `toml:"path"`
}

// PipelineConfig tunes per-asset processing.
type PipelineConfig struct {
	Workers        int    `toml:"workers"`
	FFmpegPath     string `toml:"ffmpeg_path"`
	FramesPerVideo int    `toml:"frames_per_video"`

	// CenterFallback replaces rejected coordinates with the region center.
	CenterFallback bool `toml:"center_fallback"`

	// ReverseGeocode attaches an address to validated results.
	ReverseGeocode bool `toml:"reverse_geocode"`
}

// Config is the whole configuration file.
type Config struct {
	LogLevel string         `toml:"log_level"`
	Region   region.Config  `toml:"region"`
	Index    IndexConfig    `toml:"index"`
	OCR      ocr.Config     `toml:"ocr"`
	Storage  StorageConfig  `toml:"storage"`
	Geocoder geocode.Config `toml:"geocoder"`
	Pipeline PipelineConfig `toml:"pipeline"`
}

// Dir returns ~/.geolocate, or the working directory if home is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".geolocate"
	}
	return filepath.Join(home, ".geolocate")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the built-in configuration.
func Default() Config {
	dir := Dir()
	return Config{
		LogLevel: "info",
		Region:   region.DefaultConfig(),
		Index: IndexConfig{
			SnapshotPath:  filepath.Join(dir, "index.gob"),
			TopK:          5,
			MinSimilarity: 0.80,
		},
		OCR:      ocr.DefaultConfig(),
		Storage:  StorageConfig{Path: filepath.Join(dir, "geolocate.db")},
		Geocoder: geocode.DefaultConfig(),
		Pipeline: PipelineConfig{
			Workers:        4,
			FFmpegPath:     "ffmpeg",
			FramesPerVideo: 5,
		},
	}
}

// Load reads path (or DefaultPath when empty) over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// applyEnv overrides file values with GEOLOCATE_* environment variables.
func applyEnv(c *Config) {
	c.LogLevel = getEnv("GEOLOCATE_LOG_LEVEL", c.LogLevel)

	c.Region.Bounds.MinLat = getEnvAsFloat("GEOLOCATE_REGION_MIN_LAT", c.Region.Bounds.MinLat)
	c.Region.Bounds.MaxLat = getEnvAsFloat("GEOLOCATE_REGION_MAX_LAT", c.Region.Bounds.MaxLat)
	c.Region.Bounds.MinLon = getEnvAsFloat("GEOLOCATE_REGION_MIN_LON", c.Region.Bounds.MinLon)
	c.Region.Bounds.MaxLon = getEnvAsFloat("GEOLOCATE_REGION_MAX_LON", c.Region.Bounds.MaxLon)
	c.Region.Center.Lat = getEnvAsFloat("GEOLOCATE_REGION_CENTER_LAT", c.Region.Center.Lat)
	c.Region.Center.Lon = getEnvAsFloat("GEOLOCATE_REGION_CENTER_LON", c.Region.Center.Lon)
	c.Region.Qualifier = getEnv("GEOLOCATE_REGION_QUALIFIER", c.Region.Qualifier)
	c.Region.Keywords = getEnvAsSlice("GEOLOCATE_REGION_KEYWORDS", c.Region.Keywords)

	c.Index.SnapshotPath = getEnv("GEOLOCATE_INDEX_SNAPSHOT", c.Index.SnapshotPath)
	c.Index.TopK = getEnvAsInt("GEOLOCATE_INDEX_TOP_K", c.Index.TopK)
	c.Index.MinSimilarity = getEnvAsFloat("GEOLOCATE_INDEX_MIN_SIMILARITY", c.Index.MinSimilarity)

	c.OCR.Languages = getEnvAsSlice("GEOLOCATE_OCR_LANGUAGES", c.OCR.Languages)
	c.OCR.TessdataPrefix = getEnv("TESSDATA_PREFIX", c.OCR.TessdataPrefix)
	c.OCR.PlatePass = getEnvAsBool("GEOLOCATE_OCR_PLATE_PASS", c.OCR.PlatePass)

	c.Storage.Path = getEnv("GEOLOCATE_DB", c.Storage.Path)

	c.Geocoder.Enabled = getEnvAsBool("GEOLOCATE_GEOCODER_ENABLED", c.Geocoder.Enabled)
	c.Geocoder.BaseURL = getEnv("GEOLOCATE_GEOCODER_URL", c.Geocoder.BaseURL)
	c.Geocoder.UserAgent = getEnv("GEOLOCATE_GEOCODER_USER_AGENT", c.Geocoder.UserAgent)

	c.Pipeline.Workers = getEnvAsInt("GEOLOCATE_WORKERS", c.Pipeline.Workers)
	c.Pipeline.FFmpegPath = getEnv("GEOLOCATE_FFMPEG", c.Pipeline.FFmpegPath)
	c.Pipeline.CenterFallback = getEnvAsBool("GEOLOCATE_CENTER_FALLBACK", c.Pipeline.CenterFallback)
}

// Validate checks the region invariants and the numeric ranges.
func (c Config) Validate() error {
	if err := c.Region.Validate(); err != nil {
		return fmt.Errorf("%w: region: %v", ErrInvalid, err)
	}
	if c.Index.TopK < 0 {
		return fmt.Errorf("%w: index.top_k must not be negative", ErrInvalid)
	}
	if c.Index.MinSimilarity < 0 || c.Index.MinSimilarity > 1 {
		return fmt.Errorf("%w: index.min_similarity %.3f must be within [0,1]", ErrInvalid, c.Index.MinSimilarity)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: pipeline.workers must be at least 1", ErrInvalid)
	}
	if c.Pipeline.FramesPerVideo < 1 {
		return fmt.Errorf("%w: pipeline.frames_per_video must be at least 1", ErrInvalid)
	}
	if c.Geocoder.Enabled && c.Geocoder.BaseURL == "" {
		return fmt.Errorf("%w: geocoder.base_url is required when the geocoder is enabled", ErrInvalid)
	}
	return nil
}

// Encode writes c to w as TOML.
func Encode(w io.Writer, c Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Write saves c as TOML, creating the parent directory.
func Write(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
