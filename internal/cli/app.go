package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/geolocate-mcp/internal/config"
	"github.com/ironsheep/geolocate-mcp/internal/geocode"
	"github.com/ironsheep/geolocate-mcp/internal/imaging"
	"github.com/ironsheep/geolocate-mcp/internal/index"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
	"github.com/ironsheep/geolocate-mcp/internal/ocr/tesseract"
	"github.com/ironsheep/geolocate-mcp/internal/pipeline"
	"github.com/ironsheep/geolocate-mcp/internal/region"
	"github.com/ironsheep/geolocate-mcp/internal/storage/sqlite"
)

// app holds the long-lived collaborators every command needs.
type app struct {
	cfg      config.Config
	store    *sqlite.Store
	index    *index.Index
	pipeline *pipeline.Pipeline
}

// openApp wires storage, the reference index and the pipeline from c.
func openApp(ctx context.Context, c config.Config, withOCR bool) (*app, error) {
	validator, err := region.New(c.Region)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(c.Storage.Path)
	if err != nil {
		return nil, err
	}

	ix, err := loadIndex(ctx, c.Index.SnapshotPath, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	deps := pipeline.Deps{
		Cache:     imaging.NewImageCache(),
		Index:     ix,
		Validator: validator,
		Sink:      store,
		Frames:    pipeline.FFmpeg{Path: c.Pipeline.FFmpegPath},
	}
	if withOCR {
		deps.Recognizer = tesseract.New(c.OCR)
	}
	if c.Geocoder.Enabled {
		gc := c.Geocoder
		bounds := c.Region.Bounds
		gc.Bounded = &bounds
		deps.Geocoder = geocode.NewNominatim(gc)
	}

	p, err := pipeline.New(deps, pipeline.Options{
		TopK:           c.Index.TopK,
		MinSimilarity:  c.Index.MinSimilarity,
		Workers:        c.Pipeline.Workers,
		FramesPerVideo: c.Pipeline.FramesPerVideo,
		CenterFallback: c.Pipeline.CenterFallback,
		ReverseGeocode: c.Pipeline.ReverseGeocode,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: c, store: store, index: ix, pipeline: p}, nil
}

// loadIndex prefers the snapshot when it holds exactly the records in the
// catalog and rebuilds from the catalog otherwise.
func loadIndex(ctx context.Context, snapshot string, store *sqlite.Store) (*index.Index, error) {
	count, err := store.CountRecords(ctx)
	if err != nil {
		return nil, err
	}

	if snapshot != "" {
		ix, err := index.LoadFile(snapshot)
		switch {
		case err == nil && ix.Len() == count && ix.Dim() == imaging.DescriptorDim:
			logger.Debugf("loaded %d reference records from %s", ix.Len(), snapshot)
			return ix, nil
		case err == nil:
			logger.Infof("index snapshot is stale (%d records, catalog has %d), rebuilding", ix.Len(), count)
		case !errors.Is(err, os.ErrNotExist):
			logger.Warnf("ignoring index snapshot: %v", err)
		}
	}

	ix := index.New(imaging.DescriptorDim)
	n, err := store.LoadIntoIndex(ctx, ix)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	logger.Debugf("loaded %d reference records from %s", n, store.Path())
	return ix, nil
}

// saveSnapshot writes the index snapshot if one is configured.
func (a *app) saveSnapshot() error {
	if a.cfg.Index.SnapshotPath == "" {
		return nil
	}
	return a.index.SaveFile(a.cfg.Index.SnapshotPath)
}

func (a *app) Close() error {
	return a.store.Close()
}
