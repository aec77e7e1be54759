// Package pipeline runs the location signals over an asset and fuses them.
//
// For one image the extractors (EXIF, archive similarity, recognised text,
// registration plates) run concurrently and independently; their candidates
// are put in extractor order, handed to the single-asset aggregator and the
// result is checked against the operational region. Object groups run every
// member through that path and blend the member estimates with the
// multi-asset aggregator. A failing extractor only loses its own signal; an
// unreadable file fails that asset alone.
package pipeline

import (
	"context"
	"errors"
	"image"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/exif"
	"github.com/ironsheep/geolocate-mcp/internal/fusion"
	"github.com/ironsheep/geolocate-mcp/internal/geocode"
	"github.com/ironsheep/geolocate-mcp/internal/imaging"
	"github.com/ironsheep/geolocate-mcp/internal/index"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
	"github.com/ironsheep/geolocate-mcp/internal/ocr"
	"github.com/ironsheep/geolocate-mcp/internal/plate"
	"github.com/ironsheep/geolocate-mcp/internal/region"
	"github.com/ironsheep/geolocate-mcp/internal/textloc"
)

// ResultSink persists located assets. *sqlite.Store implements it.
type ResultSink interface {
	SaveResult(ctx context.Context, assetPath, groupID string, r evidence.Result) error
}

// Options tune a Pipeline. Zero values get defaults.
type Options struct {
	TopK           int
	MinSimilarity  float64
	Workers        int
	FramesPerVideo int

	// CenterFallback replaces rejected coordinates with the region center.
	CenterFallback bool

	// ReverseGeocode attaches an address to validated results.
	ReverseGeocode bool
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.FramesPerVideo <= 0 {
		o.FramesPerVideo = 5
	}
	return o
}

// Deps are the collaborators of a Pipeline. Only Validator is required; a
// nil Index, Recognizer or Geocoder switches that signal off.
type Deps struct {
	Cache      *imaging.ImageCache
	Index      *index.Index
	Recognizer ocr.Recognizer
	Geocoder   geocode.Geocoder
	Validator  *region.Validator
	Sink       ResultSink
	Frames     FrameExtractor
}

// Pipeline locates images, batches and object groups. It is safe for
// concurrent use as long as nobody inserts into the index meanwhile.
type Pipeline struct {
	deps      Deps
	opts      Options
	extractor *imaging.Extractor
	text      *textloc.Locator
	single    *fusion.SingleAsset
	multi     *fusion.MultiAsset
}

// New wires a pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Validator == nil {
		return nil, errors.New("pipeline requires a region validator")
	}
	if deps.Cache == nil {
		deps.Cache = imaging.NewImageCache()
	}

	var resolver textloc.AddressResolver
	if deps.Geocoder != nil {
		resolver = geocode.AsResolver(deps.Geocoder)
	}

	return &Pipeline{
		deps:      deps,
		opts:      opts.withDefaults(),
		extractor: imaging.NewExtractor(deps.Cache),
		text:      textloc.NewLocator(resolver, deps.Validator),
		single:    fusion.NewSingleAsset(deps.Validator),
		multi:     fusion.NewMultiAsset(deps.Validator),
	}, nil
}

// Validator returns the region validator results are checked against.
func (p *Pipeline) Validator() *region.Validator { return p.deps.Validator }

// TextLocator returns the locator used for recognised text.
func (p *Pipeline) TextLocator() *textloc.Locator { return p.text }

// Index returns the reference index, which may be nil.
func (p *Pipeline) Index() *index.Index { return p.deps.Index }

// Extractor returns the descriptor extractor.
func (p *Pipeline) Extractor() *imaging.Extractor { return p.extractor }

// ImageRequest describes one image to locate.
type ImageRequest struct {
	Path string

	// External candidates supplied by the caller, e.g. object context.
	External []evidence.Candidate

	// GeocodeHints are free-text place hints resolved with the geocoder into
	// external_geocode candidates.
	GeocodeHints []string

	// GroupID is recorded with the persisted result.
	GroupID string
}

// AssetReport is the outcome for one asset. Error is set, and Result is a
// no-evidence result, when the asset could not be processed.
type AssetReport struct {
	Path       string               `json:"path"`
	Kind       AssetKind            `json:"kind"`
	Result     evidence.Result      `json:"result"`
	Candidates []evidence.Candidate `json:"candidates"`
	Text       string               `json:"recognized_text,omitempty"`
	Frame      string               `json:"frame,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// LocateImage runs every signal over one image and fuses the candidates.
// The only error is an unreadable image (wrapping imaging.ErrUnreadableImage)
// or a cancelled context.
func (p *Pipeline) LocateImage(ctx context.Context, req ImageRequest) (*AssetReport, error) {
	report, err := p.locate(ctx, req)
	if err != nil {
		return nil, err
	}
	p.save(ctx, req.Path, req.GroupID, report.Result)
	return report, nil
}

func (p *Pipeline) locate(ctx context.Context, req ImageRequest) (*AssetReport, error) {
	img, err := p.deps.Cache.Load(req.Path)
	if err != nil {
		return nil, err
	}
	defer p.deps.Cache.Evict(req.Path)

	var (
		exifCands    []evidence.Candidate
		archiveCands []evidence.Candidate
		geocodeCands []evidence.Candidate
		textCands    []evidence.Candidate
		ocrResult    *ocr.OCRResult
		plateRegions []ocr.TextRegion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		exifCands = p.exifSignal(req.Path)
		return nil
	})
	g.Go(func() error {
		archiveCands = p.archiveSignal(img)
		return nil
	})
	g.Go(func() error {
		geocodeCands = p.geocodeSignal(gctx, req.GeocodeHints)
		return gctx.Err()
	})
	if p.deps.Recognizer != nil {
		g.Go(func() error {
			ocrResult = p.recognize(img)
			if ocrResult != nil {
				textCands = p.text.Locate(gctx, ocrResult.FullText)
			}
			return gctx.Err()
		})
		g.Go(func() error {
			plateRegions = p.recognizePlates(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var plateCands []evidence.Candidate
	if c, ok := plate.Locate(plateTokens(plateRegions, ocrResult)); ok {
		plateCands = append(plateCands, c)
	}

	all := make([]evidence.Candidate, 0,
		len(exifCands)+len(archiveCands)+len(geocodeCands)+len(textCands)+len(plateCands)+len(req.External))
	all = append(all, exifCands...)
	all = append(all, archiveCands...)
	all = append(all, geocodeCands...)
	all = append(all, textCands...)
	all = append(all, plateCands...)
	all = append(all, req.External...)
	all = evidence.SortByExtractorOrder(all)

	report := &AssetReport{
		Path:       req.Path,
		Kind:       KindImage,
		Result:     p.finish(ctx, p.single.Aggregate(all)),
		Candidates: all,
	}
	if ocrResult != nil {
		report.Text = strings.TrimSpace(ocrResult.FullText)
	}
	logger.Debugf("located %s: %d candidates, validated=%v", req.Path, len(all), report.Result.Validated)
	return report, nil
}

func (p *Pipeline) exifSignal(path string) []evidence.Candidate {
	c, err := exif.Locate(path)
	switch {
	case errors.Is(err, exif.ErrNoGPS):
		return nil
	case err != nil:
		logger.Warnf("exif: %v", err)
		return nil
	}
	return []evidence.Candidate{c}
}

// archiveSignal emits one candidate per matching reference record that has
// coordinates, with the similarity as confidence.
func (p *Pipeline) archiveSignal(img image.Image) []evidence.Candidate {
	if p.deps.Index == nil || p.deps.Index.Len() == 0 {
		return nil
	}
	desc, err := p.extractor.Extract(img)
	if err != nil {
		logger.Warnf("archive: %v", err)
		return nil
	}

	var out []evidence.Candidate
	for _, m := range p.deps.Index.Query(desc, p.opts.TopK, p.opts.MinSimilarity) {
		if m.Record.Coordinates == nil {
			continue
		}
		out = append(out, evidence.New(*m.Record.Coordinates, m.Similarity, evidence.ArchiveProvenance{
			RecordID:    m.Record.ID,
			Category:    string(m.Record.Category),
			Description: m.Record.Description,
			Similarity:  m.Similarity,
		}))
	}
	return out
}

func (p *Pipeline) geocodeSignal(ctx context.Context, hints []string) []evidence.Candidate {
	if p.deps.Geocoder == nil || len(hints) == 0 {
		return nil
	}
	var out []evidence.Candidate
	for _, h := range hints {
		c, ok, err := geocode.Locate(ctx, p.deps.Geocoder, p.deps.Validator.EnhanceQuery(h))
		if err != nil {
			if ctx.Err() != nil {
				return out
			}
			logger.Warnf("geocode %q: %v", h, err)
			continue
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func (p *Pipeline) recognize(img image.Image) *ocr.OCRResult {
	res, err := p.deps.Recognizer.Recognize(img)
	if err != nil {
		logger.Warnf("ocr: %v", err)
		return nil
	}
	return res
}

func (p *Pipeline) recognizePlates(img image.Image) []ocr.TextRegion {
	regions, err := p.deps.Recognizer.RecognizePlates(img)
	if err != nil {
		logger.Warnf("plate ocr: %v", err)
		return nil
	}
	return regions
}

// plateTokens feeds the dedicated plate pass first, then the words of the
// general pass in reading order.
func plateTokens(plates []ocr.TextRegion, general *ocr.OCRResult) []plate.Token {
	tokens := make([]plate.Token, 0, len(plates))
	for _, r := range plates {
		tokens = append(tokens, plate.Token{Text: r.Text, Confidence: r.Confidence})
	}
	if general != nil {
		for _, r := range general.Regions {
			tokens = append(tokens, plate.Token{Text: r.Text, Confidence: r.Confidence})
		}
	}
	return tokens
}

// finish applies the fallback policy and the optional reverse geocoding.
func (p *Pipeline) finish(ctx context.Context, r evidence.Result) evidence.Result {
	if !r.Validated && p.opts.CenterFallback {
		r = p.deps.Validator.WithCenterFallback(r)
	}
	if r.Validated && p.opts.ReverseGeocode && p.deps.Geocoder != nil {
		place, err := p.deps.Geocoder.Reverse(ctx, *r.Coordinates)
		switch {
		case err != nil:
			logger.Warnf("reverse geocode %s: %v", r.Coordinates, err)
		case place != nil:
			r.Address = place.DisplayName
		}
	}
	return r
}

func (p *Pipeline) save(ctx context.Context, path, groupID string, r evidence.Result) {
	if p.deps.Sink == nil {
		return
	}
	if err := p.deps.Sink.SaveResult(ctx, path, groupID, r); err != nil {
		logger.Warnf("failed to save result for %s: %v", path, err)
	}
}

// failedReport records a per-asset failure as data.
func failedReport(path string, kind AssetKind, err error) AssetReport {
	return AssetReport{
		Path:       path,
		Kind:       kind,
		Result:     evidence.NoEvidence(),
		Candidates: []evidence.Candidate{},
		Error:      err.Error(),
	}
}
