package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/geo"
	"github.com/ironsheep/geolocate-mcp/internal/geocode"
	imgutil "github.com/ironsheep/geolocate-mcp/internal/imaging"
	"github.com/ironsheep/geolocate-mcp/internal/index"
	"github.com/ironsheep/geolocate-mcp/internal/ocr"
	"github.com/ironsheep/geolocate-mcp/internal/region"
)

// fakeRecognizer returns canned OCR output regardless of the image.
type fakeRecognizer struct {
	text     string
	regions  []ocr.TextRegion
	plates   []ocr.TextRegion
	err      error
	plateErr error
}

func (f *fakeRecognizer) Recognize(image.Image) (*ocr.OCRResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ocr.OCRResult{FullText: f.text, Regions: f.regions}, nil
}

func (f *fakeRecognizer) RecognizePlates(image.Image) ([]ocr.TextRegion, error) {
	return f.plates, f.plateErr
}

type fakeGeocoder struct {
	mu      sync.Mutex
	queries []string
	places  map[string]geocode.Place
	reverse *geocode.Place
}

func (f *fakeGeocoder) Search(_ context.Context, q string) ([]geocode.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if p, ok := f.places[q]; ok {
		return []geocode.Place{p}, nil
	}
	return nil, nil
}

func (f *fakeGeocoder) Reverse(context.Context, geo.Coordinates) (*geocode.Place, error) {
	return f.reverse, nil
}

type savedResult struct {
	path, group string
	result      evidence.Result
}

type memorySink struct {
	mu    sync.Mutex
	saved []savedResult
}

func (s *memorySink) SaveResult(_ context.Context, path, group string, r evidence.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, savedResult{path, group, r})
	return nil
}

// copyFrames pretends to be ffmpeg by copying a still image n times.
type copyFrames struct {
	source string
}

func (c copyFrames) ExtractFrames(_ context.Context, _ string, dir string, n int) ([]string, error) {
	data, err := os.ReadFile(c.source)
	if err != nil {
		return nil, err
	}
	var out []string
	for i := 1; i <= n; i++ {
		p := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func writeImage(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, c)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func testValidator(t *testing.T) *region.Validator {
	t.Helper()
	v, err := region.New(region.DefaultConfig())
	require.NoError(t, err)
	return v
}

func newTestPipeline(t *testing.T, deps Deps, opts Options) *Pipeline {
	t.Helper()
	if deps.Validator == nil {
		deps.Validator = testValidator(t)
	}
	p, err := New(deps, opts)
	require.NoError(t, err)
	return p
}

func TestNew_RequiresValidator(t *testing.T) {
	_, err := New(Deps{}, Options{})
	assert.Error(t, err)
}

func TestLocateImage_TextSignals(t *testing.T) {
	path := writeImage(t, t.TempDir(), "sign.png", color.Black)
	p := newTestPipeline(t, Deps{
		Recognizer: &fakeRecognizer{text: "Тел. +7 (495) 123-45-67\nИндекс 125009"},
	}, Options{})

	report, err := p.LocateImage(context.Background(), ImageRequest{Path: path})
	require.NoError(t, err)

	res := report.Result
	require.True(t, res.Validated)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	require.Len(t, res.Contributions, 2)
	assert.Equal(t, "ocr_postal_code", res.Contributions[0].Source)
	assert.Equal(t, "ocr_phone_code", res.Contributions[1].Source)
	assert.Contains(t, report.Text, "125009")
}

func TestLocateImage_Plate(t *testing.T) {
	path := writeImage(t, t.TempDir(), "car.png", color.Black)
	p := newTestPipeline(t, Deps{
		Recognizer: &fakeRecognizer{
			plates: []ocr.TextRegion{{Text: "А123ВС 77", Confidence: 0.6}},
		},
	}, Options{})

	report, err := p.LocateImage(context.Background(), ImageRequest{Path: path})
	require.NoError(t, err)
	require.True(t, report.Result.Validated)
	assert.InDelta(t, 0.6, report.Result.Confidence, 1e-9)
	require.Len(t, report.Candidates, 1)
	assert.Equal(t, evidence.SourceLicensePlate, report.Candidates[0].Source())
}

func TestLocateImage_PlateFromGeneralWords(t *testing.T) {
	path := writeImage(t, t.TempDir(), "car.png", color.Black)
	p := newTestPipeline(t, Deps{
		Recognizer: &fakeRecognizer{
			text: "M 777 MM 50",
			regions: []ocr.TextRegion{
				{Text: "M", Confidence: 0.9},
				{Text: "777", Confidence: 0.8},
				{Text: "MM", Confidence: 0.9},
				{Text: "50", Confidence: 0.7},
			},
		},
	}, Options{})

	report, err := p.LocateImage(context.Background(), ImageRequest{Path: path})
	require.NoError(t, err)
	require.NotEmpty(t, report.Candidates)
	assert.Equal(t, evidence.SourceLicensePlate, report.Candidates[len(report.Candidates)-1].Source())
	assert.InDelta(t, 0.7, report.Result.Confidence, 1e-9)
}

func TestLocateImage_ConcreteScenario(t *testing.T) {
	path := writeImage(t, t.TempDir(), "photo.png", color.Black)
	p := newTestPipeline(t, Deps{}, Options{})

	external := []evidence.Candidate{
		evidence.New(geo.Coordinates{Lat: 55.70, Lon: 37.50}, 0.4, evidence.PostalCodeProvenance{PostalCode: "117000"}),
		evidence.New(geo.Coordinates{Lat: 39.90, Lon: 116.40}, 0.95, evidence.ArchiveProvenance{RecordID: "beijing"}),
		evidence.New(geo.Coordinates{Lat: 55.7558, Lon: 37.6176}, 0.9, evidence.ExifProvenance{Path: path}),
	}
	report, err := p.LocateImage(context.Background(), ImageRequest{Path: path, External: external})
	require.NoError(t, err)

	res := report.Result
	assert.False(t, res.Validated)
	assert.Equal(t, evidence.ReasonOutsideRegion, res.RejectionReason)
	require.NotNil(t, res.Coordinates)
	assert.Equal(t, geo.Coordinates{Lat: 39.90, Lon: 116.40}, *res.Coordinates)
	assert.Equal(t, 0.95, res.Confidence)

	// Candidates are reported in extractor order.
	assert.Equal(t, evidence.SourceExif, report.Candidates[0].Source())
	assert.Equal(t, evidence.SourceArchiveMatch, report.Candidates[1].Source())
	assert.Equal(t, evidence.SourceOCRPostalCode, report.Candidates[2].Source())
}

func TestLocateImage_Archive(t *testing.T) {
	dir := t.TempDir()
	red := writeImage(t, dir, "red.png", color.RGBA{R: 200, A: 255})
	p := newTestPipeline(t, Deps{Index: index.New(imgutil.DescriptorDim)}, Options{TopK: 1, MinSimilarity: 0.99})

	desc, err := p.Extractor().ExtractFile(red)
	require.NoError(t, err)
	_, err = p.Index().Insert(desc, index.Metadata{
		ID:          "bolshoi",
		Category:    index.CategoryLandmark,
		Coordinates: &geo.Coordinates{Lat: 55.7601, Lon: 37.6186},
	})
	require.NoError(t, err)
	_, err = p.Index().Insert(desc, index.Metadata{ID: "no-coords"})
	require.NoError(t, err)

	report, err := p.LocateImage(context.Background(), ImageRequest{Path: red})
	require.NoError(t, err)
	require.True(t, report.Result.Validated)
	assert.InDelta(t, 1.0, report.Result.Confidence, 1e-9)
	prov := report.Candidates[0].Provenance.(evidence.ArchiveProvenance)
	assert.Equal(t, "bolshoi", prov.RecordID)
}

func TestLocateImage_Unreadable(t *testing.T) {
	p := newTestPipeline(t, Deps{}, Options{})

	_, err := p.LocateImage(context.Background(), ImageRequest{Path: filepath.Join(t.TempDir(), "missing.jpg")})
	assert.ErrorIs(t, err, imgutil.ErrUnreadableImage)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = p.LocateImage(context.Background(), ImageRequest{Path: bad})
	assert.ErrorIs(t, err, imgutil.ErrUnreadableImage)
}

func TestLocateImage_NoEvidence(t *testing.T) {
	path := writeImage(t, t.TempDir(), "blank.png", color.Black)

	p := newTestPipeline(t, Deps{}, Options{})
	report, err := p.LocateImage(context.Background(), ImageRequest{Path: path})
	require.NoError(t, err)
	assert.Nil(t, report.Result.Coordinates)
	assert.Equal(t, evidence.ReasonNoEvidence, report.Result.RejectionReason)

	p = newTestPipeline(t, Deps{}, Options{CenterFallback: true})
	report, err = p.LocateImage(context.Background(), ImageRequest{Path: path})
	require.NoError(t, err)
	assert.True(t, report.Result.Fallback)
	assert.False(t, report.Result.Validated)
	assert.Equal(t, region.DefaultConfig().Center, *report.Result.Coordinates)
}

func TestLocateImage_FailingRecognizerIsSkipped(t *testing.T) {
	path := writeImage(t, t.TempDir(), "photo.png", color.Black)
	p := newTestPipeline(t, Deps{
		Recognizer: &fakeRecognizer{err: errors.New("tesseract missing"), plateErr: errors.New("tesseract missing")},
	}, Options{})

	external := []evidence.Candidate{
		evidence.New(geo.Coordinates{Lat: 55.75, Lon: 37.62}, 0.5, evidence.ObjectContextProvenance{Label: "tram"}),
	}
	report, err := p.LocateImage(context.Background(), ImageRequest{Path: path, External: external})
	require.NoError(t, err)
	assert.True(t, report.Result.Validated)
	assert.Equal(t, 0.5, report.Result.Confidence)
}

func TestLocateImage_Geocoder(t *testing.T) {
	path := writeImage(t, t.TempDir(), "photo.png", color.Black)
	gc := &fakeGeocoder{
		places: map[string]geocode.Place{
			"Тверская, Москва": {Coordinates: geo.Coordinates{Lat: 55.7652, Lon: 37.6050}, DisplayName: "Tverskaya"},
		},
		reverse: &geocode.Place{DisplayName: "Tverskaya Street, Moscow"},
	}
	sink := &memorySink{}
	p := newTestPipeline(t, Deps{Geocoder: gc, Sink: sink}, Options{ReverseGeocode: true})

	report, err := p.LocateImage(context.Background(), ImageRequest{
		Path:         path,
		GeocodeHints: []string{"Тверская"},
		GroupID:      "g1",
	})
	require.NoError(t, err)
	require.True(t, report.Result.Validated)
	assert.Equal(t, geocode.Confidence, report.Result.Confidence)
	assert.Equal(t, "Tverskaya Street, Moscow", report.Result.Address)
	assert.Contains(t, gc.queries, "Тверская, Москва")

	require.Len(t, sink.saved, 1)
	assert.Equal(t, path, sink.saved[0].path)
	assert.Equal(t, "g1", sink.saved[0].group)
}

func TestLocateBatch(t *testing.T) {
	dir := t.TempDir()
	good := writeImage(t, dir, "good.png", color.Black)
	missing := filepath.Join(dir, "missing.png")

	p := newTestPipeline(t, Deps{
		Recognizer: &fakeRecognizer{text: "125009"},
	}, Options{Workers: 2})

	reports, sum, err := p.LocateBatch(context.Background(), []string{good, missing, good})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, good, reports[0].Path)
	assert.True(t, reports[0].Result.Validated)
	assert.Equal(t, missing, reports[1].Path)
	assert.NotEmpty(t, reports[1].Error)
	assert.Equal(t, evidence.ReasonNoEvidence, reports[1].Result.RejectionReason)
	assert.True(t, reports[2].Result.Validated)

	assert.Equal(t, BatchSummary{Total: 3, Validated: 2, Failed: 1}, sum)
}

func TestLocateBatch_Cancelled(t *testing.T) {
	good := writeImage(t, t.TempDir(), "good.png", color.Black)
	p := newTestPipeline(t, Deps{
		Geocoder: &fakeGeocoder{},
	}, Options{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := p.LocateBatch(ctx, []string{good, good})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocateGroup(t *testing.T) {
	dir := t.TempDir()
	red := writeImage(t, dir, "red.png", color.RGBA{R: 220, A: 255})
	blue := writeImage(t, dir, "blue.png", color.RGBA{B: 220, A: 255})

	sink := &memorySink{}
	p := newTestPipeline(t, Deps{Index: index.New(imgutil.DescriptorDim), Sink: sink},
		Options{TopK: 1, MinSimilarity: 0.999})

	for path, c := range map[string]geo.Coordinates{
		red:  {Lat: 55.70, Lon: 37.50},
		blue: {Lat: 55.80, Lon: 37.70},
	} {
		desc, err := p.Extractor().ExtractFile(path)
		require.NoError(t, err)
		_, err = p.Index().Insert(desc, index.Metadata{Coordinates: &c})
		require.NoError(t, err)
	}

	group := NewGroup("Tower", "two photos", []Asset{
		{Path: red},
		{Path: blue},
		{Path: filepath.Join(dir, "missing.jpg")},
	})
	require.NotEmpty(t, group.ID)
	assert.Equal(t, KindImage, group.Members[0].Kind)

	report, err := p.LocateGroup(context.Background(), group)
	require.NoError(t, err)

	require.Len(t, report.Members, 3)
	assert.NotEmpty(t, report.Members[2].Error)

	res := report.Result
	require.True(t, res.Validated)
	assert.InDelta(t, 55.75, res.Coordinates.Lat, 1e-9)
	assert.InDelta(t, 37.60, res.Coordinates.Lon, 1e-9)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	assert.Positive(t, res.SpreadMeters)
	assert.Len(t, res.Contributions, 2)

	// Two members plus the group row.
	require.Len(t, sink.saved, 3)
	groupRows := 0
	for _, s := range sink.saved {
		assert.Equal(t, group.ID, s.group)
		if s.path == "" {
			groupRows++
		}
	}
	assert.Equal(t, 1, groupRows)
}

func TestLocateGroup_Empty(t *testing.T) {
	p := newTestPipeline(t, Deps{}, Options{})
	report, err := p.LocateGroup(context.Background(), ObjectGroup{Name: "nothing"})
	require.NoError(t, err)
	assert.NotEmpty(t, report.Group.ID)
	assert.Equal(t, evidence.ReasonNoEvidence, report.Result.RejectionReason)
}

func TestLocateVideo(t *testing.T) {
	dir := t.TempDir()
	still := writeImage(t, dir, "still.png", color.Black)
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("fake"), 0o644))

	p := newTestPipeline(t, Deps{
		Recognizer: &fakeRecognizer{text: "125009"},
		Frames:     copyFrames{source: still},
	}, Options{FramesPerVideo: 3})

	report, err := p.LocateVideo(context.Background(), video, "")
	require.NoError(t, err)
	assert.Equal(t, video, report.Path)
	assert.Equal(t, KindVideo, report.Kind)
	assert.Equal(t, "frame_001.png", report.Frame, "the first frame wins ties")
	assert.True(t, report.Result.Validated)

	group := NewGroup("clip", "", []Asset{{Path: video}})
	assert.Equal(t, KindVideo, group.Members[0].Kind)
	gr, err := p.LocateGroup(context.Background(), group)
	require.NoError(t, err)
	assert.True(t, gr.Result.Validated)
}

func TestLocateVideo_NoExtractor(t *testing.T) {
	p := newTestPipeline(t, Deps{}, Options{})
	_, err := p.LocateVideo(context.Background(), "clip.mp4", "")
	assert.ErrorIs(t, err, ErrNoFrameExtractor)
}

func TestFFmpeg_MissingVideo(t *testing.T) {
	_, err := FFmpeg{}.ExtractFrames(context.Background(), filepath.Join(t.TempDir(), "none.mp4"), t.TempDir(), 3)
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindVideo, KindOf("/a/b/CLIP.MOV"))
	assert.Equal(t, KindImage, KindOf("/a/b/photo.jpg"))

	k, err := ParseKind("", "x.mp4")
	require.NoError(t, err)
	assert.Equal(t, KindVideo, k)

	k, err = ParseKind("image", "x.mp4")
	require.NoError(t, err)
	assert.Equal(t, KindImage, k)

	_, err = ParseKind("audio", "x.mp3")
	assert.ErrorIs(t, err, ErrInvalidKind)
}
