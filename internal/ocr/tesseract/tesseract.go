// Package tesseract implements ocr.Recognizer on top of the Tesseract engine
// via gosseract. It requires cgo and libtesseract.
package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/geolocate-mcp/internal/detection"
	imgutil "github.com/ironsheep/geolocate-mcp/internal/imaging"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
	"github.com/ironsheep/geolocate-mcp/internal/ocr"
)

// platePadding is added around each plate proposal before cropping.
const platePadding = 4

// Engine runs Tesseract with a fixed configuration. Each call creates its own
// gosseract client, so an Engine is safe for concurrent use.
type Engine struct {
	cfg ocr.Config
}

var _ ocr.Recognizer = (*Engine)(nil)

// New creates an engine. An empty language list means English.
func New(cfg ocr.Config) *Engine {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if e.cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(e.cfg.Languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return client, nil
}

// Recognize performs OCR on an in-memory image: one full-page pass, then a
// sign pass over up to MaxSignProposals text-shaped regions. Sign lines the
// page pass already read are not repeated.
func (e *Engine) Recognize(img image.Image) (*ocr.OCRResult, error) {
	result, err := e.recognizePage(img)
	if err != nil {
		return nil, err
	}
	if e.cfg.MaxSignProposals <= 0 {
		return result, nil
	}

	proposals := detection.DetectTextRegions(img, e.cfg.MinProposalConfidence)
	if len(proposals) > e.cfg.MaxSignProposals {
		proposals = proposals[:e.cfg.MaxSignProposals]
	}
	for _, p := range proposals {
		// A proposal covering the whole frame adds nothing to the page pass.
		if p.Bounds.Eq(img.Bounds()) {
			continue
		}
		sign, err := e.ExtractTextFromRegion(img, p.Bounds)
		if err != nil {
			logger.Debugf("sign pass: %v", err)
			continue
		}
		text := strings.TrimSpace(sign.FullText)
		if text == "" || strings.Contains(result.FullText, text) {
			continue
		}
		result.FullText = strings.TrimRight(result.FullText, "\n") + "\n" + text
		result.Regions = append(result.Regions, sign.Regions...)
	}
	return result, nil
}

func (e *Engine) recognizePage(img image.Image) (*ocr.OCRResult, error) {
	client, err := e.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := setImage(client, img); err != nil {
		return nil, err
	}
	return readWords(client)
}

// ExtractTextFromRegion performs OCR on r within img. Returned bounds are in
// img's coordinate space.
func (e *Engine) ExtractTextFromRegion(img image.Image, r image.Rectangle) (*ocr.OCRResult, error) {
	crop, err := imgutil.CropRegion(img, r, 0, 0)
	if err != nil {
		return nil, err
	}

	result, err := e.recognizePage(crop.Image)
	if err != nil {
		return nil, err
	}
	for i := range result.Regions {
		result.Regions[i].Bounds = ocr.BoundsOf(crop.ToSource(result.Regions[i].Bounds.Rect()))
	}
	return result, nil
}

// RecognizePlates reads plate-shaped regions of img as single lines limited
// to ocr.PlateAlphabet. When the detector proposes nothing the whole image is
// read, which covers close-up plate photos. Failures on one crop are logged
// and skipped.
func (e *Engine) RecognizePlates(img image.Image) ([]ocr.TextRegion, error) {
	if !e.cfg.PlatePass {
		return nil, nil
	}

	proposals := detection.DetectPlateRegions(img, e.cfg.MinProposalConfidence)
	rects := make([]image.Rectangle, 0, len(proposals))
	for _, p := range proposals {
		if e.cfg.MaxPlateProposals > 0 && len(rects) >= e.cfg.MaxPlateProposals {
			break
		}
		rects = append(rects, p.Bounds)
	}
	if len(rects) == 0 {
		rects = append(rects, img.Bounds())
	}

	client, err := e.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetWhitelist(ocr.PlateAlphabet); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	var out []ocr.TextRegion
	for _, r := range rects {
		crop, err := imgutil.CropRegion(img, r, platePadding, e.cfg.MinPlateHeight)
		if err != nil {
			logger.Debugf("plate pass: %v", err)
			continue
		}
		if err := setImage(client, crop.Image); err != nil {
			logger.Warnf("plate pass: %v", err)
			continue
		}
		lines, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
		if err != nil {
			logger.Warnf("plate pass: failed to read lines: %v", err)
			continue
		}
		for _, line := range lines {
			text := strings.TrimSpace(line.Word)
			if text == "" {
				continue
			}
			out = append(out, ocr.TextRegion{
				Text:       text,
				Confidence: line.Confidence / 100.0,
				Bounds:     ocr.BoundsOf(crop.ToSource(line.Box)),
			})
		}
	}
	return out, nil
}

func setImage(client *gosseract.Client, img image.Image) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to set image: %w", err)
	}
	return nil
}

func readWords(client *gosseract.Client) (*ocr.OCRResult, error) {
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &ocr.OCRResult{
			FullText: text,
			Regions:  []ocr.TextRegion{},
		}, nil
	}

	regions := make([]ocr.TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, ocr.TextRegion{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Bounds:     ocr.BoundsOf(box.Box),
		})
	}

	return &ocr.OCRResult{
		FullText: text,
		Regions:  regions,
	}, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}

// AvailableLanguages lists the installed language data.
func AvailableLanguages() ([]string, error) {
	return gosseract.GetAvailableLanguages()
}
