package imaging

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestExtract_DimensionAndNorm(t *testing.T) {
	e := NewExtractor(nil)

	desc, err := e.Extract(createQuadrantImage(300, 200))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(desc) != DescriptorDim {
		t.Fatalf("dimension: got %d, want %d", len(desc), DescriptorDim)
	}
	if n := floats.Norm(desc, 2); math.Abs(n-1) > 1e-9 {
		t.Errorf("L2 norm: got %f, want 1", n)
	}
	if desc.IsZero() {
		t.Error("descriptor of a colored image must not be zero")
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor(nil)
	img := createStripeImage(120, 90, 6, true)

	a, err := e.Extract(img)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	b, err := e.Extract(img)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !floats.Equal(a, b) {
		t.Error("same image produced different descriptors")
	}
}

func TestExtract_SimilarScenesAreCloser(t *testing.T) {
	e := NewExtractor(nil)

	base, _ := e.Extract(createStripeImage(128, 128, 8, true))
	near, _ := e.Extract(createStripeImage(128, 128, 9, true))
	far, _ := e.Extract(createInMemoryImage(128, 128, color.RGBA{0, 160, 40, 255}))

	dNear := floats.Distance(base, near, 2)
	dFar := floats.Distance(base, far, 2)
	if dNear >= dFar {
		t.Errorf("similar stripes should be closer: near=%f far=%f", dNear, dFar)
	}
}

func TestExtract_EmptyImage(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.Extract(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	if !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("empty image: got %v, want ErrUnreadableImage", err)
	}
}

func TestExtract_TransparentImage(t *testing.T) {
	e := NewExtractor(nil)
	desc, err := e.Extract(image.NewNRGBA(image.Rect(0, 0, 32, 32)))
	if !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("transparent image: got %v, want ErrUnreadableImage", err)
	}
	if desc != nil {
		t.Errorf("transparent image: got descriptor of %d dims, want nil", len(desc))
	}
}

func TestExtractFile(t *testing.T) {
	cache := NewImageCache()
	e := NewExtractor(cache)

	imgPath := createTestImage(t, 64, 64, color.RGBA{200, 100, 50, 255})
	defer os.Remove(imgPath)

	desc, err := e.ExtractFile(imgPath)
	if err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}
	if len(desc) != DescriptorDim {
		t.Errorf("dimension: got %d, want %d", len(desc), DescriptorDim)
	}
	if cache.Len() != 1 {
		t.Error("ExtractFile should load through the shared cache")
	}

	if _, err := e.ExtractFile("/nonexistent/photo.jpg"); !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("missing file: got %v, want ErrUnreadableImage", err)
	}
}

func TestDescriptor_IsZeroAndClone(t *testing.T) {
	if !(Descriptor{}).IsZero() || !(Descriptor{0, 0}).IsZero() {
		t.Error("empty and all-zero descriptors are zero")
	}
	d := Descriptor{0, 1}
	if d.IsZero() {
		t.Error("non-zero descriptor reported as zero")
	}
	c := d.Clone()
	c[1] = 5
	if d[1] != 1 {
		t.Error("Clone must not share storage")
	}
}
