package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape", 1024, 512, 256, 128},
		{"portrait", 300, 600, 128, 256},
		{"already small", 100, 80, 100, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createInMemoryImage(tt.width, tt.height, color.RGBA{10, 20, 30, 255})
			out := Normalize(img, NormalizeSize)
			b := out.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("dimensions: got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
			if b.Min != (image.Point{}) {
				t.Errorf("origin: got %v, want (0,0)", b.Min)
			}
		})
	}
}

func TestCropRegion(t *testing.T) {
	img := createQuadrantImage(100, 100)

	crop, err := CropRegion(img, image.Rect(10, 10, 40, 40), 0, 0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if crop.Image.Bounds().Dx() != 30 || crop.Image.Bounds().Dy() != 30 {
		t.Errorf("dimensions: got %v, want 30x30", crop.Image.Bounds())
	}
	if crop.Origin != image.Pt(10, 10) {
		t.Errorf("origin: got %v, want (10,10)", crop.Origin)
	}
	if crop.Scale != 1 {
		t.Errorf("scale: got %f, want 1", crop.Scale)
	}

	r, _, _, _ := crop.Image.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("crop of red quadrant should be red, got r=%d", r>>8)
	}
}

func TestCropRegion_PaddingClipped(t *testing.T) {
	img := createQuadrantImage(100, 100)

	crop, err := CropRegion(img, image.Rect(0, 0, 20, 20), 10, 0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if got := crop.Image.Bounds(); got.Dx() != 30 || got.Dy() != 30 {
		t.Errorf("padded crop should be clipped to 30x30, got %v", got)
	}
	if crop.Origin != image.Pt(0, 0) {
		t.Errorf("origin: got %v, want (0,0)", crop.Origin)
	}
}

func TestCropRegion_Upscale(t *testing.T) {
	img := createQuadrantImage(200, 200)

	crop, err := CropRegion(img, image.Rect(50, 50, 110, 70), 0, 60)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if crop.Scale != 3 {
		t.Errorf("scale: got %f, want 3", crop.Scale)
	}
	if got := crop.Image.Bounds(); got.Dx() != 180 || got.Dy() != 60 {
		t.Errorf("upscaled size: got %v, want 180x60", got)
	}

	back := crop.ToSource(image.Rect(30, 15, 90, 45))
	if back != image.Rect(60, 55, 80, 65) {
		t.Errorf("ToSource: got %v, want (60,55)-(80,65)", back)
	}
}

func TestCropRegion_Outside(t *testing.T) {
	img := createQuadrantImage(50, 50)
	if _, err := CropRegion(img, image.Rect(100, 100, 120, 120), 0, 0); err == nil {
		t.Error("CropRegion should fail for a region outside the image")
	}
}
