package scanner

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func randomImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func TestGrayscaleLuminance(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	out := Grayscale(img)
	// 0.299*200 + 0.587*100 + 0.114*50 = 124.2, rounds to 124.
	got := out.RGBAAt(0, 0)
	if got.R != 124 || got.G != 124 || got.B != 124 {
		t.Errorf("expected luminance 124, got (%d, %d, %d)", got.R, got.G, got.B)
	}
	if got.A != 255 {
		t.Errorf("alpha changed: got %d", got.A)
	}
}

func TestGrayscaleIdempotent(t *testing.T) {
	img := randomImage(32, 24)

	once := Grayscale(img)
	twice := Grayscale(once)

	if !bytes.Equal(once.Pix, twice.Pix) {
		t.Error("applying Grayscale twice should yield the same raster as once")
	}
}

func TestEnhanceContrast(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 200, G: 128, B: 10, A: 200})
	img.SetRGBA(1, 0, color.RGBA{R: 250, G: 0, B: 128, A: 255})

	out := EnhanceContrast(img, 1.5)

	// 1.5*(200-128)+128 = 236; 128 stays fixed; 1.5*(10-128)+128 = -49 clamps to 0.
	p0 := out.RGBAAt(0, 0)
	if p0.R != 236 || p0.G != 128 || p0.B != 0 {
		t.Errorf("pixel 0: got (%d, %d, %d), want (236, 128, 0)", p0.R, p0.G, p0.B)
	}
	if p0.A != 200 {
		t.Errorf("alpha changed: got %d, want 200", p0.A)
	}

	// 1.5*(250-128)+128 = 311 clamps to 255; 1.5*(0-128)+128 = -64 clamps to 0.
	p1 := out.RGBAAt(1, 0)
	if p1.R != 255 || p1.G != 0 || p1.B != 128 {
		t.Errorf("pixel 1: got (%d, %d, %d), want (255, 0, 128)", p1.R, p1.G, p1.B)
	}
}

func TestEnhanceContrastDoesNotMutateInput(t *testing.T) {
	img := randomImage(8, 8)
	before := make([]uint8, len(img.Pix))
	copy(before, img.Pix)

	EnhanceContrast(img, 1.5)
	Grayscale(img)

	if !bytes.Equal(before, img.Pix) {
		t.Error("preprocessing must not mutate the input raster")
	}
}

func TestVariantsOrder(t *testing.T) {
	variants := Variants(randomImage(16, 16))
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(variants))
	}
	want := []string{VariantOriginal, VariantContrast, VariantGrayscale}
	for i, v := range variants {
		if v.Kind != want[i] {
			t.Errorf("variant %d: got %q, want %q", i, v.Kind, want[i])
		}
		if v.Image == nil {
			t.Errorf("variant %d has nil image", i)
		}
	}
}

func TestVariantsDownscaleOversizedFrame(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 2048, 1024))
	for _, v := range Variants(big) {
		b := v.Image.Bounds()
		if b.Dx() > MaxDecodeDimension || b.Dy() > MaxDecodeDimension {
			t.Errorf("variant %q not downscaled: %dx%d", v.Kind, b.Dx(), b.Dy())
		}
	}
}

func TestDownscaleKeepsSmallImages(t *testing.T) {
	img := randomImage(100, 60)
	out := Downscale(img, MaxDecodeDimension)
	if out != image.Image(img) {
		t.Error("expected small image to be returned unchanged")
	}
}

func TestDownscalePreservesAspectRatio(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4096, 2048))
	out := Downscale(img, 1024)
	b := out.Bounds()
	if b.Dx() != 1024 || b.Dy() != 512 {
		t.Errorf("got %dx%d, want 1024x512", b.Dx(), b.Dy())
	}
}
