package scanner

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"scanhub-api/pkg/barcode"
)

// renderBarcode rasterizes a barcode bit matrix into a grayscale image.
func renderBarcode(t *testing.T, w gozxing.Writer, contents string, format gozxing.BarcodeFormat) image.Image {
	t.Helper()

	matrix, err := w.Encode(contents, format, 400, 120, nil)
	if err != nil {
		t.Fatalf("encoding %s barcode: %v", format, err)
	}

	img := image.NewGray(image.Rect(0, 0, matrix.GetWidth(), matrix.GetHeight()))
	for y := 0; y < matrix.GetHeight(); y++ {
		for x := 0; x < matrix.GetWidth(); x++ {
			if matrix.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestDecodeEAN13(t *testing.T) {
	img := renderBarcode(t, oned.NewEAN13Writer(), "4006381333931", gozxing.BarcodeFormat_EAN_13)

	dec := NewDecoder()
	text, format, err := dec.Decode(img)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if text != "4006381333931" {
		t.Errorf("got text %q, want 4006381333931", text)
	}
	if format != barcode.EAN13 {
		t.Errorf("got format %q, want %q", format, barcode.EAN13)
	}
}

func TestDecodeCode128(t *testing.T) {
	img := renderBarcode(t, oned.NewCode128Writer(), "SKU-12345", gozxing.BarcodeFormat_CODE_128)

	dec := NewDecoder()
	text, format, err := dec.Decode(img)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if text != "SKU-12345" {
		t.Errorf("got text %q, want SKU-12345", text)
	}
	if format != barcode.Code128 {
		t.Errorf("got format %q, want %q", format, barcode.Code128)
	}
}

func TestDecodeBlankImageNotFound(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 200, 100))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}

	dec := NewDecoder()
	_, _, err := dec.Decode(blank)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for blank image, got %v", err)
	}
}

func TestDecodeFrameTriesVariants(t *testing.T) {
	img := renderBarcode(t, oned.NewEAN13Writer(), "4006381333931", gozxing.BarcodeFormat_EAN_13)

	text, format, err := DecodeFrame(NewDecoder(), img)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if text != "4006381333931" || format != barcode.EAN13 {
		t.Errorf("got (%q, %q)", text, format)
	}
}

func TestDecodeFrameNotFound(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 64, 64))

	_, _, err := DecodeFrame(NewDecoder(), blank)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDecodePreprocessedVariantsStillDecode(t *testing.T) {
	img := renderBarcode(t, oned.NewEAN13Writer(), "4006381333931", gozxing.BarcodeFormat_EAN_13)

	dec := NewDecoder()
	for _, v := range Variants(img) {
		text, _, err := dec.Decode(v.Image)
		if err != nil {
			t.Errorf("variant %q: %v", v.Kind, err)
			continue
		}
		if text != "4006381333931" {
			t.Errorf("variant %q: got %q", v.Kind, text)
		}
	}
}
