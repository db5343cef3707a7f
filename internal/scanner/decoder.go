package scanner

import (
	"errors"
	"image"
	"log"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"scanhub-api/pkg/barcode"
)

// ErrNotFound signals that no barcode was found in a frame. It is the
// expected steady-state result of most decode attempts, not a failure.
var ErrNotFound = errors.New("no barcode found")

// FrameDecoder extracts a barcode payload from a single raster image.
type FrameDecoder interface {
	Decode(img image.Image) (string, barcode.Format, error)
}

// Decoder is a multi-format 1D barcode decoder backed by gozxing readers.
// It is stateless per call; retries happen by presenting more preprocessing
// variants or future frames, never inside the decoder.
type Decoder struct {
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// NewDecoder creates a decoder for the supported retail symbologies.
func NewDecoder() *Decoder {
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: []gozxing.BarcodeFormat{
			gozxing.BarcodeFormat_EAN_13,
			gozxing.BarcodeFormat_EAN_8,
			gozxing.BarcodeFormat_UPC_A,
			gozxing.BarcodeFormat_UPC_E,
			gozxing.BarcodeFormat_CODE_128,
			gozxing.BarcodeFormat_CODE_39,
		},
		gozxing.DecodeHintType_TRY_HARDER: true,
	}

	return &Decoder{
		readers: []gozxing.Reader{
			oned.NewEAN13Reader(),
			oned.NewEAN8Reader(),
			oned.NewUPCAReader(),
			oned.NewUPCEReader(),
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
		},
		hints: hints,
	}
}

// Decode attempts to extract a barcode from img. It returns the decoded text
// and symbology hint, or ErrNotFound. Reader panics and bitmap conversion
// failures are logged and reported as ErrNotFound; no other error class
// escapes.
func (d *Decoder) Decode(img image.Image) (text string, format barcode.Format, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Decoder] recovered from reader panic: %v", r)
			text, format, err = "", "", ErrNotFound
		}
	}()

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		log.Printf("[Decoder] bitmap conversion failed: %v", err)
		return "", "", ErrNotFound
	}

	for _, reader := range d.readers {
		result, decodeErr := reader.Decode(bmp, d.hints)
		if decodeErr == nil && result != nil {
			return result.GetText(), mapFormat(result.GetBarcodeFormat()), nil
		}
	}

	return "", "", ErrNotFound
}

// DecodeFrame runs the preprocessing variants of img through dec in order,
// stopping at the first successful decode. Returns ErrNotFound if every
// variant fails.
func DecodeFrame(dec FrameDecoder, img image.Image) (string, barcode.Format, error) {
	for _, v := range Variants(img) {
		text, format, err := dec.Decode(v.Image)
		if err == nil {
			return text, format, nil
		}
	}
	return "", "", ErrNotFound
}

// mapFormat maps a gozxing format constant to a barcode.Format.
func mapFormat(f gozxing.BarcodeFormat) barcode.Format {
	switch f {
	case gozxing.BarcodeFormat_EAN_13:
		return barcode.EAN13
	case gozxing.BarcodeFormat_EAN_8:
		return barcode.EAN8
	case gozxing.BarcodeFormat_UPC_A:
		return barcode.UPCA
	case gozxing.BarcodeFormat_UPC_E:
		return barcode.UPCE
	case gozxing.BarcodeFormat_CODE_128:
		return barcode.Code128
	case gozxing.BarcodeFormat_CODE_39:
		return barcode.Code39
	default:
		return ""
	}
}
