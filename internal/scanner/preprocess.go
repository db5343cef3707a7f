package scanner

import (
	"image"
	stddraw "image/draw"
	"math"

	"golang.org/x/image/draw"
)

// Preprocessing constants.
const (
	// ContrastFactor is the channel multiplier used for the contrast variant.
	ContrastFactor = 1.5

	// MaxDecodeDimension caps frame size before decoding. Larger frames are
	// downscaled to keep per-tick decode time bounded.
	MaxDecodeDimension = 1024
)

// Variant kinds, in decode-attempt order.
const (
	VariantOriginal  = "original"
	VariantContrast  = "contrast"
	VariantGrayscale = "grayscale"
)

// Variant is one candidate raster for a decode attempt, tagged with the
// preprocessing step that produced it.
type Variant struct {
	Kind  string
	Image image.Image
}

// Variants produces the ordered candidate rasters for one captured frame:
// the original, a contrast-enhanced copy and a grayscale copy. Oversized
// frames are downscaled first so every variant shares the same dimensions.
func Variants(img image.Image) []Variant {
	img = Downscale(img, MaxDecodeDimension)
	return []Variant{
		{Kind: VariantOriginal, Image: img},
		{Kind: VariantContrast, Image: EnhanceContrast(img, ContrastFactor)},
		{Kind: VariantGrayscale, Image: Grayscale(img)},
	}
}

// EnhanceContrast remaps each RGB channel via factor*(in-128)+128, clamped to
// [0, 255]. The alpha channel is untouched. A factor above 1 increases
// contrast.
func EnhanceContrast(img image.Image, factor float64) *image.RGBA {
	src := toRGBA(img)
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)

	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = clampChannel(factor*(float64(src.Pix[i])-128) + 128)
		out.Pix[i+1] = clampChannel(factor*(float64(src.Pix[i+1])-128) + 128)
		out.Pix[i+2] = clampChannel(factor*(float64(src.Pix[i+2])-128) + 128)
	}
	return out
}

// Grayscale replaces each pixel's RGB channels with the rounded luminance
// 0.299R + 0.587G + 0.114B, leaving alpha untouched. Applying it twice
// yields the same raster as applying it once.
func Grayscale(img image.Image) *image.RGBA {
	src := toRGBA(img)
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)

	for i := 0; i < len(out.Pix); i += 4 {
		lum := 0.299*float64(src.Pix[i]) + 0.587*float64(src.Pix[i+1]) + 0.114*float64(src.Pix[i+2])
		g := clampChannel(math.Round(lum))
		out.Pix[i] = g
		out.Pix[i+1] = g
		out.Pix[i+2] = g
	}
	return out
}

// Downscale resizes the image so neither dimension exceeds maxDim, preserving
// aspect ratio with Catmull-Rom interpolation. Returns the original image if
// already within bounds.
func Downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func clampChannel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// toRGBA returns img as *image.RGBA, converting if necessary. The returned
// image always has its origin at (0, 0).
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == image.Pt(0, 0) {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	stddraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, stddraw.Src)
	return rgba
}
