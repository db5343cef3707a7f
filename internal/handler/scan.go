package handler

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for uploaded frames
	_ "image/png"
	"net/http"

	"scanhub-api/internal/scanner"
	"scanhub-api/pkg/apierror"
	"scanhub-api/pkg/barcode"
	"scanhub-api/pkg/response"
)

// maxUploadBytes caps uploaded frame size (camera stills are a few MB).
const maxUploadBytes = 16 << 20

// ScanHandler handles image decode and barcode validation HTTP requests.
type ScanHandler struct {
	decoder scanner.FrameDecoder
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(decoder scanner.FrameDecoder) *ScanHandler {
	return &ScanHandler{
		decoder: decoder,
	}
}

// Decode handles POST /api/v1/scan/decode. Accepts a multipart form with an
// "image" file, runs it through the preprocessing variants and the decoder,
// then validates the decoded text. A decodable frame carrying an invalid
// barcode is a 422 with the offending string; an undecodable frame is a 404.
func (h *ScanHandler) Decode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.Error(w, apierror.BadRequest("expected multipart form with an image file"))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		response.Error(w, apierror.BadRequest("image file is required"))
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		response.Error(w, apierror.BadRequest("unsupported or corrupt image"))
		return
	}

	text, format, err := scanner.DecodeFrame(h.decoder, img)
	if err != nil {
		response.Error(w, apierror.NotFound("no barcode found in image"))
		return
	}

	if !barcode.Validate(text, format) {
		response.Error(w, apierror.UnprocessableEntity(
			fmt.Sprintf("decoded %q as %s but it failed validation", text, format)))
		return
	}

	response.OK(w, map[string]interface{}{
		"barcode": text,
		"format":  format,
		"display": barcode.FormatDisplay(text, format),
	})
}

// validateRequest is the body of POST /api/v1/barcodes/validate.
type validateRequest struct {
	Barcode string `json:"barcode"`
	Format  string `json:"format,omitempty"`
}

// Validate handles POST /api/v1/barcodes/validate. With a format the check is
// strict for that symbology; without one the format is auto-detected.
func (h *ScanHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Barcode == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}

	result := map[string]interface{}{
		"barcode": req.Barcode,
	}

	if req.Format != "" {
		f := barcode.Format(req.Format)
		valid := barcode.Validate(req.Barcode, f)
		result["format"] = f
		result["valid"] = valid
		if valid {
			result["display"] = barcode.FormatDisplay(req.Barcode, f)
		}
		response.OK(w, result)
		return
	}

	format, ok := barcode.Detect(req.Barcode)
	result["valid"] = ok
	if ok {
		result["format"] = format
		result["display"] = barcode.FormatDisplay(req.Barcode, format)
	}
	response.OK(w, result)
}
