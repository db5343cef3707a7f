package handler

import (
	"net/http"
	"strconv"

	"scanhub-api/internal/service"
	"scanhub-api/pkg/apierror"
	"scanhub-api/pkg/barcode"
	"scanhub-api/pkg/response"
)

// LookupHandler handles barcode lookup HTTP requests.
type LookupHandler struct {
	lookupService *service.LookupService
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(lookupService *service.LookupService) *LookupHandler {
	return &LookupHandler{
		lookupService: lookupService,
	}
}

// Lookup handles GET /api/v1/products/lookup?barcode=&company_id=&scanned_by=
func (h *LookupHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("barcode")
	if code == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}

	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		response.Error(w, apierror.BadRequest("company_id is required"))
		return
	}

	var scannedBy *int64
	if v := r.URL.Query().Get("scanned_by"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Error(w, apierror.BadRequest("scanned_by must be numeric"))
			return
		}
		scannedBy = &id
	}

	products, err := h.lookupService.SearchProductByBarcode(r.Context(), companyID, code, scannedBy)
	if err != nil {
		response.Error(w, err)
		return
	}

	result := map[string]interface{}{
		"barcode":  code,
		"found":    len(products) > 0,
		"products": products,
	}
	if format, ok := barcode.Detect(code); ok {
		result["format"] = format
	}

	response.OK(w, result)
}

// ScanLogs handles GET /api/v1/scan-logs?company_id=&page=&limit=
func (h *LookupHandler) ScanLogs(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		response.Error(w, apierror.BadRequest("company_id is required"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, total, err := h.lookupService.ListScanLogs(r.Context(), companyID, limit, (page-1)*limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, entries, page, limit, total)
}

// MasterLookup handles GET /api/v1/products/master/lookup?barcode=
func (h *LookupHandler) MasterLookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("barcode")
	if code == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}

	products, err := h.lookupService.SearchMasterProductByBarcode(r.Context(), code)
	if err != nil {
		response.Error(w, apierror.ServiceUnavailable("master catalog unavailable"))
		return
	}

	response.OK(w, map[string]interface{}{
		"barcode":  code,
		"found":    len(products) > 0,
		"products": products,
	})
}
