package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"scanhub-api/internal/model"
	"scanhub-api/internal/service"
	"scanhub-api/pkg/apierror"
	"scanhub-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// StockTakingHandler handles stock-taking session HTTP requests.
type StockTakingHandler struct {
	stockTakingService *service.StockTakingService
}

// NewStockTakingHandler creates a new stock-taking handler.
func NewStockTakingHandler(stockTakingService *service.StockTakingService) *StockTakingHandler {
	return &StockTakingHandler{
		stockTakingService: stockTakingService,
	}
}

// createSessionRequest is the body of POST /api/v1/stock-taking/sessions.
type createSessionRequest struct {
	CompanyID   int64  `json:"company_id"`
	SessionName string `json:"session_name"`
	WarehouseID *int64 `json:"warehouse_id,omitempty"`
	StartedBy   int64  `json:"started_by"`
	Notes       string `json:"notes,omitempty"`
}

// CreateSession handles POST /api/v1/stock-taking/sessions
func (h *StockTakingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.CompanyID <= 0 {
		response.Error(w, apierror.BadRequest("company_id is required"))
		return
	}
	if req.StartedBy <= 0 {
		response.Error(w, apierror.BadRequest("started_by is required"))
		return
	}

	session, err := h.stockTakingService.CreateSession(r.Context(), req.CompanyID, req.SessionName, req.WarehouseID, req.StartedBy, req.Notes)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, session)
}

// ListSessions handles GET /api/v1/stock-taking/sessions?company_id=
func (h *StockTakingHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyIDParam(w, r)
	if !ok {
		return
	}

	sessions, err := h.stockTakingService.ListSessions(r.Context(), companyID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession handles GET /api/v1/stock-taking/sessions/{id}?company_id=
func (h *StockTakingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyIDParam(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	session, err := h.stockTakingService.GetSession(r.Context(), companyID, sessionID)
	if err != nil {
		respondStockTakingError(w, err)
		return
	}

	response.OK(w, session)
}

// addScanRequest is the body of POST /api/v1/stock-taking/sessions/{id}/scans.
type addScanRequest struct {
	CompanyID  int64   `json:"company_id"`
	Barcode    string  `json:"barcode"`
	CountedQty float64 `json:"counted_quantity"`
	ScannedBy  *int64  `json:"scanned_by,omitempty"`
}

// AddScan handles POST /api/v1/stock-taking/sessions/{id}/scans
func (h *StockTakingHandler) AddScan(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req addScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.CompanyID <= 0 {
		response.Error(w, apierror.BadRequest("company_id is required"))
		return
	}
	if req.Barcode == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}
	if req.CountedQty <= 0 {
		req.CountedQty = 1
	}

	item, err := h.stockTakingService.AddScan(r.Context(), req.CompanyID, sessionID, req.Barcode, req.CountedQty, req.ScannedBy)
	if err != nil {
		respondStockTakingError(w, err)
		return
	}

	response.OK(w, item)
}

// closeSessionRequest is the body of complete/cancel calls.
type closeSessionRequest struct {
	CompanyID int64 `json:"company_id"`
}

// CompleteSession handles POST /api/v1/stock-taking/sessions/{id}/complete
func (h *StockTakingHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	h.closeSession(w, r, h.stockTakingService.CompleteSession)
}

// CancelSession handles POST /api/v1/stock-taking/sessions/{id}/cancel
func (h *StockTakingHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	h.closeSession(w, r, h.stockTakingService.CancelSession)
}

func (h *StockTakingHandler) closeSession(w http.ResponseWriter, r *http.Request, closeFn func(ctx context.Context, companyID, sessionID int64) (*model.StockTakingSession, error)) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req closeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.CompanyID <= 0 {
		response.Error(w, apierror.BadRequest("company_id is required"))
		return
	}

	session, err := closeFn(r.Context(), req.CompanyID, sessionID)
	if err != nil {
		respondStockTakingError(w, err)
		return
	}

	response.OK(w, session)
}

// companyIDParam parses the company_id query parameter, writing a 400 on failure.
func companyIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		response.Error(w, apierror.BadRequest("company_id is required"))
		return 0, false
	}
	return companyID, true
}

// sessionIDParam parses the {id} URL parameter, writing a 400 on failure.
func sessionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || sessionID <= 0 {
		response.Error(w, apierror.BadRequest("session id must be numeric"))
		return 0, false
	}
	return sessionID, true
}

// respondStockTakingError maps service sentinels to API errors.
func respondStockTakingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Error(w, apierror.NotFound(err.Error()))
	case errors.Is(err, service.ErrProductNotFound):
		response.Error(w, apierror.NotFound(err.Error()))
	case errors.Is(err, service.ErrSessionNotActive):
		response.Error(w, apierror.Conflict(err.Error()))
	default:
		response.Error(w, err)
	}
}
