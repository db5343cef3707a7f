package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"scanhub-api/internal/model"
	"scanhub-api/internal/repository"
)

// Sentinel errors surfaced to the HTTP layer.
type stockTakingError string

func (e stockTakingError) Error() string { return string(e) }

const (
	// ErrSessionNotFound indicates the session ID does not exist.
	ErrSessionNotFound stockTakingError = "stock-taking session not found"

	// ErrSessionNotActive indicates a scan or completion was attempted on a
	// completed or cancelled session.
	ErrSessionNotActive stockTakingError = "stock-taking session is not active"

	// ErrProductNotFound indicates the scanned barcode matched no product.
	ErrProductNotFound stockTakingError = "no product matches the scanned barcode"
)

// StockTakingService drives physical inventory count sessions. Scans resolve
// barcodes through the company catalog; repeat scans of the same product
// increment the scan counter and overwrite the counted quantity.
type StockTakingService struct {
	sessions repository.StockTakingRepository
	products repository.ProductRepository
	scanLogs repository.ScanLogRepository

	lookup *LookupService
}

// NewStockTakingService creates a stock-taking service.
// Returns nil if any dependency is nil.
func NewStockTakingService(
	sessions repository.StockTakingRepository,
	products repository.ProductRepository,
	scanLogs repository.ScanLogRepository,
) *StockTakingService {
	if sessions == nil || products == nil || scanLogs == nil {
		return nil
	}
	return &StockTakingService{
		sessions: sessions,
		products: products,
		scanLogs: scanLogs,
	}
}

// SetLookupService routes scan log entries through the lookup service's
// best-effort recording path (buffer + telemetry) instead of direct writes.
func (s *StockTakingService) SetLookupService(lookup *LookupService) {
	s.lookup = lookup
}

// CreateSession starts a new active session.
func (s *StockTakingService) CreateSession(ctx context.Context, companyID int64, name string, warehouseID *int64, startedBy int64, notes string) (*model.StockTakingSession, error) {
	if name == "" {
		name = fmt.Sprintf("Stock taking %s", time.Now().UTC().Format("2006-01-02 15:04"))
	}

	session, err := s.sessions.CreateSession(ctx, &model.StockTakingSession{
		CompanyID:   companyID,
		SessionName: name,
		WarehouseID: warehouseID,
		StartedBy:   startedBy,
		Notes:       notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("[StockTakingService] Session %d (%q) started for company %d", session.ID, session.SessionName, companyID)
	return session, nil
}

// GetSession returns a session with its items. companyID guards cross-company
// access: a session belonging to another company reads as not found.
func (s *StockTakingService) GetSession(ctx context.Context, companyID, sessionID int64) (*model.StockTakingSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.CompanyID != companyID {
		return nil, ErrSessionNotFound
	}

	items, err := s.sessions.GetSessionItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session items: %w", err)
	}
	session.Items = items
	return session, nil
}

// ListSessions returns the company's sessions, newest first.
func (s *StockTakingService) ListSessions(ctx context.Context, companyID int64) ([]model.StockTakingSession, error) {
	return s.sessions.ListSessions(ctx, companyID)
}

// AddScan records one barcode scan inside an active session. The barcode is
// resolved against the company catalog; the first scan of a product inserts an
// item seeded with its system quantity, repeat scans increment scan_count and
// overwrite counted_quantity with countedQty.
func (s *StockTakingService) AddScan(ctx context.Context, companyID, sessionID int64, code string, countedQty float64, scannedBy *int64) (*model.StockTakingItem, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.CompanyID != companyID {
		return nil, ErrSessionNotFound
	}
	if session.Status != model.SessionStatusActive {
		return nil, ErrSessionNotActive
	}

	products, err := s.products.SearchByBarcode(ctx, companyID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve barcode: %w", err)
	}
	if len(products) == 0 {
		s.recordScan(ctx, &model.ScanLogEntry{
			CompanyID: companyID,
			Barcode:   code,
			ScanType:  model.ScanTypeStockTaking,
			SessionID: &sessionID,
			ScannedBy: scannedBy,
			Result:    model.ScanResultNotFound,
		})
		return nil, ErrProductNotFound
	}
	product := products[0]

	now := time.Now().UTC()
	item, err := s.sessions.GetItemByProduct(ctx, sessionID, product.ID)
	if err != nil {
		return nil, err
	}

	if item == nil {
		item, err = s.sessions.InsertItem(ctx, &model.StockTakingItem{
			SessionID:      sessionID,
			ProductID:      product.ID,
			WarehouseID:    session.WarehouseID,
			SystemQuantity: systemQuantity(&product, session.WarehouseID),
			CountedQty:     countedQty,
			BarcodeScanned: code,
			ScanCount:      1,
			ScannedBy:      scannedBy,
			ScannedAt:      now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to insert session item: %w", err)
		}
	} else {
		item.ScanCount++
		item.CountedQty = countedQty
		item.ScannedAt = now
		if err := s.sessions.UpdateItemCount(ctx, item.ID, countedQty, item.ScanCount, now); err != nil {
			return nil, fmt.Errorf("failed to update session item: %w", err)
		}
	}

	s.recordScan(ctx, &model.ScanLogEntry{
		CompanyID: companyID,
		Barcode:   code,
		ScanType:  model.ScanTypeStockTaking,
		ProductID: &item.ProductID,
		SessionID: &sessionID,
		ScannedBy: scannedBy,
		Result:    model.ScanResultSuccess,
		ScannedAt: now,
	})

	return item, nil
}

// CompleteSession finalizes an active session.
func (s *StockTakingService) CompleteSession(ctx context.Context, companyID, sessionID int64) (*model.StockTakingSession, error) {
	return s.closeSession(ctx, companyID, sessionID, model.SessionStatusCompleted)
}

// CancelSession discards an active session. Items are kept for audit.
func (s *StockTakingService) CancelSession(ctx context.Context, companyID, sessionID int64) (*model.StockTakingSession, error) {
	return s.closeSession(ctx, companyID, sessionID, model.SessionStatusCancelled)
}

func (s *StockTakingService) closeSession(ctx context.Context, companyID, sessionID int64, status string) (*model.StockTakingSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.CompanyID != companyID {
		return nil, ErrSessionNotFound
	}
	if session.Status != model.SessionStatusActive {
		return nil, ErrSessionNotActive
	}

	now := time.Now().UTC()
	if err := s.sessions.SetSessionStatus(ctx, sessionID, status, &now); err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}

	session.Status = status
	session.CompletedAt = &now
	log.Printf("[StockTakingService] Session %d %s", sessionID, status)
	return session, nil
}

// recordScan routes through the lookup service's best-effort path when wired,
// otherwise writes directly. Failures are swallowed either way.
func (s *StockTakingService) recordScan(ctx context.Context, entry *model.ScanLogEntry) {
	if s.lookup != nil {
		s.lookup.recordScan(ctx, entry)
		return
	}
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = time.Now().UTC()
	}
	if err := s.scanLogs.InsertScanLog(ctx, entry); err != nil {
		log.Printf("[StockTakingService] Failed to record scan log: %v", err)
	}
}

// systemQuantity picks the recorded quantity for the session's warehouse, or
// the sum across warehouses when the session is not warehouse-scoped.
func systemQuantity(p *model.Product, warehouseID *int64) float64 {
	if warehouseID != nil {
		for _, ws := range p.Stocks {
			if ws.WarehouseID == *warehouseID {
				return ws.Quantity
			}
		}
		return 0
	}

	var total float64
	for _, ws := range p.Stocks {
		total += ws.Quantity
	}
	return total
}
