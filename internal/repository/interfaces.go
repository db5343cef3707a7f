package repository

import (
	"context"
	"time"

	"scanhub-api/internal/model"
)

// ProductRepository defines company-scoped product catalog access.
type ProductRepository interface {
	// SearchByBarcode finds active products for a company where any of the
	// barcode family fields (barcode, ean_code, upc_code, gtin, sku) equals
	// code, with per-warehouse stock joined in.
	SearchByBarcode(ctx context.Context, companyID int64, code string) ([]model.Product, error)

	// CreateProduct inserts a product record.
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)

	// SetStock upserts the per-warehouse quantity record for a product.
	SetStock(ctx context.Context, productID, warehouseID int64, quantity, available float64) error
}

// MasterProductRepository defines access to the global product catalog.
type MasterProductRepository interface {
	// SearchByBarcode finds active master products matching code on any of
	// the barcode family fields.
	SearchByBarcode(ctx context.Context, code string) ([]model.MasterProduct, error)
}

// ScanLogRepository defines scan telemetry persistence. Writes are
// best-effort from the caller's perspective; implementations still report
// errors so buffers can retry.
type ScanLogRepository interface {
	// InsertScanLog records one completed lookup attempt.
	InsertScanLog(ctx context.Context, entry *model.ScanLogEntry) error

	// InsertScanLogBatch records multiple attempts efficiently; used by the
	// write-behind buffer flush path.
	InsertScanLogBatch(ctx context.Context, entries []*model.ScanLogEntry) error

	// ListScanLogs returns a company's entries, newest first, with the total count.
	ListScanLogs(ctx context.Context, companyID int64, limit, offset int) ([]model.ScanLogEntry, int64, error)

	// DeleteScanLogsBefore removes entries scanned before cutoff, returning
	// the number deleted.
	DeleteScanLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StockTakingRepository defines stock-taking session persistence.
type StockTakingRepository interface {
	CreateSession(ctx context.Context, s *model.StockTakingSession) (*model.StockTakingSession, error)

	// GetSession returns a session by ID, or nil when absent.
	GetSession(ctx context.Context, id int64) (*model.StockTakingSession, error)

	ListSessions(ctx context.Context, companyID int64) ([]model.StockTakingSession, error)

	// SetSessionStatus finalizes or discards a session.
	SetSessionStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error

	GetSessionItems(ctx context.Context, sessionID int64) ([]model.StockTakingItem, error)

	// GetItemByProduct returns the session's item for a product, or nil when
	// the product has not been counted yet.
	GetItemByProduct(ctx context.Context, sessionID, productID int64) (*model.StockTakingItem, error)

	InsertItem(ctx context.Context, item *model.StockTakingItem) (*model.StockTakingItem, error)

	// UpdateItemCount overwrites the counted quantity and scan counter of an
	// existing item.
	UpdateItemCount(ctx context.Context, itemID int64, countedQty float64, scanCount int, scannedAt time.Time) error
}

// Store bundles the repositories backed by one relational database.
type Store interface {
	ProductRepository
	ScanLogRepository
	StockTakingRepository

	// Stats returns statistics about the store for the admin surface.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the underlying connection.
	Close() error
}
