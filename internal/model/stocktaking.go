package model

import "time"

// Stock-taking session statuses.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// StockTakingSession is a bounded physical inventory count exercise. Items
// accumulate through scans or manual entry until the session is explicitly
// completed or cancelled.
type StockTakingSession struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	SessionName string     `json:"session_name"`
	WarehouseID *int64     `json:"warehouse_id,omitempty"`
	StartedBy   int64      `json:"started_by"`
	Notes       string     `json:"notes,omitempty"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Items []StockTakingItem `json:"items,omitempty"`
}

// StockTakingItem ties a product to a system-recorded quantity and the
// quantity counted so far. ScanCount increments on every repeat scan of the
// same product; CountedQuantity is overwritten, not summed, so repeated scans
// model repeated physical unit counts.
type StockTakingItem struct {
	ID             int64     `json:"id"`
	SessionID      int64     `json:"session_id"`
	ProductID      int64     `json:"product_id"`
	WarehouseID    *int64    `json:"warehouse_id,omitempty"`
	SystemQuantity float64   `json:"system_quantity"`
	CountedQty     float64   `json:"counted_quantity"`
	BarcodeScanned string    `json:"barcode_scanned,omitempty"`
	ScanCount      int       `json:"scan_count"`
	ScannedBy      *int64    `json:"scanned_by,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	ScannedAt      time.Time `json:"scanned_at"`
}
