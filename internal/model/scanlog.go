package model

import "time"

// Scan outcomes recorded in barcode_scan_logs.
const (
	ScanResultSuccess  = "success"
	ScanResultNotFound = "not_found"
	ScanResultError    = "error"
)

// Scan types.
const (
	ScanTypeProductLookup = "product_lookup"
	ScanTypeStockTaking   = "stock_taking"
)

// ScanLogEntry records one completed lookup attempt. Entries are written
// best-effort and never mutated or deleted by the lookup path; retention is
// handled by the background scheduler.
type ScanLogEntry struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Barcode   string    `json:"barcode"`
	ScanType  string    `json:"scan_type"`
	ProductID *int64    `json:"product_id,omitempty"`
	SessionID *int64    `json:"session_id,omitempty"`
	ScannedBy *int64    `json:"scanned_by,omitempty"`
	Result    string    `json:"scan_result"`
	Metadata  string    `json:"metadata,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}
