package model

import "time"

// Product statuses.
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product represents a company-scoped catalog record. Any of the barcode
// family fields (Barcode, EANCode, UPCCode, GTIN, SKU) can match a scan.
type Product struct {
	ID            int64   `json:"id"`
	CompanyID     int64   `json:"company_id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Barcode       string  `json:"barcode,omitempty"`
	EANCode       string  `json:"ean_code,omitempty"`
	UPCCode       string  `json:"upc_code,omitempty"`
	GTIN          string  `json:"gtin,omitempty"`
	UnitOfMeasure string  `json:"unit_of_measure,omitempty"`
	CostPrice     float64 `json:"cost_price"`
	SellingPrice  float64 `json:"selling_price"`
	MRP           float64 `json:"mrp"`
	Status        string  `json:"status"`

	// Stocks holds per-warehouse availability, joined on lookup.
	Stocks []WarehouseStock `json:"stocks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarehouseStock is the per-warehouse quantity record joined to a product.
type WarehouseStock struct {
	WarehouseID       int64   `json:"warehouse_id"`
	Quantity          float64 `json:"quantity"`
	AvailableQuantity float64 `json:"available_quantity"`
}

// MasterProduct is a record in the global (non-company-scoped) catalog.
type MasterProduct struct {
	ID      int64  `json:"id"`
	SKU     string `json:"sku"`
	Name    string `json:"name"`
	Brand   string `json:"brand,omitempty"`
	Barcode string `json:"barcode,omitempty"`
	EANCode string `json:"ean_code,omitempty"`
	UPCCode string `json:"upc_code,omitempty"`
	GTIN    string `json:"gtin,omitempty"`
	Status  string `json:"status"`
}
