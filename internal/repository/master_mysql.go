package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scanhub-api/internal/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLMasterCatalog implements MasterProductRepository against the shared
// master catalog database. The catalog is read-only from this service's
// point of view.
type MySQLMasterCatalog struct {
	db *sql.DB
}

// NewMySQLMasterCatalog creates a master catalog repository on an existing
// connection pool.
func NewMySQLMasterCatalog(db *sql.DB) *MySQLMasterCatalog {
	return &MySQLMasterCatalog{db: db}
}

// OpenMasterDB opens and pings the master catalog MySQL database.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func OpenMasterDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open master DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping master DB: %w", err)
	}
	return db, nil
}

// SearchByBarcode finds active master products matching code on any barcode
// family field.
func (r *MySQLMasterCatalog) SearchByBarcode(ctx context.Context, code string) ([]model.MasterProduct, error) {
	query := `
		SELECT id, sku, name, brand, barcode, ean_code, upc_code, gtin, status
		FROM master_products
		WHERE status = 'active'
		  AND (barcode = ? OR ean_code = ? OR upc_code = ? OR gtin = ? OR sku = ?)`

	rows, err := r.db.QueryContext(ctx, query, code, code, code, code, code)
	if err != nil {
		return nil, fmt.Errorf("failed to search master products: %w", err)
	}
	defer rows.Close()

	var products []model.MasterProduct
	for rows.Next() {
		var p model.MasterProduct
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Brand, &p.Barcode,
			&p.EANCode, &p.UPCCode, &p.GTIN, &p.Status); err != nil {
			return nil, fmt.Errorf("failed to scan master product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Ensure MySQLMasterCatalog implements MasterProductRepository
var _ MasterProductRepository = (*MySQLMasterCatalog)(nil)
