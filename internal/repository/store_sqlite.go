package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"scanhub-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite. Thread-safe with WAL mode for
// high-concurrency reads.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL,
		sku TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		brand TEXT NOT NULL DEFAULT '',
		barcode TEXT NOT NULL DEFAULT '',
		ean_code TEXT NOT NULL DEFAULT '',
		upc_code TEXT NOT NULL DEFAULT '',
		gtin TEXT NOT NULL DEFAULT '',
		unit_of_measure TEXT NOT NULL DEFAULT '',
		cost_price REAL NOT NULL DEFAULT 0,
		selling_price REAL NOT NULL DEFAULT 0,
		mrp REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_products_company ON products(company_id);
	CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);
	CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku);

	CREATE TABLE IF NOT EXISTS product_stocks (
		product_id INTEGER NOT NULL REFERENCES products(id),
		warehouse_id INTEGER NOT NULL,
		quantity REAL NOT NULL DEFAULT 0,
		available_quantity REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, warehouse_id)
	);

	CREATE TABLE IF NOT EXISTS barcode_scan_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL,
		barcode TEXT NOT NULL,
		scan_type TEXT NOT NULL,
		product_id INTEGER,
		session_id INTEGER,
		scanned_by INTEGER,
		scan_result TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '',
		scanned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_scan_logs_company ON barcode_scan_logs(company_id);
	CREATE INDEX IF NOT EXISTS idx_scan_logs_scanned_at ON barcode_scan_logs(scanned_at);

	CREATE TABLE IF NOT EXISTS stock_taking_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL,
		session_name TEXT NOT NULL,
		warehouse_id INTEGER,
		started_by INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_st_sessions_company ON stock_taking_sessions(company_id);

	CREATE TABLE IF NOT EXISTS stock_taking_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES stock_taking_sessions(id),
		product_id INTEGER NOT NULL,
		warehouse_id INTEGER,
		system_quantity REAL NOT NULL DEFAULT 0,
		counted_quantity REAL NOT NULL DEFAULT 0,
		barcode_scanned TEXT NOT NULL DEFAULT '',
		scan_count INTEGER NOT NULL DEFAULT 1,
		scanned_by INTEGER,
		notes TEXT NOT NULL DEFAULT '',
		scanned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (session_id, product_id)
	);
	`
	_, err := db.Exec(query)
	return err
}

// SearchByBarcode finds active products matching code on any barcode family field.
func (s *SQLiteStore) SearchByBarcode(ctx context.Context, companyID int64, code string) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, company_id, sku, name, description, brand, barcode, ean_code,
		       upc_code, gtin, unit_of_measure, cost_price, selling_price, mrp,
		       status, created_at, updated_at
		FROM products
		WHERE company_id = ? AND status = 'active'
		  AND (barcode = ? OR ean_code = ? OR upc_code = ? OR gtin = ? OR sku = ?)`

	rows, err := s.db.QueryContext(ctx, query, companyID, code, code, code, code, code)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Description,
			&p.Brand, &p.Barcode, &p.EANCode, &p.UPCCode, &p.GTIN, &p.UnitOfMeasure,
			&p.CostPrice, &p.SellingPrice, &p.MRP, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		stocks, err := s.loadStocks(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Stocks = stocks
	}
	return products, nil
}

func (s *SQLiteStore) loadStocks(ctx context.Context, productID int64) ([]model.WarehouseStock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT warehouse_id, quantity, available_quantity
		 FROM product_stocks WHERE product_id = ? ORDER BY warehouse_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stocks: %w", err)
	}
	defer rows.Close()

	var stocks []model.WarehouseStock
	for rows.Next() {
		var ws model.WarehouseStock
		if err := rows.Scan(&ws.WarehouseID, &ws.Quantity, &ws.AvailableQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, ws)
	}
	return stocks, rows.Err()
}

// CreateProduct inserts a product record.
func (s *SQLiteStore) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Status == "" {
		p.Status = model.ProductStatusActive
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO products (company_id, sku, name, description, brand, barcode,
			ean_code, upc_code, gtin, unit_of_measure, cost_price, selling_price, mrp, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CompanyID, p.SKU, p.Name, p.Description, p.Brand, p.Barcode,
		p.EANCode, p.UPCCode, p.GTIN, p.UnitOfMeasure, p.CostPrice, p.SellingPrice, p.MRP, p.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get product id: %w", err)
	}
	p.ID = id
	return p, nil
}

// SetStock upserts a per-warehouse quantity record.
func (s *SQLiteStore) SetStock(ctx context.Context, productID, warehouseID int64, quantity, available float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_stocks (product_id, warehouse_id, quantity, available_quantity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(product_id, warehouse_id) DO UPDATE SET
			quantity = excluded.quantity,
			available_quantity = excluded.available_quantity`,
		productID, warehouseID, quantity, available)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	return nil
}

// InsertScanLog records one completed lookup attempt.
func (s *SQLiteStore) InsertScanLog(ctx context.Context, entry *model.ScanLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return insertScanLogTx(ctx, s.db, entry)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertScanLogTx(ctx context.Context, db execer, entry *model.ScanLogEntry) error {
	scannedAt := entry.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO barcode_scan_logs (company_id, barcode, scan_type, product_id,
			session_id, scanned_by, scan_result, metadata, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CompanyID, entry.Barcode, entry.ScanType, entry.ProductID,
		entry.SessionID, entry.ScannedBy, entry.Result, entry.Metadata, scannedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scan log: %w", err)
	}
	return nil
}

// InsertScanLogBatch records multiple attempts within one transaction.
func (s *SQLiteStore) InsertScanLogBatch(ctx context.Context, entries []*model.ScanLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		if err := insertScanLogTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListScanLogs returns a company's entries, newest first.
func (s *SQLiteStore) ListScanLogs(ctx context.Context, companyID int64, limit, offset int) ([]model.ScanLogEntry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM barcode_scan_logs WHERE company_id = ?`, companyID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count scan logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, barcode, scan_type, product_id, session_id,
		       scanned_by, scan_result, metadata, scanned_at
		FROM barcode_scan_logs
		WHERE company_id = ?
		ORDER BY scanned_at DESC, id DESC
		LIMIT ? OFFSET ?`, companyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scan logs: %w", err)
	}
	defer rows.Close()

	var entries []model.ScanLogEntry
	for rows.Next() {
		var e model.ScanLogEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Barcode, &e.ScanType, &e.ProductID,
			&e.SessionID, &e.ScannedBy, &e.Result, &e.Metadata, &e.ScannedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// DeleteScanLogsBefore removes entries scanned before cutoff.
func (s *SQLiteStore) DeleteScanLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM barcode_scan_logs WHERE scanned_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scan logs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("[SQLiteStore] Deleted %d scan logs older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// CreateSession inserts a stock-taking session in active status.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *model.StockTakingSession) (*model.StockTakingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.Status = model.SessionStatusActive
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_taking_sessions (company_id, session_name, warehouse_id,
			started_by, notes, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.CompanyID, session.SessionName, session.WarehouseID,
		session.StartedBy, session.Notes, session.Status, session.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get session id: %w", err)
	}
	session.ID = id
	return session, nil
}

// GetSession returns a session by ID, or nil when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*model.StockTakingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := &model.StockTakingSession{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, session_name, warehouse_id, started_by, notes,
		       status, started_at, completed_at
		FROM stock_taking_sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.CompanyID, &session.SessionName, &session.WarehouseID,
		&session.StartedBy, &session.Notes, &session.Status, &session.StartedAt, &session.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListSessions returns a company's sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, companyID int64) ([]model.StockTakingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, session_name, warehouse_id, started_by, notes,
		       status, started_at, completed_at
		FROM stock_taking_sessions
		WHERE company_id = ?
		ORDER BY started_at DESC, id DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.StockTakingSession
	for rows.Next() {
		var ses model.StockTakingSession
		if err := rows.Scan(&ses.ID, &ses.CompanyID, &ses.SessionName, &ses.WarehouseID,
			&ses.StartedBy, &ses.Notes, &ses.Status, &ses.StartedAt, &ses.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, ses)
	}
	return sessions, rows.Err()
}

// SetSessionStatus finalizes or discards a session.
func (s *SQLiteStore) SetSessionStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE stock_taking_sessions SET status = ?, completed_at = ? WHERE id = ?`,
		status, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to set session status: %w", err)
	}
	return nil
}

// GetSessionItems returns a session's items ordered by most recent scan.
func (s *SQLiteStore) GetSessionItems(ctx context.Context, sessionID int64) ([]model.StockTakingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, product_id, warehouse_id, system_quantity,
		       counted_quantity, barcode_scanned, scan_count, scanned_by, notes, scanned_at
		FROM stock_taking_items
		WHERE session_id = ?
		ORDER BY scanned_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session items: %w", err)
	}
	defer rows.Close()

	var items []model.StockTakingItem
	for rows.Next() {
		var it model.StockTakingItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.ProductID, &it.WarehouseID,
			&it.SystemQuantity, &it.CountedQty, &it.BarcodeScanned, &it.ScanCount,
			&it.ScannedBy, &it.Notes, &it.ScannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItemByProduct returns the session's item for a product, or nil.
func (s *SQLiteStore) GetItemByProduct(ctx context.Context, sessionID, productID int64) (*model.StockTakingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it := &model.StockTakingItem{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, product_id, warehouse_id, system_quantity,
		       counted_quantity, barcode_scanned, scan_count, scanned_by, notes, scanned_at
		FROM stock_taking_items
		WHERE session_id = ? AND product_id = ?`, sessionID, productID,
	).Scan(&it.ID, &it.SessionID, &it.ProductID, &it.WarehouseID,
		&it.SystemQuantity, &it.CountedQty, &it.BarcodeScanned, &it.ScanCount,
		&it.ScannedBy, &it.Notes, &it.ScannedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session item: %w", err)
	}
	return it, nil
}

// InsertItem inserts a new counted item into a session.
func (s *SQLiteStore) InsertItem(ctx context.Context, item *model.StockTakingItem) (*model.StockTakingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ScanCount == 0 {
		item.ScanCount = 1
	}
	if item.ScannedAt.IsZero() {
		item.ScannedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_taking_items (session_id, product_id, warehouse_id,
			system_quantity, counted_quantity, barcode_scanned, scan_count,
			scanned_by, notes, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.SessionID, item.ProductID, item.WarehouseID, item.SystemQuantity,
		item.CountedQty, item.BarcodeScanned, item.ScanCount, item.ScannedBy,
		item.Notes, item.ScannedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get item id: %w", err)
	}
	item.ID = id
	return item, nil
}

// UpdateItemCount overwrites the counted quantity and scan counter.
func (s *SQLiteStore) UpdateItemCount(ctx context.Context, itemID int64, countedQty float64, scanCount int, scannedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE stock_taking_items
		SET counted_quantity = ?, scan_count = ?, scanned_at = ?
		WHERE id = ?`,
		countedQty, scanCount, scannedAt, itemID)
	if err != nil {
		return fmt.Errorf("failed to update session item: %w", err)
	}
	return nil
}

// Stats returns statistics about the store.
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	counts := map[string]string{
		"total_products":      "SELECT COUNT(*) FROM products",
		"total_scan_logs":     "SELECT COUNT(*) FROM barcode_scan_logs",
		"total_sessions":      "SELECT COUNT(*) FROM stock_taking_sessions",
		"total_session_items": "SELECT COUNT(*) FROM stock_taking_items",
	}
	for key, query := range counts {
		var n int64
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, err
		}
		stats[key] = n
	}

	var lastScan sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(scanned_at) FROM barcode_scan_logs").Scan(&lastScan); err == nil && lastScan.Valid {
		stats["last_scan"] = lastScan.Time
	}

	var pageCount, pageSize int64
	s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
