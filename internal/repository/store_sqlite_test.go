package repository

import (
	"context"
	"testing"
	"time"

	"scanhub-api/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func seedProduct(t *testing.T, store *SQLiteStore, companyID int64, name, barcode string) *model.Product {
	t.Helper()
	p, err := store.CreateProduct(context.Background(), &model.Product{
		CompanyID: companyID,
		SKU:       "SKU-" + barcode,
		Name:      name,
		Barcode:   barcode,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return p
}

func TestSearchByBarcodeScopedToCompany(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, store, 1, "Milk 1L", "4006381333931")
	seedProduct(t, store, 2, "Other Milk", "4006381333931")

	found, err := store.SearchByBarcode(ctx, 1, "4006381333931")
	if err != nil {
		t.Fatalf("SearchByBarcode: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 product for company 1, got %d", len(found))
	}
	if found[0].Name != "Milk 1L" {
		t.Errorf("wrong product: %q", found[0].Name)
	}

	found, err = store.SearchByBarcode(ctx, 3, "4006381333931")
	if err != nil {
		t.Fatalf("SearchByBarcode: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected no products for company 3, got %d", len(found))
	}
}

func TestSearchByBarcodeMatchesAllBarcodeFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, &model.Product{
		CompanyID: 1,
		SKU:       "CHOC-99",
		Name:      "Chocolate Bar",
		Barcode:   "4006381333931",
		EANCode:   "7357462",
		UPCCode:   "036000291452",
		GTIN:      "00012345600012",
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	for _, code := range []string{"4006381333931", "7357462", "036000291452", "00012345600012", "CHOC-99"} {
		found, err := store.SearchByBarcode(ctx, 1, code)
		if err != nil {
			t.Fatalf("SearchByBarcode(%q): %v", code, err)
		}
		if len(found) != 1 || found[0].ID != p.ID {
			t.Errorf("code %q: expected product %d, got %v", code, p.ID, found)
		}
	}
}

func TestSearchByBarcodeSkipsInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProduct(ctx, &model.Product{
		CompanyID: 1,
		Name:      "Discontinued",
		Barcode:   "73574620",
		Status:    model.ProductStatusInactive,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	found, err := store.SearchByBarcode(ctx, 1, "73574620")
	if err != nil {
		t.Fatalf("SearchByBarcode: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("inactive product should not match, got %d", len(found))
	}
}

func TestSearchByBarcodeLoadsStocks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, store, 1, "Widget", "73574620")
	if err := store.SetStock(ctx, p.ID, 10, 42, 40); err != nil {
		t.Fatalf("SetStock: %v", err)
	}
	if err := store.SetStock(ctx, p.ID, 11, 5, 5); err != nil {
		t.Fatalf("SetStock: %v", err)
	}
	// Upsert overwrites warehouse 10.
	if err := store.SetStock(ctx, p.ID, 10, 41, 39); err != nil {
		t.Fatalf("SetStock upsert: %v", err)
	}

	found, err := store.SearchByBarcode(ctx, 1, "73574620")
	if err != nil {
		t.Fatalf("SearchByBarcode: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 product, got %d", len(found))
	}
	stocks := found[0].Stocks
	if len(stocks) != 2 {
		t.Fatalf("expected 2 stock rows, got %d", len(stocks))
	}
	if stocks[0].WarehouseID != 10 || stocks[0].Quantity != 41 {
		t.Errorf("warehouse 10: got %+v", stocks[0])
	}
}

func TestScanLogInsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	productID := int64(7)
	for i := 0; i < 3; i++ {
		err := store.InsertScanLog(ctx, &model.ScanLogEntry{
			CompanyID: 1,
			Barcode:   "4006381333931",
			ScanType:  model.ScanTypeProductLookup,
			ProductID: &productID,
			Result:    model.ScanResultSuccess,
			ScannedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("InsertScanLog: %v", err)
		}
	}
	// Another company's entry must not leak.
	if err := store.InsertScanLog(ctx, &model.ScanLogEntry{
		CompanyID: 2,
		Barcode:   "73574620",
		ScanType:  model.ScanTypeProductLookup,
		Result:    model.ScanResultNotFound,
	}); err != nil {
		t.Fatalf("InsertScanLog: %v", err)
	}

	entries, total, err := store.ListScanLogs(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("ListScanLogs: %v", err)
	}
	if total != 3 || len(entries) != 3 {
		t.Fatalf("expected 3 entries, got total=%d len=%d", total, len(entries))
	}
	if entries[0].ProductID == nil || *entries[0].ProductID != productID {
		t.Errorf("product_id not round-tripped: %v", entries[0].ProductID)
	}

	// Pagination.
	entries, total, err = store.ListScanLogs(ctx, 1, 2, 2)
	if err != nil {
		t.Fatalf("ListScanLogs paged: %v", err)
	}
	if total != 3 || len(entries) != 1 {
		t.Fatalf("expected page of 1 with total 3, got total=%d len=%d", total, len(entries))
	}
}

func TestScanLogBatchInsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := []*model.ScanLogEntry{
		{CompanyID: 1, Barcode: "a", ScanType: model.ScanTypeProductLookup, Result: model.ScanResultSuccess},
		{CompanyID: 1, Barcode: "b", ScanType: model.ScanTypeProductLookup, Result: model.ScanResultNotFound},
		{CompanyID: 1, Barcode: "c", ScanType: model.ScanTypeStockTaking, Result: model.ScanResultSuccess},
	}
	if err := store.InsertScanLogBatch(ctx, batch); err != nil {
		t.Fatalf("InsertScanLogBatch: %v", err)
	}
	if err := store.InsertScanLogBatch(ctx, nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}

	_, total, err := store.ListScanLogs(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("ListScanLogs: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 entries, got %d", total)
	}
}

func TestDeleteScanLogsBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()
	for _, ts := range []time.Time{old, old.Add(time.Hour), fresh} {
		if err := store.InsertScanLog(ctx, &model.ScanLogEntry{
			CompanyID: 1, Barcode: "x", ScanType: model.ScanTypeProductLookup,
			Result: model.ScanResultSuccess, ScannedAt: ts,
		}); err != nil {
			t.Fatalf("InsertScanLog: %v", err)
		}
	}

	deleted, err := store.DeleteScanLogsBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteScanLogsBefore: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	_, total, err := store.ListScanLogs(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("ListScanLogs: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", total)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, &model.StockTakingSession{
		CompanyID:   1,
		SessionName: "Q3 count",
		StartedBy:   99,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.ID == 0 {
		t.Fatal("session ID not assigned")
	}
	if session.Status != model.SessionStatusActive {
		t.Fatalf("new session status = %q", session.Status)
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil || got.SessionName != "Q3 count" {
		t.Fatalf("GetSession returned %+v", got)
	}

	missing, err := store.GetSession(ctx, 9999)
	if err != nil {
		t.Fatalf("GetSession missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing session, got %+v", missing)
	}

	now := time.Now().UTC()
	if err := store.SetSessionStatus(ctx, session.ID, model.SessionStatusCompleted, &now); err != nil {
		t.Fatalf("SetSessionStatus: %v", err)
	}
	got, err = store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != model.SessionStatusCompleted || got.CompletedAt == nil {
		t.Fatalf("completion not persisted: %+v", got)
	}

	sessions, err := store.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
}

func TestSessionItemInsertAndUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, &model.StockTakingSession{
		CompanyID: 1, SessionName: "count", StartedBy: 1,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	item, err := store.InsertItem(ctx, &model.StockTakingItem{
		SessionID:      session.ID,
		ProductID:      42,
		SystemQuantity: 100,
		CountedQty:     1,
		BarcodeScanned: "4006381333931",
	})
	if err != nil {
		t.Fatalf("InsertItem: %v", err)
	}
	if item.ScanCount != 1 {
		t.Fatalf("default scan_count = %d, want 1", item.ScanCount)
	}

	existing, err := store.GetItemByProduct(ctx, session.ID, 42)
	if err != nil {
		t.Fatalf("GetItemByProduct: %v", err)
	}
	if existing == nil || existing.ID != item.ID {
		t.Fatalf("GetItemByProduct returned %+v", existing)
	}

	none, err := store.GetItemByProduct(ctx, session.ID, 777)
	if err != nil {
		t.Fatalf("GetItemByProduct absent: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for absent item, got %+v", none)
	}

	// Re-scan: counted quantity overwritten, scan counter incremented.
	if err := store.UpdateItemCount(ctx, item.ID, 2, 2, time.Now().UTC()); err != nil {
		t.Fatalf("UpdateItemCount: %v", err)
	}
	updated, err := store.GetItemByProduct(ctx, session.ID, 42)
	if err != nil {
		t.Fatalf("GetItemByProduct: %v", err)
	}
	if updated.CountedQty != 2 || updated.ScanCount != 2 {
		t.Fatalf("update not persisted: %+v", updated)
	}

	items, err := store.GetSessionItems(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedProduct(t, store, 1, "Widget", "73574620")
	if err := store.InsertScanLog(ctx, &model.ScanLogEntry{
		CompanyID: 1, Barcode: "73574620",
		ScanType: model.ScanTypeProductLookup, Result: model.ScanResultSuccess,
	}); err != nil {
		t.Fatalf("InsertScanLog: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["total_products"].(int64) != 1 {
		t.Errorf("total_products = %v", stats["total_products"])
	}
	if stats["total_scan_logs"].(int64) != 1 {
		t.Errorf("total_scan_logs = %v", stats["total_scan_logs"])
	}
}
