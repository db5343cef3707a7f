package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"scanhub-api/internal/cache"
	"scanhub-api/internal/model"
	"scanhub-api/internal/repository"
)

// DefaultLookupCacheTTL keeps lookup results fresh enough that catalog edits
// show up within a few seconds.
const DefaultLookupCacheTTL = 30 * time.Second

// LookupService resolves scanned barcodes against the company catalog and the
// optional global master catalog, recording scan logs best-effort.
type LookupService struct {
	products repository.ProductRepository
	master   repository.MasterProductRepository
	scanLogs repository.ScanLogRepository

	buffer    *cache.RedisScanLogBuffer
	telemetry repository.ScanTelemetrySink
	cache     cache.Cache
	cacheTTL  time.Duration
}

// NewLookupService creates a lookup service.
// Returns nil if products or scanLogs is nil (required dependencies).
// master is optional: master lookups fail with a degraded-mode error when absent.
func NewLookupService(
	products repository.ProductRepository,
	master repository.MasterProductRepository,
	scanLogs repository.ScanLogRepository,
) *LookupService {
	if products == nil || scanLogs == nil {
		return nil
	}
	return &LookupService{
		products: products,
		master:   master,
		scanLogs: scanLogs,
		cacheTTL: DefaultLookupCacheTTL,
	}
}

// SetBuffer sets the Redis buffer for write-behind scan logging.
func (s *LookupService) SetBuffer(buffer *cache.RedisScanLogBuffer) {
	s.buffer = buffer
}

// SetTelemetry sets an optional secondary sink that receives a copy of every
// scan log entry.
func (s *LookupService) SetTelemetry(sink repository.ScanTelemetrySink) {
	s.telemetry = sink
}

// SetCache enables read-side caching of lookup results.
func (s *LookupService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// SearchProductByBarcode matches code against the barcode family fields of the
// company's active products. Every call records a scan log entry regardless of
// cache hits: a scan happened either way.
func (s *LookupService) SearchProductByBarcode(ctx context.Context, companyID int64, code string, scannedBy *int64) ([]model.Product, error) {
	products, err := s.searchCached(ctx, companyID, code)
	if err != nil {
		s.recordScan(ctx, &model.ScanLogEntry{
			CompanyID: companyID,
			Barcode:   code,
			ScanType:  model.ScanTypeProductLookup,
			ScannedBy: scannedBy,
			Result:    model.ScanResultError,
		})
		return nil, err
	}

	entry := &model.ScanLogEntry{
		CompanyID: companyID,
		Barcode:   code,
		ScanType:  model.ScanTypeProductLookup,
		ScannedBy: scannedBy,
		Result:    model.ScanResultNotFound,
	}
	if len(products) > 0 {
		entry.Result = model.ScanResultSuccess
		entry.ProductID = &products[0].ID
	}
	s.recordScan(ctx, entry)

	return products, nil
}

func (s *LookupService) searchCached(ctx context.Context, companyID int64, code string) ([]model.Product, error) {
	if s.cache == nil {
		return s.products.SearchByBarcode(ctx, companyID, code)
	}

	key := fmt.Sprintf("lookup:%d:%s", companyID, code)
	data, err := s.cache.GetOrSet(ctx, key, s.cacheTTL, func() ([]byte, error) {
		products, err := s.products.SearchByBarcode(ctx, companyID, code)
		if err != nil {
			return nil, err
		}
		return json.Marshal(products)
	})
	if err != nil {
		return nil, err
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode cached lookup: %w", err)
	}
	return products, nil
}

// ListScanLogs returns a page of the company's scan history, newest first.
func (s *LookupService) ListScanLogs(ctx context.Context, companyID int64, limit, offset int) ([]model.ScanLogEntry, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.scanLogs.ListScanLogs(ctx, companyID, limit, offset)
}

// SearchMasterProductByBarcode queries the global catalog. Master lookups are
// reference queries, not scan events, so nothing is logged.
func (s *LookupService) SearchMasterProductByBarcode(ctx context.Context, code string) ([]model.MasterProduct, error) {
	if s.master == nil {
		return nil, fmt.Errorf("master catalog not configured")
	}
	return s.master.SearchByBarcode(ctx, code)
}

// recordScan persists a scan log entry best-effort. Buffer first when
// available, direct repository write otherwise; failures are logged and
// swallowed so a logging outage never breaks lookups.
func (s *LookupService) recordScan(ctx context.Context, entry *model.ScanLogEntry) {
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = time.Now().UTC()
	}

	if s.buffer != nil {
		err := s.buffer.Add(ctx, entry)
		if err == nil {
			s.recordTelemetry(ctx, entry)
			return
		}
		log.Printf("[LookupService] Buffer add failed, falling back to direct write: %v", err)
	}

	if err := s.scanLogs.InsertScanLog(ctx, entry); err != nil {
		log.Printf("[LookupService] Failed to record scan log: %v", err)
	}
	s.recordTelemetry(ctx, entry)
}

func (s *LookupService) recordTelemetry(ctx context.Context, entry *model.ScanLogEntry) {
	if s.telemetry == nil {
		return
	}
	if err := s.telemetry.RecordScan(ctx, entry); err != nil {
		log.Printf("[LookupService] Telemetry sink write failed: %v", err)
	}
}

// CreateFlushFunc creates a flush function for the Redis scan log buffer.
func CreateFlushFunc(repo repository.ScanLogRepository) cache.FlushFunc {
	return func(ctx context.Context, entries []*model.ScanLogEntry) error {
		return repo.InsertScanLogBatch(ctx, entries)
	}
}
