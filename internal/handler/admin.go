package handler

import (
	"net/http"
	"runtime"
	"time"

	"scanhub-api/internal/cache"
	"scanhub-api/internal/repository"
	"scanhub-api/pkg/apierror"
	"scanhub-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests. All endpoints require the
// configured X-Login-Key header.
type AdminHandler struct {
	store       repository.Store
	redisBuffer *cache.RedisScanLogBuffer
	storeType   string // sqlite or postgres
	loginKey    string
	startTime   time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	store repository.Store,
	redisBuffer *cache.RedisScanLogBuffer,
	storeType string,
	loginKey string,
) *AdminHandler {
	return &AdminHandler{
		store:       store,
		redisBuffer: redisBuffer,
		storeType:   storeType,
		loginKey:    loginKey,
		startTime:   time.Now(),
	}
}

// authorize checks the X-Login-Key header. A blank configured key locks the
// admin surface entirely rather than opening it.
func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.loginKey == "" || r.Header.Get("X-Login-Key") != h.loginKey {
		response.Error(w, apierror.Forbidden("invalid login key"))
		return false
	}
	return true
}

// VerifyLogin handles POST /api/v1/admin/login
func (h *AdminHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	response.OK(w, map[string]string{"status": "authorized"})
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
		"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
		"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":  float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":         memStats.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}

	// Redis scan-log buffer stats
	if h.redisBuffer != nil {
		count, err := h.redisBuffer.Count(ctx)
		if err == nil {
			stats["scan_log_buffer"] = map[string]interface{}{
				"pending_entries": count,
				"status":          "connected",
			}
		} else {
			stats["scan_log_buffer"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["scan_log_buffer"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Store stats
	if h.store != nil {
		storeStats, err := h.store.Stats(ctx)
		if err == nil {
			storeStats["status"] = "connected"
			stats["store"] = storeStats
		} else {
			stats["store"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["store"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// GetHealth handles GET /api/v1/admin/health
func (h *AdminHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	response.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
