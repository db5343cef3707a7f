package service

import (
	"context"
	"log"
	"sync"
	"time"

	"scanhub-api/internal/repository"
)

// RetentionConfig holds configuration for the scan log retention scheduler.
type RetentionConfig struct {
	// MaxAge is the age after which scan log entries are deleted.
	// Default: 90 days
	MaxAge time.Duration

	// Interval is how often the retention pass runs.
	// Default: 24 hours
	Interval time.Duration
}

// DefaultRetentionConfig returns default retention configuration.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		MaxAge:   90 * 24 * time.Hour,
		Interval: 24 * time.Hour,
	}
}

// RetentionScheduler runs periodic deletion of old scan log entries.
type RetentionScheduler struct {
	repo      repository.ScanLogRepository
	config    RetentionConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewRetentionScheduler creates a new retention scheduler.
func NewRetentionScheduler(repo repository.ScanLogRepository, config RetentionConfig) *RetentionScheduler {
	if config.MaxAge == 0 {
		config.MaxAge = 90 * 24 * time.Hour
	}
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}

	return &RetentionScheduler{
		repo:   repo,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the retention scheduler.
func (s *RetentionScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[RetentionScheduler] Started - Interval: %v, MaxAge: %v",
		s.config.Interval, s.config.MaxAge)

	// Run an initial pass shortly after startup.
	go func() {
		select {
		case <-time.After(1 * time.Minute):
			s.runRetention()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

func (s *RetentionScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runRetention()
		case <-s.stopCh:
			log.Printf("[RetentionScheduler] Stopped")
			return
		}
	}
}

func (s *RetentionScheduler) runRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.config.MaxAge)
	deleted, err := s.repo.DeleteScanLogsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[RetentionScheduler] Error during retention pass: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("[RetentionScheduler] Deleted %d scan logs older than %v", deleted, s.config.MaxAge)
	}
}

// Stop stops the retention scheduler.
func (s *RetentionScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate retention pass.
func (s *RetentionScheduler) RunNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return s.repo.DeleteScanLogsBefore(ctx, time.Now().UTC().Add(-s.config.MaxAge))
}
