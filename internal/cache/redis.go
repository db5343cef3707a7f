package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"scanhub-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// Buffer configuration
const (
	MaxBatchSize     = 50
	FlushTimeout     = 30 * time.Second
	BacklogWarnDepth = 5000
	MonitorInterval  = 1 * time.Minute
)

// FlushFunc is called to persist buffered scan log entries to the database.
type FlushFunc func(ctx context.Context, entries []*model.ScanLogEntry) error

// RedisScanLogBuffer uses a Redis list for write-behind scan logging. Entries
// are append-only, so ordering is FIFO and a failed flush simply requeues the
// batch at the head of the list.
type RedisScanLogBuffer struct {
	client      *redis.Client
	flushFunc   FlushFunc
	flushTicker *time.Ticker
	monitor     *time.Ticker
	stopFlush   chan struct{}
	stopOnce    sync.Once
	keyPrefix   string
}

// RedisBufferConfig holds configuration for the Redis buffer.
type RedisBufferConfig struct {
	Addr          string
	Password      string
	DB            int
	FlushInterval time.Duration
	KeyPrefix     string
}

// NewRedisScanLogBuffer creates a Redis-backed scan log buffer.
func NewRedisScanLogBuffer(cfg RedisBufferConfig, flushFunc FlushFunc) (*RedisScanLogBuffer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "scanhub:scanlogs"
	}

	b := &RedisScanLogBuffer{
		client:      client,
		flushFunc:   flushFunc,
		flushTicker: time.NewTicker(cfg.FlushInterval),
		monitor:     time.NewTicker(MonitorInterval),
		stopFlush:   make(chan struct{}),
		keyPrefix:   keyPrefix,
	}

	go b.backgroundFlush()
	go b.backgroundMonitor()

	log.Printf("[RedisScanLogBuffer] Started - DB:%d, prefix:%s, flush:%v, batch:%d",
		cfg.DB, keyPrefix, cfg.FlushInterval, MaxBatchSize)
	return b, nil
}

func (b *RedisScanLogBuffer) queueKey() string {
	return b.keyPrefix + ":queue"
}

// Add buffers one scan log entry in Redis.
func (b *RedisScanLogBuffer) Add(ctx context.Context, entry *model.ScanLogEntry) error {
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = time.Now().UTC()
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return b.client.RPush(ctx, b.queueKey(), jsonData).Err()
}

// Count returns the number of pending entries.
func (b *RedisScanLogBuffer) Count(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.queueKey()).Result()
}

// FlushBatch writes up to MaxBatchSize entries to the database. A failed
// database write pushes the batch back to the head of the queue.
func (b *RedisScanLogBuffer) FlushBatch(ctx context.Context) (int, error) {
	raw, err := b.client.LPopCount(ctx, b.queueKey(), MaxBatchSize).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	entries := make([]*model.ScanLogEntry, 0, len(raw))
	for _, data := range raw {
		var entry model.ScanLogEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			log.Printf("[RedisScanLogBuffer] Dropping malformed entry: %v", err)
			continue
		}
		entries = append(entries, &entry)
	}

	if len(entries) == 0 {
		return 0, nil
	}

	if err := b.flushFunc(ctx, entries); err != nil {
		log.Printf("[RedisScanLogBuffer] Flush error, requeueing %d entries: %v", len(raw), err)
		// LPush reverses, so walk the batch backwards to restore FIFO order.
		for i := len(raw) - 1; i >= 0; i-- {
			if pushErr := b.client.LPush(ctx, b.queueKey(), raw[i]).Err(); pushErr != nil {
				log.Printf("[RedisScanLogBuffer] Requeue failed, entry lost: %v", pushErr)
			}
		}
		return 0, err
	}

	return len(entries), nil
}

// Flush drains the queue completely.
func (b *RedisScanLogBuffer) Flush(ctx context.Context) error {
	for {
		flushed, err := b.FlushBatch(ctx)
		if err != nil {
			return err
		}
		if flushed == 0 {
			return nil
		}
	}
}

func (b *RedisScanLogBuffer) backgroundFlush() {
	for {
		select {
		case <-b.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
			if _, err := b.FlushBatch(ctx); err != nil {
				log.Printf("[RedisScanLogBuffer] Background flush error: %v", err)
			}
			cancel()
		case <-b.stopFlush:
			log.Printf("[RedisScanLogBuffer] Shutdown: flushing remaining entries...")
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			if err := b.Flush(ctx); err != nil {
				log.Printf("[RedisScanLogBuffer] Shutdown flush error: %v", err)
			}
			cancel()
			log.Printf("[RedisScanLogBuffer] Shutdown flush complete")
			return
		}
	}
}

func (b *RedisScanLogBuffer) backgroundMonitor() {
	for {
		select {
		case <-b.monitor.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			depth, err := b.Count(ctx)
			cancel()
			if err == nil && depth > BacklogWarnDepth {
				log.Printf("[RedisScanLogBuffer] Backlog depth %d exceeds %d, database may be falling behind", depth, BacklogWarnDepth)
			}
		case <-b.stopFlush:
			return
		}
	}
}

// Close stops the buffer and performs a final flush.
func (b *RedisScanLogBuffer) Close() error {
	b.stopOnce.Do(func() {
		b.flushTicker.Stop()
		b.monitor.Stop()
		close(b.stopFlush)
	})
	return b.client.Close()
}
