package logger

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Publisher ships aggregated log batches somewhere (a Kafka topic in production).
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	Service        string
	TimeInterval   time.Duration // flush period, default 30s
	CountThreshold int           // unique entries that force an early flush, default 100
	MinLevel       zerolog.Level // WarnLevel or ErrorLevel; anything else means error
	Topic          string
	Publisher      Publisher
	Now            func() time.Time
}

// AggregatedLogEntry is one distinct (level, message, fields, caller) tuple
// and how often it occurred during the window.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogBatch is the payload handed to the Publisher on every flush.
type LogBatch struct {
	Service   string               `json:"service"`
	Host      string               `json:"host"`
	FlushedAt time.Time            `json:"flushed_at"`
	Entries   []AggregatedLogEntry `json:"entries"`
}

// LogCollector deduplicates repeated entries and flushes them in batches.
type LogCollector struct {
	config  CollectionConfig
	host    string
	mutex   sync.Mutex
	pending map[uint64]*AggregatedLogEntry
	order   []uint64
	failed  atomic.Int64

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if cfg.MinLevel != zerolog.WarnLevel {
		cfg.MinLevel = zerolog.ErrorLevel
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	host, _ := os.Hostname()
	ctx, cancel := context.WithCancel(context.Background())

	c := &LogCollector{
		config:  cfg,
		host:    host,
		pending: make(map[uint64]*AggregatedLogEntry),
		cancel:  cancel,
	}
	c.wg.Add(1)
	go c.periodicFlush(ctx)
	return c
}

// Accepts reports whether entries at level are collected.
func (c *LogCollector) Accepts(level zerolog.Level) bool {
	return level >= c.config.MinLevel
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := c.config.Now()
	key := entryKey(level, message, fields, caller)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.pending[key]; ok {
		entry.Count++
		entry.LastSeen = now
		return
	}
	c.pending[key] = &AggregatedLogEntry{
		Level:     level,
		Message:   message,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	c.order = append(c.order, key)
	if len(c.pending) >= c.config.CountThreshold {
		c.flushLocked()
	}
}

// Pending returns the number of unique entries waiting to be flushed.
func (c *LogCollector) Pending() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.pending)
}

// Failed returns how many batches the publisher rejected.
func (c *LogCollector) Failed() int64 {
	return c.failed.Load()
}

// entryKey hashes the tuple with field keys in sorted order.
func entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s", level, caller, message)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "\x00%s=%v", k, fields[k])
	}
	return h.Sum64()
}

func (c *LogCollector) periodicFlush(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			c.mutex.Lock()
			c.flushLocked()
			c.mutex.Unlock()
			return
		}
		c.mutex.Lock()
		c.flushLocked()
		c.mutex.Unlock()
	}
}

// flushLocked must be called with c.mutex held. Entries keep first-seen order.
func (c *LogCollector) flushLocked() {
	if len(c.pending) == 0 || c.config.Publisher == nil {
		return
	}
	batch := LogBatch{
		Service:   c.config.Service,
		Host:      c.host,
		FlushedAt: c.config.Now(),
		Entries:   make([]AggregatedLogEntry, 0, len(c.pending)),
	}
	for _, key := range c.order {
		batch.Entries = append(batch.Entries, *c.pending[key])
	}
	c.pending = make(map[uint64]*AggregatedLogEntry)
	c.order = c.order[:0]

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
			c.failed.Add(1)
			fmt.Fprintf(os.Stderr, "failed to send aggregated logs: %v\n", err)
		}
	}()
}

// Close flushes what is pending and waits for in-flight publishes.
func (c *LogCollector) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
	})
}
