package apmtrace

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ExportFunc delivers a flushed batch of records to its destination. A nil
// return marks the batch delivered; on error the batch stays buffered so a
// failed flush never loses registered records.
type ExportFunc func(batch []Record) error

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// CollectorWithLogger attaches a logger for dropped records and flush
// failures. Without it the collector stays silent.
func CollectorWithLogger(logger *zap.Logger) CollectorOption {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CollectorWithExport sets the export handler invoked by Flush.
func CollectorWithExport(export ExportFunc) CollectorOption {
	return func(c *Collector) {
		c.export = export
	}
}

// Collector is a buffering Sink: records are queued through a channel with
// backpressure protection and batched until flushed or exported.
// Safe for concurrent registration by multiple sessions.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	records      []Record
	recordsCh    chan Record
	stopCh       chan struct{}
	done         chan struct{}
	export       ExportFunc
	logger       *zap.Logger
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	closed       atomic.Bool
	syncMode     bool // Bypass channel for synchronous collection.
}

// NewCollector creates a collector with the specified name and channel
// buffer size and starts its ingest goroutine.
func NewCollector(name string, bufferSize int, opts ...CollectorOption) *Collector {
	c := &Collector{
		name:      name,
		records:   make([]Record, 0, 8), // Start with small capacity.
		recordsCh: make(chan Record, bufferSize),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.start()
	return c
}

// start runs the collector's main loop, receiving records from the channel.
func (c *Collector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining records before shutdown.
			for {
				select {
				case rec := <-c.recordsCh:
					c.buffer(rec)
				default:
					return // Clean shutdown.
				}
			}
		case rec := <-c.recordsCh:
			c.buffer(rec)
		}
	}
}

// Register implements Sink. It queues a record with backpressure
// protection: if the channel is full the record is dropped and counted
// rather than blocking the session. In sync mode records are buffered
// directly for deterministic testing.
func (c *Collector) Register(rec Record) {
	// Nil check to prevent panic in the session's goroutine.
	if rec == nil {
		c.droppedCount.Add(1)
		return
	}

	if c.syncMode {
		if c.closed.Load() {
			c.droppedCount.Add(1)
			return
		}
		c.buffer(rec)
		return
	}

	select {
	case c.recordsCh <- rec:
		// Successfully queued.
	default:
		// Channel full - drop record to prevent blocking.
		c.droppedCount.Add(1)
		c.logger.Warn("record dropped, collector buffer full",
			zap.String("collector", c.name),
			zap.String("kind", string(rec.Kind())))
	}
}

// Flush implements Sink. It drains the ingest channel into the buffer,
// then hands the buffered batch to the export handler. With no handler
// configured the batch is retained for Export and the flush trivially
// succeeds. On handler failure the batch is kept for the next flush.
func (c *Collector) Flush() bool {
	c.drain()

	c.mu.Lock()
	if c.export == nil || len(c.records) == 0 {
		c.mu.Unlock()
		return true
	}

	batch := make([]Record, len(c.records))
	copy(batch, c.records)
	c.mu.Unlock()

	if err := c.export(batch); err != nil {
		c.logger.Error("flush failed, batch retained",
			zap.String("collector", c.name),
			zap.Int("records", len(batch)),
			zap.Error(err))
		return false
	}

	c.mu.Lock()
	// Drop only what was exported; records registered mid-flush survive.
	c.records = append(c.records[:0], c.records[len(batch):]...)
	c.mu.Unlock()
	return true
}

// drain pulls records queued just before the flush out of the channel so
// they make the batch. The ingest goroutine may race for the same records;
// either reader buffers them, so none are lost.
func (c *Collector) drain() {
	for {
		select {
		case rec := <-c.recordsCh:
			c.buffer(rec)
		default:
			return
		}
	}
}

// buffer adds a record to the internal batch, growing the slice with the
// doubling-then-50% strategy to limit allocation churn under load.
func (c *Collector) buffer(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) >= cap(c.records) {
		currentCap := cap(c.records)
		var newCap int
		if currentCap < 1024 {
			newCap = currentCap * 2
		} else {
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		grown := make([]Record, len(c.records), newCap)
		copy(grown, c.records)
		c.records = grown
	}
	c.records = append(c.records, rec)
}

// Export returns the buffered records and clears the internal batch. The
// returned slice is safe to modify without affecting the collector.
func (c *Collector) Export() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) == 0 {
		return nil
	}

	result := make([]Record, len(c.records))
	copy(result, c.records)

	// Only shrink if the buffer is very oversized to avoid allocation churn.
	if cap(c.records) > 256 && len(c.records) < cap(c.records)/8 {
		newCap := cap(c.records) / 4
		if newCap < 32 {
			newCap = 32
		}
		c.records = make([]Record, 0, newCap)
	} else {
		c.records = c.records[:0] // Keep capacity, reset length.
	}

	return result
}

// Count returns the current number of buffered records.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// DroppedCount returns the total number of records dropped due to
// backpressure.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode enables synchronous collection for testing. When enabled,
// records are buffered directly without going through the channel, which
// makes tests deterministic by eliminating async behavior.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode = sync
}

// Reset clears all buffered records and resets the drop counter.
// Does not affect the ingest goroutine - use Close for that.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = c.records[:0]
	c.droppedCount.Store(0)
}

// Close shuts down the ingest goroutine gracefully, draining anything
// still queued. Safe to call once.
func (c *Collector) Close() {
	c.closed.Store(true)
	close(c.stopCh)
	select {
	case <-c.done:
		// Clean shutdown completed.
	case <-time.After(100 * time.Millisecond):
		c.logger.Warn("collector shutdown timed out",
			zap.String("collector", c.name))
	}
}
