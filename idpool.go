package apmtrace

import (
	"crypto/rand"
	"encoding/hex"
	"runtime"
	"sync"
	"time"
)

// IDPool manages a pool of pre-generated IDs to amortize crypto/rand overhead.
type IDPool struct {
	factory func() string
	ids     chan string
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

// NewIDPool creates a new ID pool with the specified capacity.
func NewIDPool(capacity int, factory func() string) *IDPool {
	pool := &IDPool{
		ids:     make(chan string, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	// Start background refill goroutine.
	go pool.refill()
	return pool
}

// Get retrieves an ID from the pool or generates one if pool is empty.
func (p *IDPool) Get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		// Pool empty, generate directly (fallback for burst load).
		return p.factory()
	}
}

// refill maintains the pool by generating IDs in background.
func (p *IDPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
			// Only generate if pool has capacity.
			select {
			case p.ids <- p.factory():
				// Successfully added ID to pool.
			case <-p.stopCh:
				return
			}
		}
	}
}

// Close shuts down the ID pool gracefully.
func (p *IDPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}

// Sessions are created per unit of work and are short-lived, so the id
// pools live at package scope instead of spawning a refill goroutine per
// session. Transaction ids are 16 random bytes because they double as the
// trace id when no distributed trace id is supplied; span ids are 8.
var (
	idPoolOnce sync.Once
	txIDPool   *IDPool
	spanIDPool *IDPool
)

func ensureIDPools() {
	idPoolOnce.Do(func() {
		// Pool size based on number of CPUs for optimal contention balance.
		poolSize := runtime.NumCPU() * 100

		txIDPool = NewIDPool(poolSize, func() string {
			return hexID(16, time.RFC3339Nano)
		})
		spanIDPool = NewIDPool(poolSize, func() string {
			return hexID(8, "15:04:05.000000")
		})
	})
}

func hexID(size int, fallbackLayout string) string {
	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to time-based ID if crypto/rand fails.
		return hex.EncodeToString([]byte(time.Now().Format(fallbackLayout)))
	}
	return hex.EncodeToString(bytes)
}

// newTransactionID returns a fresh 32-hex-char transaction identifier.
func newTransactionID() string {
	ensureIDPools()
	return txIDPool.Get()
}

// newSpanID returns a fresh 16-hex-char span identifier.
func newSpanID() string {
	ensureIDPools()
	return spanIDPool.Get()
}
