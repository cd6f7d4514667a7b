package apmtrace

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/zoobzio/clockz"
)

// ErrInvalidState reports an operation attempted in a session state that
// forbids it: starting a transaction while one is open, starting a span
// with no open transaction, or stopping a span that is not on top of the
// stack. These are caller bugs and are surfaced synchronously instead of
// silently corrupting the span stack.
var ErrInvalidState = errors.New("invalid session state")

type sessionState int

const (
	stateIdle sessionState = iota
	stateTransactionOpen
	stateClosed
)

// Session tracks one transaction and its open-span stack for a single
// logical unit of work. Completed records are handed to the injected Sink:
// spans and error records as they finish, the transaction on stop.
//
// A Session is single-use: once StopTransaction closes it, a new Session
// must be created for the next transaction.
//
// Sessions are NOT safe for concurrent use - one session per goroutine.
type Session struct {
	sink        Sink
	clock       clockz.Clock
	cfg         Config
	tx          *Transaction
	spans       []*Span // open-span stack, top of stack last
	pendingTxID string
	state       sessionState
}

// Option configures a Session.
type Option func(*Session)

// WithClock injects a clock for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// NewSession creates a session that reports completed records to sink.
// Uses the real clock unless WithClock overrides it.
func NewSession(cfg Config, sink Sink, opts ...Option) *Session {
	s := &Session{
		cfg:   cfg,
		sink:  sink,
		clock: clockz.RealClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransactionOption configures a transaction at start time.
type TransactionOption func(*Transaction)

// WithDistributedTraceID assigns an upstream-supplied trace id so this
// transaction joins an existing distributed trace. An empty id is ignored
// and the transaction's own id serves as the trace id.
func WithDistributedTraceID(traceID string) TransactionOption {
	return func(tx *Transaction) {
		if traceID != "" {
			tx.TraceID = traceID
		}
	}
}

// StartTransaction opens the session's transaction and makes it current.
// Fails with ErrInvalidState if a transaction is already open or the
// session is closed - a second transaction never silently replaces the
// first. An id registered earlier via SetTransactionID overrides the
// generated one.
func (s *Session) StartTransaction(name, typ string, opts ...TransactionOption) (*Transaction, error) {
	switch s.state {
	case stateTransactionOpen:
		return nil, fmt.Errorf("start transaction %q: transaction %q already open: %w", name, s.tx.ID, ErrInvalidState)
	case stateClosed:
		return nil, fmt.Errorf("start transaction %q: session already closed: %w", name, ErrInvalidState)
	}

	tx := &Transaction{
		ID:        newTransactionID(),
		Name:      name,
		Type:      typ,
		StartTime: s.clock.Now(),
	}
	if s.pendingTxID != "" {
		tx.ID = s.pendingTxID
		s.pendingTxID = ""
	}
	// The transaction's own id doubles as the trace id unless a
	// distributed trace id option overrides it.
	tx.TraceID = tx.ID
	for _, opt := range opts {
		opt(tx)
	}

	s.tx = tx
	s.state = stateTransactionOpen
	return tx, nil
}

// SetTransactionID assigns a caller-chosen transaction identifier. If a
// transaction is open it applies immediately; otherwise the id is buffered
// and consumed by the next StartTransaction. This lets callers fix the
// identifier before tracing actually begins.
func (s *Session) SetTransactionID(id string) {
	if s.state == stateTransactionOpen {
		s.tx.ID = id
		return
	}
	s.pendingTxID = id
}

// TransactionID returns the open transaction's identifier, else any
// buffered pending id, else the empty string. Never fails.
func (s *Session) TransactionID() string {
	if s.state == stateTransactionOpen {
		return s.tx.ID
	}
	return s.pendingTxID
}

// StartSpan opens a span and pushes it onto the span stack. Its parent is
// the span currently on top of the stack, or the transaction for top-level
// spans. The current call stack is captured on the span, bounded by the
// configured stack trace limit.
func (s *Session) StartSpan(name, typ string) (*Span, error) {
	if s.state != stateTransactionOpen {
		return nil, fmt.Errorf("start span %q: no open transaction: %w", name, ErrInvalidState)
	}

	parentID := s.tx.ID
	if n := len(s.spans); n > 0 {
		parentID = s.spans[n-1].ID
	}

	span := &Span{
		ID:         newSpanID(),
		TraceID:    s.tx.TraceID,
		ParentID:   parentID,
		Name:       name,
		Type:       typ,
		StartTime:  s.clock.Now(),
		Stacktrace: captureStack(1, s.cfg.stackTraceLimit()),
	}
	s.spans = append(s.spans, span)
	return span, nil
}

// StopSpan closes the span on top of the stack. Passing any other span
// fails with ErrInvalidState and leaves the stack untouched - spans must
// close in strict LIFO order.
func (s *Session) StopSpan(span *Span) error {
	if s.state != stateTransactionOpen {
		return fmt.Errorf("stop span: no open transaction: %w", ErrInvalidState)
	}
	if span == nil {
		return fmt.Errorf("stop span: nil span: %w", ErrInvalidState)
	}
	n := len(s.spans)
	if n == 0 {
		return fmt.Errorf("stop span %q: span stack is empty: %w", span.Name, ErrInvalidState)
	}
	if s.spans[n-1] != span {
		return fmt.Errorf("stop span %q: span is not on top of the stack: %w", span.Name, ErrInvalidState)
	}

	s.spans = s.spans[:n-1]
	s.finishSpan(span)
	return nil
}

// RecordError captures err as an error record parented to the current
// transaction and registers it with the sink immediately.
func (s *Session) RecordError(err error) (*ErrorRecord, error) {
	if s.state != stateTransactionOpen {
		return nil, fmt.Errorf("record error: no open transaction: %w", ErrInvalidState)
	}
	if err == nil {
		return nil, errors.New("record error: nil error")
	}

	rec := &ErrorRecord{
		ID:            xid.New().String(),
		TraceID:       s.tx.TraceID,
		ParentID:      s.tx.ID,
		TransactionID: s.tx.ID,
		ExceptionType: fmt.Sprintf("%T", err),
		Message:       err.Error(),
		Timestamp:     s.clock.Now(),
		Stacktrace:    captureStack(1, s.cfg.stackTraceLimit()),
	}
	s.sink.Register(rec)
	return rec, nil
}

// StopTransaction closes the transaction and the session. Any still-open
// spans are closed first, most recently opened first, so no span is
// emitted after its transaction. The sink is flushed once and its outcome
// returned; the session transitions to Closed regardless of the flush
// result. Without an open transaction this is a no-op reporting success.
func (s *Session) StopTransaction() bool {
	if s.state != stateTransactionOpen {
		return true
	}

	// Close abandoned spans in strict LIFO order.
	for i := len(s.spans) - 1; i >= 0; i-- {
		s.finishSpan(s.spans[i])
	}
	s.spans = nil

	s.tx.EndTime = s.clock.Now()
	s.tx.Duration = s.tx.EndTime.Sub(s.tx.StartTime)
	s.sink.Register(s.tx)

	s.state = stateClosed
	return s.sink.Flush()
}

// Spans returns a snapshot of the open-span stack, top of stack last.
// Intended for diagnostics and tests.
func (s *Session) Spans() []*Span {
	snapshot := make([]*Span, len(s.spans))
	copy(snapshot, s.spans)
	return snapshot
}

// CurrentTransaction returns the open transaction, or nil when the session
// is idle or closed.
func (s *Session) CurrentTransaction() *Transaction {
	if s.state != stateTransactionOpen {
		return nil
	}
	return s.tx
}

func (s *Session) finishSpan(span *Span) {
	span.EndTime = s.clock.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	s.sink.Register(span)
}
