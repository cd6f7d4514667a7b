package apmtrace

import "time"

// RecordType discriminates the kinds of completed records a Sink accepts.
type RecordType string

const (
	RecordTransaction RecordType = "transaction"
	RecordSpan        RecordType = "span"
	RecordError       RecordType = "error"
)

// Record is a completed unit of tracing data handed to a Sink.
type Record interface {
	// Kind reports which concrete record type this is.
	Kind() RecordType
}

// StackFrame is one captured call-stack entry.
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Transaction is the top-level unit of work being traced, with a start/stop
// boundary. At most one transaction is open per session at a time.
//
// Transactions are NOT thread-safe - do not modify from multiple goroutines.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type Transaction struct {
	Tags      map[string]string `json:"tags,omitempty"`
	Custom    map[string]any    `json:"custom,omitempty"`
	User      map[string]string `json:"user,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
	Duration  time.Duration     `json:"duration"`
	TraceID   string            `json:"trace_id"`
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
}

// Kind implements Record.
func (*Transaction) Kind() RecordType { return RecordTransaction }

// SetTag adds a key-value label to the transaction.
// No-op if the transaction is already stopped.
func (tx *Transaction) SetTag(key, value string) {
	if !tx.EndTime.IsZero() {
		return
	}
	if tx.Tags == nil {
		tx.Tags = make(map[string]string)
	}
	tx.Tags[key] = value
}

// SetCustom attaches an arbitrary context value to the transaction.
// No-op if the transaction is already stopped.
func (tx *Transaction) SetCustom(key string, value any) {
	if !tx.EndTime.IsZero() {
		return
	}
	if tx.Custom == nil {
		tx.Custom = make(map[string]any)
	}
	tx.Custom[key] = value
}

// SetUser records user context (id, email, username) on the transaction.
// No-op if the transaction is already stopped.
func (tx *Transaction) SetUser(key, value string) {
	if !tx.EndTime.IsZero() {
		return
	}
	if tx.User == nil {
		tx.User = make(map[string]string)
	}
	tx.User[key] = value
}

// Span is a nested, named sub-operation within a transaction. ParentID
// references either the enclosing span or, for top-level spans, the
// transaction itself.
//
// Spans are NOT thread-safe - do not modify from multiple goroutines.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type Span struct {
	Stacktrace []StackFrame  `json:"stacktrace,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time,omitempty"`
	Duration   time.Duration `json:"duration"`
	TraceID    string        `json:"trace_id"`
	ID         string        `json:"id"`
	ParentID   string        `json:"parent_id"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
}

// Kind implements Record.
func (*Span) Kind() RecordType { return RecordSpan }

// ErrorRecord captures a fault reported while a transaction was open. It is
// parented to that transaction and emitted eagerly, never buffered by the
// session.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type ErrorRecord struct {
	Stacktrace    []StackFrame `json:"stacktrace,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	TraceID       string       `json:"trace_id"`
	ID            string       `json:"id"`
	ParentID      string       `json:"parent_id"`
	TransactionID string       `json:"transaction_id"`
	ExceptionType string       `json:"exception_type"`
	Message       string       `json:"message"`
}

// Kind implements Record.
func (*ErrorRecord) Kind() RecordType { return RecordError }
