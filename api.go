// Package apmtrace provides a minimal, transport-free APM session tracker.
//
// apmtrace tracks one transaction per logical unit of work (typically one
// inbound request) together with a stack of nested spans, and hands every
// completed record to an injected Sink. It deliberately stops there: wire
// serialization, network transport, sampling, and cross-process aggregation
// all belong to the Sink implementation, not to this package.
//
// Core Components:.
//   - Session: Owns one transaction and the open-span stack.
//   - Transaction: The top-level unit of work being traced.
//   - Span: A nested, named sub-operation within a transaction.
//   - ErrorRecord: A fault captured while a transaction is open.
//   - Collector: A buffering Sink implementation for batch export.
//
// Basic Usage:.
//
//	cfg, _ := apmtrace.ConfigFromEnv()
//	collector := apmtrace.NewCollector("requests", 1024)
//	defer collector.Close()
//
//	session := apmtrace.NewSession(cfg, collector)
//	tx, _ := session.StartTransaction("GET /checkout", "request")
//
//	span, _ := session.StartSpan("SELECT FROM orders", "db.query")
//	// ... do the work ...
//	session.StopSpan(span)
//
//	ok := session.StopTransaction()
//
// Span Stack Discipline:.
//
// Spans must be closed in strict LIFO order: StopSpan only accepts the span
// currently on top of the stack and fails with ErrInvalidState otherwise.
// StopTransaction closes any still-open spans itself, most recent first, so
// no span is ever emitted after its transaction.
//
// Thread Safety:.
//
// A Session corresponds to exactly one logical unit of work and is NOT safe
// for concurrent use - give each goroutine its own Session. Collectors are
// safe for concurrent registration from multiple sessions.
package apmtrace

// Sink receives completed transactions, spans, and error records from a
// Session and is responsible for delivering them to a monitoring backend.
//
// Register must not block indefinitely and must accept any well-formed
// record without failing. Flush attempts delivery of everything registered
// so far and reports whether it succeeded; a failed flush must not corrupt
// already-registered state. A Sink only needs to tolerate sequential use by
// one session at a time.
type Sink interface {
	Register(rec Record)
	Flush() bool
}
