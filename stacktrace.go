package apmtrace

import "runtime"

// DefaultStackTraceLimit bounds captured call-stack depth when the
// configuration leaves StackTraceLimit unset.
const DefaultStackTraceLimit = 10

// captureStack records up to limit frames of the current call stack.
// skip counts frames to drop above the caller of captureStack, so the
// tracing machinery itself never shows up in captured traces.
func captureStack(skip, limit int) []StackFrame {
	if limit <= 0 {
		limit = DefaultStackTraceLimit
	}

	pcs := make([]uintptr, limit)
	// +2 drops runtime.Callers and captureStack itself.
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	captured := make([]StackFrame, 0, n)
	for {
		frame, more := frames.Next()
		captured = append(captured, StackFrame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more {
			break
		}
	}
	return captured
}
