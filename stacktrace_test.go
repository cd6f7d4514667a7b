package apmtrace

import (
	"strings"
	"testing"
)

func TestCaptureStack(t *testing.T) {
	frames := captureStack(0, DefaultStackTraceLimit)

	if len(frames) == 0 {
		t.Fatal("Expected captured frames")
	}
	if len(frames) > DefaultStackTraceLimit {
		t.Errorf("Expected at most %d frames, got %d", DefaultStackTraceLimit, len(frames))
	}

	if !strings.Contains(frames[0].Function, "TestCaptureStack") {
		t.Errorf("Expected top frame in TestCaptureStack, got %s", frames[0].Function)
	}
}

func TestCaptureStackSkip(t *testing.T) {
	var viaHelper []StackFrame
	helper := func() {
		// skip=1 drops the helper frame itself.
		viaHelper = captureStack(1, DefaultStackTraceLimit)
	}
	helper()

	if len(viaHelper) == 0 {
		t.Fatal("Expected captured frames")
	}
	if strings.Contains(viaHelper[0].Function, "func1") {
		t.Errorf("Expected helper frame skipped, top frame is %s", viaHelper[0].Function)
	}
	if !strings.Contains(viaHelper[0].Function, "TestCaptureStackSkip") {
		t.Errorf("Expected top frame in TestCaptureStackSkip, got %s", viaHelper[0].Function)
	}
}

func TestCaptureStackLimit(t *testing.T) {
	frames := captureStack(0, 2)
	if len(frames) > 2 {
		t.Errorf("Expected at most 2 frames, got %d", len(frames))
	}

	// Non-positive limit falls back to the default.
	frames = captureStack(0, 0)
	if len(frames) == 0 || len(frames) > DefaultStackTraceLimit {
		t.Errorf("Expected 1..%d frames for zero limit, got %d", DefaultStackTraceLimit, len(frames))
	}
}
