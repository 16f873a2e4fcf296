package errs

import (
	"errors"
	"fmt"
	"testing"
)

// TestErrorFormatting checks the technical string with and without cause.
func TestErrorFormatting(t *testing.T) {
	plain := New(CodeInvalidFormat, "not an MP3 file: notes.txt")
	if got := plain.Error(); got != "invalid_format: not an MP3 file: notes.txt" {
		t.Fatalf("Error() = %q", got)
	}

	wrapped := Wrap(CodeConversionFailed, "ffmpeg exited with code 1", errors.New("exit status 1"))
	if got := wrapped.Error(); got != "conversion_failed: ffmpeg exited with code 1: exit status 1" {
		t.Fatalf("Error() = %q", got)
	}
}

// TestUnwrapExposesCause checks errors.Is sees through the coded wrapper.
func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk gone")
	wrapped := Wrap(CodeUnexpected, "stat failed", cause)

	if !errors.Is(wrapped, cause) {
		t.Fatal("errors.Is should reach the cause")
	}

	deeper := fmt.Errorf("outer: %w", wrapped)
	var coded *Error
	if !errors.As(deeper, &coded) {
		t.Fatal("errors.As should find the coded error")
	}
	if coded.Code != CodeUnexpected {
		t.Fatalf("code = %s, want %s", coded.Code, CodeUnexpected)
	}
}

// TestDescribeCodedError checks the user-facing lookup carries message,
// action, and technical detail.
func TestDescribeCodedError(t *testing.T) {
	info := Describe(New(CodeFileNotFound, "file not found: /in/a.mp3"))
	if info.Code != CodeFileNotFound {
		t.Fatalf("code = %s", info.Code)
	}
	if info.Message != "File not found" {
		t.Fatalf("message = %q", info.Message)
	}
	if info.Action == "" {
		t.Fatal("expected a suggested action")
	}
	if info.Technical != "file_not_found: file not found: /in/a.mp3" {
		t.Fatalf("technical = %q", info.Technical)
	}
}

// TestDescribeUncodedError checks plain errors fall back to unexpected.
func TestDescribeUncodedError(t *testing.T) {
	info := Describe(errors.New("something odd"))
	if info.Code != CodeUnexpected {
		t.Fatalf("code = %s, want %s", info.Code, CodeUnexpected)
	}
	if info.Technical != "something odd" {
		t.Fatalf("technical = %q", info.Technical)
	}
}

// TestDescribeNilError checks nil maps to the zero Info.
func TestDescribeNilError(t *testing.T) {
	if info := Describe(nil); info != (Info{}) {
		t.Fatalf("info = %+v, want zero value", info)
	}
}

// TestDescribeUnknownCode checks codes without a table entry fall back to
// the unexpected message while keeping the original code.
func TestDescribeUnknownCode(t *testing.T) {
	info := Describe(New(Code("mystery"), "detail"))
	if info.Code != Code("mystery") {
		t.Fatalf("code = %s", info.Code)
	}
	if info.Message != Describe(New(CodeUnexpected, "")).Message {
		t.Fatalf("message = %q, want unexpected fallback", info.Message)
	}
}

// TestUserMessagePerCode checks every code resolves to a non-empty
// summary.
func TestUserMessagePerCode(t *testing.T) {
	codes := []Code{
		CodeFileNotFound,
		CodeInvalidFormat,
		CodeEmptyOrCorrupt,
		CodeTooLarge,
		CodePermissionDenied,
		CodeServiceUnavailable,
		CodeConversionFailed,
		CodeCancelled,
		CodeUnexpected,
	}
	for _, code := range codes {
		if msg := UserMessage(New(code, "detail")); msg == "" {
			t.Fatalf("code %s has no user message", code)
		}
	}
}
