package errs

import (
	"errors"
	"fmt"
)

// Code classifies a failure for user-facing message lookup.
type Code string

const (
	CodeFileNotFound       Code = "file_not_found"
	CodeInvalidFormat      Code = "invalid_format"
	CodeEmptyOrCorrupt     Code = "empty_or_corrupt"
	CodeTooLarge           Code = "too_large"
	CodePermissionDenied   Code = "permission_denied"
	CodeServiceUnavailable Code = "service_unavailable"
	CodeConversionFailed   Code = "conversion_failed"
	CodeCancelled          Code = "cancelled"
	CodeUnexpected         Code = "unexpected"
)

// Error carries a taxonomy code alongside a technical detail string.
// Detail is for logs and debug display; the user-facing summary comes
// from Describe.
type Error struct {
	Code   Code
	Detail string
	Err    error
}

// Error formats the technical representation of the failure.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with a technical detail message.
func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Newf creates a coded error with a formatted detail message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, detail string, err error) *Error {
	return &Error{Code: code, Detail: detail, Err: err}
}

// Info is the user-facing view of a failure: a short summary, a suggested
// action, and the technical detail kept for logs.
type Info struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Technical string `json:"technical,omitempty"`
}

// messages maps each code to its user-visible summary and suggested action.
var messages = map[Code]struct {
	message string
	action  string
}{
	CodeFileNotFound: {
		message: "File not found",
		action:  "Check that the file still exists and try again.",
	},
	CodeInvalidFormat: {
		message: "Unsupported file format",
		action:  "Only MP3 files are supported. Check the file format.",
	},
	CodeEmptyOrCorrupt: {
		message: "File appears to be empty or corrupted",
		action:  "Try a different MP3 file or re-export the original.",
	},
	CodeTooLarge: {
		message: "File is too large",
		action:  "Use files up to 1 GB in size.",
	},
	CodePermissionDenied: {
		message: "File cannot be accessed",
		action:  "Check the file's read permissions.",
	},
	CodeServiceUnavailable: {
		message: "Conversion software is not available",
		action:  "Install FFmpeg and make sure it is on your PATH.",
	},
	CodeConversionFailed: {
		message: "Conversion failed",
		action:  "Wait a moment and try again.",
	},
	CodeCancelled: {
		message: "Operation was cancelled",
		action:  "Restart the conversion if needed.",
	},
	CodeUnexpected: {
		message: "An unexpected error occurred",
		action:  "Restart the application and try again.",
	},
}

// Describe resolves any error to its user-facing Info. Errors without a
// code are reported as unexpected with the original text preserved as
// technical detail.
func Describe(err error) Info {
	if err == nil {
		return Info{}
	}

	var coded *Error
	if errors.As(err, &coded) {
		entry := messages[coded.Code]
		if entry.message == "" {
			entry = messages[CodeUnexpected]
		}
		return Info{
			Code:      coded.Code,
			Message:   entry.message,
			Action:    entry.action,
			Technical: coded.Error(),
		}
	}

	entry := messages[CodeUnexpected]
	return Info{
		Code:      CodeUnexpected,
		Message:   entry.message,
		Action:    entry.action,
		Technical: err.Error(),
	}
}

// UserMessage is a shorthand for the summary line of Describe.
func UserMessage(err error) string {
	return Describe(err).Message
}
