package tools

import "fmt"

// ErrorCode classifies tool failures for callers that branch on them.
type ErrorCode string

const (
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeTimezoneRequired ErrorCode = "TIMEZONE_REQUIRED"
	CodeInvalidTimezone  ErrorCode = "INVALID_TIMEZONE"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAmbiguousEvent   ErrorCode = "AMBIGUOUS_EVENT"
	CodeRetryExhausted   ErrorCode = "RETRY_EXHAUSTED"
	CodeUnknownTool      ErrorCode = "UNKNOWN_TOOL"
)

// ToolError is the structured error surface of the executor.
type ToolError struct {
	Code    ErrorCode
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// validationErr builds a non-retryable error. Validation failures are
// returned immediately without consuming a retry attempt.
func validationErr(code ErrorCode, format string, args ...any) *ToolError {
	return &ToolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// isValidation reports whether the error must bypass the retry loop.
func isValidation(err error) (*ToolError, bool) {
	te, ok := err.(*ToolError)
	if !ok {
		return nil, false
	}
	switch te.Code {
	case CodeValidation, CodeTimezoneRequired, CodeInvalidTimezone, CodeNotFound, CodeAmbiguousEvent, CodeUnknownTool:
		return te, true
	}
	return te, false
}
