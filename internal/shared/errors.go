package shared

import "fmt"

// ErrorCode is a stable machine-readable identifier carried across the API
// boundary so callers can render precise messages without parsing text.
type ErrorCode string

// Error is the domain error type used by the allocation engine. Two Errors
// compare equal under errors.Is when their codes match, which lets packages
// export sentinel instances while individual failures still carry a details
// payload with the offending quantities.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// NewError constructs an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches by code so errors.Is(err, SentinelErr) works for wrapped copies.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e != nil && other != nil && e.Code == other.Code
}

// WithDetails returns a copy of the error carrying diagnostic values.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Details = details
	return &clone
}
