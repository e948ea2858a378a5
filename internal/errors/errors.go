// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// ErrorType classifies a verification error
type ErrorType string

const (
	// UserError covers malformed input, unreadable files and a missing
	// entry function. Reported to stderr, exit code 1.
	UserError ErrorType = "UserError"
	// UnsupportedError marks an IR construct the translator does not
	// model. The verdict for the affected function becomes Unknown.
	UnsupportedError ErrorType = "UnsupportedError"
	// InternalError marks a broken invariant inside the core. Never
	// silently recovered.
	InternalError ErrorType = "InternalError"
	// BackendError covers oracle failures and timeouts.
	BackendError ErrorType = "BackendError"
	// TraceError marks a counter-example reconstruction failure; the
	// Fail verdict is kept but the trace is unavailable.
	TraceError ErrorType = "TraceError"
)

// VerificationError is an error with its taxonomy class and, when known,
// the offending IR text.
type VerificationError struct {
	Type    ErrorType
	Message string
	IRLine  string // the instruction or value that triggered the error
}

// Error implements the error interface
func (e *VerificationError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Type))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.IRLine != "" {
		sb.WriteString("\n  at: ")
		sb.WriteString(e.IRLine)
	}
	return sb.String()
}

// Is reports whether target is a VerificationError of the same type,
// so callers can match on the class with errors.Is.
func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	return ok && t.Type == e.Type
}

// Userf builds a UserError.
func Userf(format string, args ...interface{}) *VerificationError {
	return &VerificationError{Type: UserError, Message: fmt.Sprintf(format, args...)}
}

// Unsupportedf builds an UnsupportedError. inst may be nil; otherwise its
// textual form is attached for the diagnostic.
func Unsupportedf(inst interface{}, format string, args ...interface{}) *VerificationError {
	e := &VerificationError{Type: UnsupportedError, Message: fmt.Sprintf(format, args...)}
	switch v := inst.(type) {
	case nil:
	case fmt.Stringer:
		e.IRLine = strings.TrimSpace(v.String())
	default:
		e.IRLine = strings.TrimSpace(fmt.Sprintf("%v", inst))
	}
	return e
}

// Internalf builds an InternalError.
func Internalf(format string, args ...interface{}) *VerificationError {
	return &VerificationError{Type: InternalError, Message: fmt.Sprintf(format, args...)}
}

// Backendf builds a BackendError.
func Backendf(format string, args ...interface{}) *VerificationError {
	return &VerificationError{Type: BackendError, Message: fmt.Sprintf(format, args...)}
}

// Tracef builds a TraceError.
func Tracef(format string, args ...interface{}) *VerificationError {
	return &VerificationError{Type: TraceError, Message: fmt.Sprintf(format, args...)}
}

// IsUnsupported reports whether err is (or wraps) an UnsupportedError.
func IsUnsupported(err error) bool {
	return hasType(err, UnsupportedError)
}

// IsUser reports whether err is (or wraps) a UserError.
func IsUser(err error) bool {
	return hasType(err, UserError)
}

func hasType(err error, t ErrorType) bool {
	for err != nil {
		if ve, ok := err.(*VerificationError); ok {
			return ve.Type == t
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
