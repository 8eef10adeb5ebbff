package failures

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so every layer can decide how to surface it
type Kind int

const (
	Internal Kind = iota
	ClientInput
	PayloadTooLarge
	NotFound
	Unsupported
	ExternalTool
)

func (k Kind) String() string {
	switch k {
	case ClientInput:
		return "client_input"
	case PayloadTooLarge:
		return "payload_too_large"
	case NotFound:
		return "not_found"
	case Unsupported:
		return "unsupported"
	case ExternalTool:
		return "external_tool"
	default:
		return "internal"
	}
}

// Stable, machine-checkable reason strings
const (
	ReasonSizeExceeded      = "size exceeded"
	ReasonTypeNotAllowed    = "type not allowed"
	ReasonExtensionMismatch = "extension mismatch"
	ReasonInvalidJobID      = "invalid job id"
	ReasonInvalidOptions    = "invalid options"
	ReasonInvalidRequest    = "invalid request"
	ReasonNotFound          = "not found"
	ReasonUnsupported       = "unsupported conversion"
	ReasonConversionFailed  = "conversion failed"
	ReasonStorage           = "storage failure"
)

// Error is the single error type crossing package boundaries in the job pipeline
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Reason
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Detail is the message shown to clients. Causes are appended only for
// external tool failures, where the underlying message is the useful part.
func (e *Error) Detail() string {
	if e.Kind == ExternalTool {
		return e.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Reason
}

func New(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

func Newf(kind Kind, reason, format string, args ...interface{}) *Error {
	return New(kind, reason, fmt.Sprintf(format, args...))
}

func Wrap(kind Kind, reason, message string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message, Cause: cause}
}

// As returns the *Error in err's chain, if any
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf reports the Kind of err; anything unclassified is Internal
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return Internal
}

// ReasonOf reports the stable reason for err
func ReasonOf(err error) string {
	if fe, ok := As(err); ok {
		return fe.Reason
	}
	return "internal error"
}

// HTTPStatus maps an error onto the status code the transport should send
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ClientInput, Unsupported:
		return http.StatusBadRequest
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
