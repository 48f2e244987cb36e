// Package errors provides the error types returned by the QIDO-RS query engine.
//
// The package re-exports github.com/cockroachdb/errors for wrapping and
// inspection, and adds the client-input error taxonomy of the query compiler.
// Every client-input error matches ErrBadRequest:
//
//	if errors.Is(err, errors.ErrBadRequest) {
//	    // respond with 400
//	}
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New      = crdb.New
	Newf     = crdb.Newf
	Wrap     = crdb.Wrap
	Wrapf    = crdb.Wrapf
	WithHint = crdb.WithHint
)

// Error inspection
var (
	Is          = crdb.Is
	As          = crdb.As
	Unwrap      = crdb.Unwrap
	GetAllHints = crdb.GetAllHints
)

// Common errors
var (
	// ErrBadRequest is matched by every error caused by invalid client input.
	ErrBadRequest = New("dicomweb: bad request")

	// ErrNotFound indicates a record is missing from a store.
	ErrNotFound = New("dicomweb: not found")
)

// QueryErrorKind categorizes query compilation failures.
type QueryErrorKind int

const (
	// KindUnknownAttribute: the identifier does not resolve, or its VR has no parser.
	KindUnknownAttribute QueryErrorKind = iota
	// KindUnsupportedAttribute: valid identifier that is ineligible in context
	// (resource level, disabled extended tag, nested sequence).
	KindUnsupportedAttribute
	// KindDuplicateAttribute: the same tag was supplied twice.
	KindDuplicateAttribute
	// KindEmptyValue: a filter was supplied without a value.
	KindEmptyValue
	// KindMalformedValue: the value could not be parsed for the attribute's VR.
	KindMalformedValue
	// KindInvalidParameter: a control parameter (limit, offset, ...) is invalid.
	KindInvalidParameter
)

func (k QueryErrorKind) String() string {
	switch k {
	case KindUnknownAttribute:
		return "unknown-attribute"
	case KindUnsupportedAttribute:
		return "unsupported-attribute"
	case KindDuplicateAttribute:
		return "duplicate-attribute"
	case KindEmptyValue:
		return "empty-value"
	case KindMalformedValue:
		return "malformed-value"
	case KindInvalidParameter:
		return "invalid-parameter"
	default:
		return "unknown"
	}
}

// QueryParseError is returned when a query string cannot be compiled.
type QueryParseError struct {
	Kind      QueryErrorKind
	Parameter string
	Msg       string
}

func (e *QueryParseError) Error() string {
	return e.Msg
}

// Is reports whether target is ErrBadRequest.
func (e *QueryParseError) Is(target error) bool {
	return target == ErrBadRequest
}

// NewQueryParseError creates a new query parse error with a formatted message.
func NewQueryParseError(kind QueryErrorKind, parameter, format string, args ...interface{}) *QueryParseError {
	return &QueryParseError{
		Kind:      kind,
		Parameter: parameter,
		Msg:       fmt.Sprintf(format, args...),
	}
}

// InvalidIdentifierError reports a route-supplied UID that fails the DICOM UID syntax.
type InvalidIdentifierError struct {
	Name   string
	Value  string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf(MsgInvalidIdentifier, e.Name, e.Value, e.Reason)
}

// Is reports whether target is ErrBadRequest.
func (e *InvalidIdentifierError) Is(target error) bool {
	return target == ErrBadRequest
}

// NewInvalidIdentifierError creates a new invalid identifier error
func NewInvalidIdentifierError(name, value, reason string) *InvalidIdentifierError {
	return &InvalidIdentifierError{
		Name:   name,
		Value:  value,
		Reason: reason,
	}
}

// IsBadRequest checks if an error is or wraps ErrBadRequest
func IsBadRequest(err error) bool {
	return err != nil && Is(err, ErrBadRequest)
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}
