package types

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Error codes reported by the storage facade.
const (
	ErrCodeValidation              = "ValidationException"
	ErrCodeBackendInteraction      = "BackendInteractionException"
	ErrCodeSchemaMismatch          = "SchemaMismatchException"
	ErrCodeConditionalCheckFailed  = "ConditionalCheckFailedException"
	ErrCodeResourceNotFound        = "ResourceNotFoundException"
	ErrCodeResourceInUse           = "ResourceInUseException"
	conditionalCheckFailedMessage  = "the conditional request failed"
	backendInteractionErrorMessage = "backend interaction failed"
)

// An Error wraps lower level errors with code, message and an original error.
// The underlying concrete error type may also satisfy other interfaces which
// can be to used to obtain more specific information about the error.
type Error interface {
	error

	Code() string
	Message() string
	OrigErr() error
}

// BatchedErrors is a batch of errors which also wraps lower level errors with
// code, message, and original errors. Calling Error() will include all errors
// that occurred in the batch.
type BatchedErrors interface {
	Error
	OrigErrs() []error
}

// NewError returns an Error object described by the code, message, and origErr.
func NewError(code, message string, origErr error) Error {
	var errs []error
	if origErr != nil {
		errs = append(errs, origErr)
	}

	return newBaseError(code, message, errs)
}

// NewBatchError returns an BatchedErrors with a collection of errors as an
// array of errors.
func NewBatchError(code, message string, errs []error) BatchedErrors {
	return newBaseError(code, message, errs)
}

// NewValidationError reports a malformed model construction.
func NewValidationError(format string, args ...interface{}) Error {
	return NewError(ErrCodeValidation, fmt.Sprintf(format, args...), nil)
}

// NewBackendInteractionError wraps a failure coming from a storage engine or
// a backup repository.
func NewBackendInteractionError(message string, origErr error) Error {
	if message == "" {
		message = backendInteractionErrorMessage
	}

	return NewError(ErrCodeBackendInteraction, message, origErr)
}

// NewSchemaMismatchError reports a declared table schema that disagrees with
// the stored one.
func NewSchemaMismatchError(tableName string) Error {
	return NewError(ErrCodeSchemaMismatch, fmt.Sprintf("table %q already exists with a different schema", tableName), nil)
}

// NewConditionalCheckFailedError reports an expected condition that did not hold.
func NewConditionalCheckFailedError() Error {
	return NewError(ErrCodeConditionalCheckFailed, conditionalCheckFailedMessage, nil)
}

// NewResourceNotFoundError reports a missing table or backup.
func NewResourceNotFoundError(format string, args ...interface{}) Error {
	return NewError(ErrCodeResourceNotFound, fmt.Sprintf(format, args...), nil)
}

// NewResourceInUseError reports a resource that already exists.
func NewResourceInUseError(format string, args ...interface{}) Error {
	return NewError(ErrCodeResourceInUse, fmt.Sprintf(format, args...), nil)
}

// HasCode reports whether any Error in err's chain carries code.
func HasCode(err error, code string) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Code() == code
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return HasCode(err, ErrCodeValidation) }

// IsBackendInteraction reports whether err is a BackendInteractionError.
func IsBackendInteraction(err error) bool { return HasCode(err, ErrCodeBackendInteraction) }

// IsSchemaMismatch reports whether err is a SchemaMismatchError.
func IsSchemaMismatch(err error) bool { return HasCode(err, ErrCodeSchemaMismatch) }

// IsConditionalCheckFailed reports whether err is a failed expected condition.
func IsConditionalCheckFailed(err error) bool { return HasCode(err, ErrCodeConditionalCheckFailed) }

// IsResourceNotFound reports whether err is a missing resource error.
func IsResourceNotFound(err error) bool { return HasCode(err, ErrCodeResourceNotFound) }

// IsResourceInUse reports whether err is a duplicated resource error.
func IsResourceInUse(err error) bool { return HasCode(err, ErrCodeResourceInUse) }

// SprintError returns a string of the formatted error code.
func SprintError(code, message, extra string, origErr error) string {
	msg := fmt.Sprintf("%s: %s", code, message)
	if extra != "" {
		msg = fmt.Sprintf("%s\n\t%s", msg, extra)
	}

	if origErr != nil {
		msg = fmt.Sprintf("%s\ncaused by: %s", msg, origErr.Error())
	}

	return msg
}

// A baseError wraps the code and message which defines an error. It also
// can be used to wrap an original error object.
type baseError struct {
	code    string
	message string
	errs    []error
}

var _ smithy.APIError = (*baseError)(nil)

func newBaseError(code, message string, origErrs []error) *baseError {
	return &baseError{
		code:    code,
		message: message,
		errs:    origErrs,
	}
}

// Error returns the string representation of the error.
func (b baseError) Error() string {
	if len(b.errs) > 0 {
		return SprintError(b.code, b.message, "", errorList(b.errs))
	}

	return SprintError(b.code, b.message, "", nil)
}

// String returns the string representation of the error.
// Alias for Error to satisfy the stringer interface.
func (b baseError) String() string {
	return b.Error()
}

// Code returns the short phrase depicting the classification of the error.
func (b baseError) Code() string {
	return b.code
}

// Message returns the error details message.
func (b baseError) Message() string {
	return b.message
}

// ErrorCode satisfies smithy.APIError.
func (b baseError) ErrorCode() string {
	return b.code
}

// ErrorMessage satisfies smithy.APIError.
func (b baseError) ErrorMessage() string {
	return b.message
}

// ErrorFault classifies backend failures as server faults and everything
// else as client faults.
func (b baseError) ErrorFault() smithy.ErrorFault {
	if b.code == ErrCodeBackendInteraction {
		return smithy.FaultServer
	}

	return smithy.FaultClient
}

// OrigErr returns the original error if one was set. Nil is returned if no
// error was set. This only returns the first element in the list. If the full
// list is needed, use BatchedErrors.
func (b baseError) OrigErr() error {
	if len(b.errs) == 0 {
		return nil
	}

	return b.errs[0]
}

// OrigErrs returns the original errors if one was set. An empty slice is
// returned if no error was set.
func (b baseError) OrigErrs() []error {
	return b.errs
}

// Unwrap exposes the wrapped errors to errors.Is and errors.As.
func (b baseError) Unwrap() []error {
	return b.errs
}

// An error list that satisfies the golang interface
type errorList []error

// Error returns the string representation of the error.
//
// Satisfies the error interface.
func (e errorList) Error() string {
	msg := ""

	for i, err := range e {
		msg += err.Error()
		if i+1 < len(e) {
			msg += "\n"
		}
	}

	return msg
}
