package core

import (
	"errors"

	"github.com/magnetodb/magneto/types"
)

// FailureCondition describe the failure condition to emulate
type FailureCondition string

const (
	// FailureConditionNone emulates the system is working
	FailureConditionNone FailureCondition = "none"
	// FailureConditionInternalServerError emulates the backend having internal issues
	FailureConditionInternalServerError FailureCondition = "internal_server"
	// FailureConditionThrottling emulates a backend refusing part of a batch
	FailureConditionThrottling FailureCondition = "throttling"
)

// ErrEmulatedFailure is the cause of every emulated backend failure
var ErrEmulatedFailure = errors.New("emulated error")

// EmulateFailure forces the engine to fail. With FailureConditionThrottling
// the requests of the given tables, or of every table when none is given,
// are reported as unprocessed by batch operations.
func (e *Engine) EmulateFailure(condition FailureCondition, tables ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failure = condition
	e.throttled = map[string]bool{}

	for _, name := range tables {
		e.throttled[name] = true
	}
}

func (e *Engine) checkFailure() error {
	if e.failure == FailureConditionInternalServerError {
		return types.NewBackendInteractionError("", ErrEmulatedFailure)
	}

	return nil
}

func (e *Engine) isThrottled(tableName string) bool {
	if e.failure != FailureConditionThrottling {
		return false
	}

	return len(e.throttled) == 0 || e.throttled[tableName]
}
