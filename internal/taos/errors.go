package taos

import (
	"errors"
	"fmt"
)

// SecurityRestrictionMessage is the fixed, user-facing message attached to
// every statement the guard rejects. It mirrors what agents already key on,
// so the wording must not change.
const SecurityRestrictionMessage = "Security restrictions: Only read-only statements such as queries are allowed to be executed. All other operations are prohibited."

// ErrStatementDenied is returned by the statement guard when a statement
// starts with a denied write verb.
var ErrStatementDenied = errors.New(SecurityRestrictionMessage)

// ErrMissingTarget is returned when an operation needs a table or stable name
// and received neither.
var ErrMissingTarget = errors.New("either stable_name or table_name must be specified")

// InvalidParameterError reports a parameter value outside its declared set.
type InvalidParameterError struct {
	Name  string
	Value string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s", e.Value, e.Name)
}

// ExecutionError wraps a driver-level failure for an otherwise permitted
// statement. It carries the original statement so callers can log it.
type ExecutionError struct {
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute statement %q: %v", e.Statement, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
