package summarize

import (
	"errors"
	"fmt"
)

// InvalidInputError reports a request that cannot produce a useful summary.
// Its message is shown to the analyst as-is.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

// Invalid inputs detected before any provider call.
var (
	ErrNoSummaryType = &InvalidInputError{Message: "No summary type selected"}
	ErrNoRemarks     = &InvalidInputError{Message: "No remarks to consider!"}
)

// InterruptedError reports a request the provider rejected as malformed.
type InterruptedError struct {
	Type string
	Code string
	Err  error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Code)
}

func (e *InterruptedError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err should be shown to the analyst in place
// of a summary rather than treated as an operational failure.
func IsRecoverable(err error) bool {
	var invalid *InvalidInputError
	var interrupted *InterruptedError
	return errors.As(err, &invalid) || errors.As(err, &interrupted)
}
