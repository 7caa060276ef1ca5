package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDataset is returned by operations that need a loaded dataset.
var ErrNoDataset = errors.New("no dataset loaded")

// SchemaError reports an input file whose layout or funding round mix makes
// it unusable. The whole load is rejected.
type SchemaError struct {
	Source string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error in %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// RowRejection describes one row that failed validation
type RowRejection struct {
	Row    int    `json:"row"` // 1-based data row, header excluded
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// DataQualityError reports rows whose values cannot be used, such as a last
// funding date before the founding date.
type DataQualityError struct {
	Source   string
	Rejected []RowRejection
}

func (e *DataQualityError) Error() string {
	if len(e.Rejected) == 0 {
		return fmt.Sprintf("data quality error in %s", e.Source)
	}
	first := e.Rejected[0]
	msg := fmt.Sprintf("data quality error in %s: row %d: %s", e.Source, first.Row, first.Reason)
	if n := len(e.Rejected) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// ParameterError reports an invalid caller-supplied parameter
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

// IsUserError reports whether err was caused by the caller's input rather
// than by the system.
func IsUserError(err error) bool {
	var se *SchemaError
	var dq *DataQualityError
	var pe *ParameterError
	return errors.As(err, &se) || errors.As(err, &dq) || errors.As(err, &pe)
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}
