// Package errors provides the error types used across churnpulse.
//
// Construction and wrapping delegate to github.com/cockroachdb/errors so that every
// error carries a stack trace (printed with %+v) while remaining compatible with the
// standard errors.Is / errors.As protocol.
//
// Two families of errors live here:
//
//   - estimator errors (ValueError, DimensionError, NotFittedError, ValidationError,
//     ModelError) raised by the numerical packages;
//   - run errors (ConfigurationError, DataValidationError, MissingArtifactError) that
//     abort a training run or a serving request and are reported to the user.
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Typed errors below report themselves as one of these through Is.
var (
	ErrEmptyData         = errors.New("empty data")
	ErrSingularMatrix    = errors.New("singular matrix")
	ErrNotImplemented    = errors.New("not implemented")
	ErrNotFitted         = errors.New("not fitted")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrConfiguration     = errors.New("configuration error")
	ErrDataValidation    = errors.New("data validation error")
	ErrMissingArtifact   = errors.New("missing artifact")
)

const prefix = "churnpulse"

// New returns an error with a stack trace.
func New(msg string) error { return errors.New(msg) }

// Newf returns a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error { return errors.Newf(format, args...) }

// Wrap annotates err with msg. Returns nil when err is nil.
func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

// Wrapf annotates err with a formatted message. Returns nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Unwrap returns the next error in err's chain.
func Unwrap(err error) error { return errors.Unwrap(err) }

// ValueError reports an argument with an unacceptable value.
type ValueError struct {
	Op      string
	Message string
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
}

// DimensionError reports a shape mismatch along Axis (0 = rows, 1 = columns).
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

func (e *DimensionError) Error() string {
	axis := "rows"
	if e.Axis == 1 {
		axis = "columns"
	}
	return fmt.Sprintf("%s: %s: dimension mismatch on %s: expected %d, got %d",
		prefix, e.Op, axis, e.Expected, e.Got)
}

// Is makes DimensionError match ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool { return target == ErrDimensionMismatch }

// NotFittedError reports use of an estimator before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s: call Fit before %s", prefix, e.ModelName, e.Method)
}

// Is makes NotFittedError match ErrNotFitted.
func (e *NotFittedError) Is(target error) bool { return target == ErrNotFitted }

// ValidationError reports a parameter that failed validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

// NewValidationError creates a ValidationError.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s (value: %v)", prefix, e.ParamName, e.Reason, e.Value)
}

// ModelError wraps a lower level failure inside an estimator operation.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

// NewModelError creates a ModelError.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ConfigurationError reports a run that cannot start because of its inputs or
// settings, e.g. no target column can be inferred.
type ConfigurationError struct {
	Op      string
	Message string
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(op, message string) error {
	return errors.WithStack(&ConfigurationError{Op: op, Message: message})
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
}

// Is makes ConfigurationError match ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DataValidationError reports input data that violates an expectation:
// unrecognized label values, a missing required column, a malformed CSV.
// Values holds the offending values when there are any.
type DataValidationError struct {
	Op      string
	Message string
	Values  []string
}

// NewDataValidationError creates a DataValidationError.
func NewDataValidationError(op, message string, values ...string) error {
	return errors.WithStack(&DataValidationError{Op: op, Message: message, Values: values})
}

func (e *DataValidationError) Error() string {
	if len(e.Values) == 0 {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
	}
	quoted := make([]string, len(e.Values))
	for i, v := range e.Values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("%s: %s: %s: [%s]", prefix, e.Op, e.Message, strings.Join(quoted, ", "))
}

// Is makes DataValidationError match ErrDataValidation.
func (e *DataValidationError) Is(target error) bool { return target == ErrDataValidation }

// MissingArtifactError reports an input file (dataset, model) that does not exist.
type MissingArtifactError struct {
	Kind string
	Path string
	Err  error
}

// NewMissingArtifactError creates a MissingArtifactError.
func NewMissingArtifactError(kind, path string, err error) error {
	return errors.WithStack(&MissingArtifactError{Kind: kind, Path: path, Err: err})
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("%s: %s not found: %s", prefix, e.Kind, e.Path)
}

func (e *MissingArtifactError) Unwrap() error { return e.Err }

// Is makes MissingArtifactError match ErrMissingArtifact.
func (e *MissingArtifactError) Is(target error) bool { return target == ErrMissingArtifact }

// Recover converts a panic in the calling function into an error assigned to *err.
// It must be deferred directly:
//
//	func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
//		defer errors.Recover(&err, "StandardScaler.Fit")
//		...
//	}
func Recover(err *error, op string) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = errors.Wrapf(e, "%s: recovered from panic", op)
			return
		}
		*err = errors.Newf("%s: recovered from panic: %v", op, r)
	}
}
