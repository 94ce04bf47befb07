// Package errors provides the structured error and warning types used across
// the training pipeline. Errors are built through constructors that attach
// stack traces via cockroachdb/errors; non-fatal conditions go through Warn,
// which reports without interrupting the pipeline.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	warnMu      sync.Mutex
	warnHandler = func(w error) {
		log.Printf("autotab warning: %v\n", w)
	}
	zerologWarnFunc func(warning error)
)

// SetWarningHandler overrides how non-fatal warnings are reported.
func SetWarningHandler(handler func(w error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	warnHandler = handler
}

// SetZerologWarnFunc routes warnings through zerolog. Set once at startup by
// the entry point (kept as a setter to avoid a circular import with pkg/log).
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn reports a non-fatal warning. The pipeline uses this for plot and
// artifact-upload failures, which must never change the process exit code.
func Warn(w error) {
	warnMu.Lock()
	defer warnMu.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warnHandler != nil {
		warnHandler(w)
	}
}

// NotFittedError is returned when Predict, Leaderboard or FeatureImportance
// is called on a predictor before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("autotab: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError is returned when input data has an unexpected shape.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("autotab: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when an input parameter fails validation,
// e.g. a train fraction outside (0,1) or a non-positive time budget.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("autotab: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is returned when an argument value is unusable for an operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("autotab: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError wraps a failure inside the training engine.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("autotab: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("autotab: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace attached.
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// PlotWarning reports a diagnostic plot that could not be produced. It is
// always delivered through Warn, never returned as a pipeline error.
type PlotWarning struct {
	Plot string
	Err  error
}

func (w *PlotWarning) Error() string {
	return fmt.Sprintf("could not create %s plot: %v", w.Plot, w.Err)
}

func (w *PlotWarning) Unwrap() error {
	return w.Err
}

// MarshalZerologObject adds structured warning information to a zerolog event.
func (w *PlotWarning) MarshalZerologObject(event *zerolog.Event) {
	event.Str("plot", w.Plot).
		AnErr("cause", w.Err).
		Str("type", "PlotWarning")
}

// UploadWarning reports an artifact upload that failed after the per-file
// fallback. Delivered through Warn.
type UploadWarning struct {
	Path string
	Err  error
}

func (w *UploadWarning) Error() string {
	return fmt.Sprintf("could not upload artifact %s: %v", w.Path, w.Err)
}

func (w *UploadWarning) Unwrap() error {
	return w.Err
}

// MarshalZerologObject adds structured warning information to a zerolog event.
func (w *UploadWarning) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", w.Path).
		AnErr("cause", w.Err).
		Str("type", "UploadWarning")
}

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// CombineErrors combines two errors, keeping both messages. Used when every
// artifact file must be attempted and all failures reported together.
func CombineErrors(err, other error) error {
	return errors.CombineErrors(err, other)
}

var (
	// ErrEmptyData is returned when an operation receives no rows.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a least-squares solve fails.
	ErrSingularMatrix = New("singular matrix")
)
