package errors

import (
	"errors"
	"fmt"
)

// AppError is a structured application error with a stable code.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, preserving the code of a
// wrapped AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	var appErr *AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// CodeOf returns the error code of an AppError anywhere in the chain,
// or "UNKNOWN" otherwise.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}

// Condition codes of the hypothesis-testing pipeline.
const (
	CodeFeatureNotFound      = "FEATURE_NOT_FOUND"
	CodeEmptySegment         = "EMPTY_SEGMENT"
	CodeInsufficientSample   = "INSUFFICIENT_SAMPLE"
	CodeImbalancedCovariates = "IMBALANCED_COVARIATES"
	CodeUnsupportedTest      = "UNSUPPORTED_TEST"
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeDataFormat           = "DATA_FORMAT"
	CodeDatabaseError        = "DATABASE_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// FeatureNotFound signals a segmentation or covariate column absent from
// the record set. Fatal to the single spec, never to the run.
func FeatureNotFound(feature string) *AppError {
	return New(CodeFeatureNotFound, fmt.Sprintf("feature %q not found in dataset", feature))
}

// EmptySegment signals that a requested group value matched zero rows.
func EmptySegment(feature, value string) *AppError {
	return New(CodeEmptySegment, fmt.Sprintf("segment %s=%q matched no rows", feature, value))
}

// InsufficientSample signals a group below the statistical minimum size.
func InsufficientSample(group string, n, minimum int) *AppError {
	return New(CodeInsufficientSample, fmt.Sprintf("group %s has %d rows, minimum is %d", group, n, minimum))
}

// ImbalancedCovariates signals a failed comparability check between groups.
func ImbalancedCovariates(covariates []string) *AppError {
	return New(CodeImbalancedCovariates, fmt.Sprintf("covariates not balanced between groups: %v", covariates))
}

// UnsupportedTest signals an invalid KPI/test-kind pairing. This is a
// configuration bug, not a data problem, and is surfaced loudly.
func UnsupportedTest(kpi, test string) *AppError {
	return New(CodeUnsupportedTest, fmt.Sprintf("test %q is not valid for kpi %q", test, kpi))
}

// ConfigInvalid signals a malformed or incomplete run configuration.
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// DataFormat signals unreadable or malformed input data.
func DataFormat(message string) *AppError {
	return New(CodeDataFormat, message)
}

// DatabaseError signals a persistence failure.
func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}
