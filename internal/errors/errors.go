package errors

import (
	stderrors "errors"
	"fmt"
)

// Category classifies backtest errors by how the caller should react.
type Category string

const (
	// CategoryData marks missing or insufficient candle history. The failing
	// unit is skipped and excluded from aggregation; siblings continue.
	CategoryData Category = "DATA"

	// CategoryConfig marks invalid configuration (empty parameter candidate
	// lists, bad timeframe specs). Fails fast before any simulation starts.
	CategoryConfig Category = "CONFIG"

	// CategoryStrategy marks a signal-producing strategy failing mid-run.
	CategoryStrategy Category = "STRATEGY"

	// CategoryExport marks report/export failures after a run completed.
	CategoryExport Category = "EXPORT"
)

// Error is a categorized error with component context.
type Error struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewDataError creates a DATA error.
func NewDataError(component, operation, message string) *Error {
	return &Error{Category: CategoryData, Component: component, Operation: operation, Message: message}
}

// NewConfigError creates a CONFIG error.
func NewConfigError(component, operation, message string) *Error {
	return &Error{Category: CategoryConfig, Component: component, Operation: operation, Message: message}
}

// NewStrategyError creates a STRATEGY error.
func NewStrategyError(component, operation, message string) *Error {
	return &Error{Category: CategoryStrategy, Component: component, Operation: operation, Message: message}
}

// Wrap attaches category and component context to an existing error.
func Wrap(err error, category Category, component, operation string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
	}
}

// WithMessage replaces the generic message on a wrapped error.
func (e *Error) WithMessage(message string) *Error {
	e.Message = message
	return e
}

func is(err error, category Category) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category == category
	}
	return false
}

// IsData reports whether err is a DATA error.
func IsData(err error) bool { return is(err, CategoryData) }

// IsConfig reports whether err is a CONFIG error.
func IsConfig(err error) bool { return is(err, CategoryConfig) }

// IsStrategy reports whether err is a STRATEGY error.
func IsStrategy(err error) bool { return is(err, CategoryStrategy) }
