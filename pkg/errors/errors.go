// Package errors defines the error taxonomy for the reconciliation engine.
//
// The engine deliberately absorbs most problems into data: dropped rows,
// CHECK flags, and diagnostic entries. Errors of type EngineError exist for
// the conditions that cannot be represented that way, and only batch-fatal
// categories (configuration, lookup structure, unreadable input) abort a
// run. Every error carries a category, a stable code, optional context for
// logging, and a suggestion for the operator.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category represents different categories of engine errors
type Category string

const (
	CategoryFile          Category = "file"
	CategoryParse         Category = "parse"
	CategoryValidation    Category = "validation"
	CategoryConfiguration Category = "configuration"
	CategoryLookup        Category = "lookup"
	CategoryInternal      Category = "internal"
)

// Code represents specific error codes within categories
type Code string

const (
	// File errors
	CodeFileNotFound  Code = "file_not_found"
	CodeFileUnreadable Code = "file_unreadable"

	// Parse errors
	CodeInvalidFormat Code = "invalid_format"
	CodeMissingColumn Code = "missing_column"
	CodeEmptyExtract  Code = "empty_extract"

	// Validation errors
	CodeInvalidAmount Code = "invalid_amount"
	CodeInvalidDate   Code = "invalid_date"
	CodeMissingField  Code = "missing_field"

	// Configuration errors
	CodeInvalidConfig Code = "invalid_config"
	CodeMissingConfig Code = "missing_config"

	// Lookup errors
	CodeLookupStructure Code = "lookup_structure"

	// Internal errors
	CodeUnexpected Code = "unexpected_error"
)

// EngineError is the base error type for all engine errors
type EngineError struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// IsBatchFatal reports whether this error class aborts a whole batch.
// Configuration, lookup-structure, and file errors stop a run; parse and
// validation conditions are absorbed as flags or diagnostics before they
// ever become an EngineError.
func (e *EngineError) IsBatchFatal() bool {
	switch e.Category {
	case CategoryConfiguration, CategoryLookup, CategoryFile:
		return true
	default:
		return false
	}
}

// GetExitCode returns an appropriate exit code for the error
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration, CategoryLookup:
		return 4
	case CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EngineError
func New(category Category, code Code, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
func Wrap(err error, category Category, code Code, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code Code, path string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFileUnreadable:
		message = fmt.Sprintf("cannot read file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates an extract-parsing error
func ParseError(code Code, file string, line int, detail string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in %s at line %d: %s", file, line, detail)
		suggestion = "check the extract format and ensure it matches the expected structure"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in %s", detail, file)
		suggestion = "verify the extract has all required columns with correct headers"
	case CodeEmptyExtract:
		message = fmt.Sprintf("no data rows found in %s", file)
		suggestion = "confirm the extract was exported with at least one posted line"
	default:
		message = fmt.Sprintf("parse error in %s at line %d: %s", file, line, detail)
		suggestion = "check the file format and data integrity"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line)
}

// ValidationError creates a validation-related error
func ValidationError(code Code, field string, value interface{}, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "ensure amounts are valid decimal numbers (e.g., '12.34')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use a day-first date such as 31/01/2025"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error. These abort the batch.
func ConfigurationError(code Code, setting string, value interface{}, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error for '%s': %v", setting, value)
		suggestion = "review the batch configuration"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting)
}

// LookupError creates an error for structurally invalid lookup tables. These abort the batch.
func LookupError(table string, detail string, err error) *EngineError {
	message := fmt.Sprintf("lookup table '%s' is structurally invalid: %s", table, detail)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryLookup, CodeLookupStructure, message)
	} else {
		result = New(CategoryLookup, CodeLookupStructure, message)
	}

	return result.
		WithSuggestion("regenerate the lookup extract with two columns: key, identifier").
		WithContext("table", table)
}

// InternalError creates an internal engine error
func InternalError(message string, err error) *EngineError {
	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpected, message)
	} else {
		result = New(CategoryInternal, CodeUnexpected, message)
	}

	return result.WithSuggestion("this is unexpected; re-run with --verbose and report the log")
}

// AsEngineError extracts an EngineError from err's chain
func AsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// IsBatchFatal reports whether err is an EngineError that should abort the batch
func IsBatchFatal(err error) bool {
	if err == nil {
		return false
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.IsBatchFatal()
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal for plain errors
func GetCategory(err error) Category {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return CategoryInternal
}
