package errors

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

func NewIndexedValidationError(index int, msg string) error {
	return &ValidationError{Msg: fmt.Sprintf("Validation error at transaction %d: %s", index, msg)}
}

var (
	ErrInvalidCategory     = NewValidationError("Invalid category")
	ErrInvalidDate         = NewValidationError("Date must be in YYYY-MM-DD format")
	ErrInvalidDateRange    = NewValidationError("Start date must not be after end date")
	ErrInvalidExportFormat = NewValidationError("Format must be 'csv' or 'json'")
	ErrUnsupportedImage    = NewValidationError("Image must be JPEG, PNG, WebP or HEIC")
	ErrImageTooLarge       = NewValidationError("Image must be at most 10 MiB")
	ErrEmptyTranscript     = NewValidationError("Transcript must not be empty")
	ErrCategoryNameInvalid = NewValidationError("Category name must be between 1 and 50 characters")
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrReadOnly            = errors.New("viewers cannot modify transactions")
	ErrNothingExtracted    = errors.New("no transactions could be extracted")
)

type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Error() string {
	errorMessages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		errorMessages[i] = err.Error()
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(errorMessages, "; "))
}

func (ve *ValidationErrors) Add(err error) {
	ve.Errors = append(ve.Errors, err)
}

func (ve *ValidationErrors) Messages() []string {
	messages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		messages[i] = err.Error()
	}
	return messages
}

func IsValidationErrors(err error) bool {
	var validationErrors *ValidationErrors
	ok := errors.As(err, &validationErrors)
	return ok
}
