package anonymize

import (
	"errors"
	"fmt"
)

var (
	// ErrDataValidation reports a value that does not match the shape expected
	// by its category. Strategies recover from it locally by emitting a
	// placeholder; it never leaves this package.
	ErrDataValidation = errors.New("value does not match category shape")

	// ErrUnsupportedDataType reports a category with no registered strategy.
	ErrUnsupportedDataType = errors.New("unsupported data type")

	// ErrInvalidLevel reports a level outside the base enumeration.
	ErrInvalidLevel = errors.New("invalid anonymization level")

	// ErrUnsupportedPattern reports pattern text the extractor cannot parse.
	ErrUnsupportedPattern = errors.New("unsupported pattern")

	// ErrMissingRequiredField reports a structural property lost during
	// transformation, or missing from the input altogether.
	ErrMissingRequiredField = errors.New("required field missing")
)

// AnonymizationError is returned when an object cannot be fully anonymized.
// Callers must treat the object as unshareable.
type AnonymizationError struct {
	ObjectID string
	Field    string
	Err      error
}

func (e *AnonymizationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("anonymize %s: field %s: %v", e.ObjectID, e.Field, e.Err)
	}
	return fmt.Sprintf("anonymize %s: %v", e.ObjectID, e.Err)
}

func (e *AnonymizationError) Unwrap() error { return e.Err }
