package quotation

import (
	"errors"
	"fmt"
)

// RentalWindowMessage is the client-visible message for an inverted or empty rental window.
const RentalWindowMessage = "Rental end date must be after start date"

// ErrValidation matches any *ValidationError through errors.Is.
var ErrValidation = errors.New("quotation: validation failed")

// ValidationError rejects a whole quotation. Line is the zero-based index of the offending line.
type ValidationError struct {
	Line    int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Detail names the offending line for logs; Error stays the fixed client message.
func (e *ValidationError) Detail() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Validate gates persistence of q. Lines are checked in order and the first line whose end is
// not strictly after its start fails the whole quotation. Nothing is corrected or recomputed.
// A quotation without lines passes.
func Validate(q *Quotation) error {
	if q == nil {
		return nil
	}
	return ValidateLines(q.Lines)
}

func ValidateLines(lines []Line) error {
	for i, line := range lines {
		if !line.RentalEnd.After(line.RentalStart) {
			return &ValidationError{Line: i, Message: RentalWindowMessage}
		}
	}
	return nil
}
