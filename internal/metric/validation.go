package metric

import (
	"fmt"

	"codeberg.org/mutker/vitalsd/internal/errors"
)

// ValidationError names the field and the rule a candidate reading broke.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  any    `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (*ValidationError) Code() errors.ErrorCode {
	return errors.ErrValidation
}

func invalid(field, reason string, value any) error {
	return &ValidationError{Field: field, Reason: reason, Value: value}
}

func between[T int | float64](v, lo, hi T) bool {
	return v >= lo && v <= hi
}
