package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Not enough data", f.New(errors.ErrInsufficientData).Error())
	assert.Equal(t, "no rows", f.WithMessage(errors.ErrResourceNotFound, "no rows").Error())
	assert.Equal(t, "Invalid parameter: days", f.WithData(errors.ErrInvalidParameter, "days").Error())

	wrapped := f.Wrap(errors.ErrOperationFailed, fmt.Errorf("boom"))
	assert.Equal(t, "Operation failed: boom", wrapped.Error())
}

func TestHasCodeWalksChain(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrConfigMissing)
	outer := f.Wrap(errors.ErrOperationFailed, fmt.Errorf("user u1: %w", inner))

	assert.True(t, errors.HasCode(outer, errors.ErrConfigMissing))
	assert.True(t, errors.HasCode(outer, errors.ErrOperationFailed))
	assert.False(t, errors.HasCode(outer, errors.ErrValidation))
	assert.Equal(t, errors.ErrOperationFailed, errors.CodeOf(outer))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(fmt.Errorf("plain")))
}

func TestWithMessageKeepsCode(t *testing.T) {
	err := errors.New().New(errors.ErrValidation).WithMessage("systolic too high")

	assert.Equal(t, errors.ErrValidation, err.Code())
	assert.Equal(t, "systolic too high", err.Error())
}
