package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Operation timed out", f.New(errors.ErrTimeout).Error())
	assert.Equal(t, "custom", f.WithMessage(errors.ErrTimeout, "custom").Error())
	assert.Equal(t, "unknown_code", f.New(errors.ErrorCode("unknown_code")).Error())
	assert.Equal(t, "Operation failed: boom", f.Wrap(errors.ErrOperationFailed, fmt.Errorf("boom")).Error())
	assert.Equal(t, "Invalid argument provided: 42", f.WithData(errors.ErrInvalidArgument, 42).Error())
}

func TestWithMessageKeepsCause(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := errors.New().Wrap(errors.ErrInternal, cause).WithMessage("outer")

	assert.Equal(t, errors.ErrInternal, err.Code())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "outer: root cause", err.Error())
}

func TestHasCode(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrUnavailable)
	outer := f.Wrap(errors.ErrOperationFailed, fmt.Errorf("context: %w", inner))

	assert.True(t, errors.HasCode(outer, errors.ErrOperationFailed))
	assert.True(t, errors.HasCode(outer, errors.ErrUnavailable))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(nil, errors.ErrTimeout))

	joined := errors.Join(fmt.Errorf("plain"), f.New(errors.ErrTimeout))
	assert.True(t, errors.HasCode(joined, errors.ErrTimeout))
}

func TestCodeOf(t *testing.T) {
	f := errors.New()

	assert.Equal(t, errors.ErrTimeout, errors.CodeOf(fmt.Errorf("wrapped: %w", f.New(errors.ErrTimeout))))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(fmt.Errorf("plain")))
}
