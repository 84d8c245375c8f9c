package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithErrorLeavesSentinelUntouched(t *testing.T) {
	cause := errors.New("signature mismatch")

	wrapped := ErrInvalidWebhookEvent.WithError(cause)

	require.NotSame(t, ErrInvalidWebhookEvent, wrapped)
	assert.Equal(t, cause, wrapped.Err)
	assert.Nil(t, ErrInvalidWebhookEvent.Err)
	assert.True(t, errors.Is(wrapped, ErrInvalidWebhookEvent))
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestWithDetailsLeavesSentinelUntouched(t *testing.T) {
	wrapped := ErrInsufficientCredits.WithDetails(map[string]interface{}{"balance": int64(0)})

	require.NotSame(t, ErrInsufficientCredits, wrapped)
	assert.NotNil(t, wrapped.Details)
	assert.Nil(t, ErrInsufficientCredits.Details)
	assert.True(t, errors.Is(wrapped, ErrInsufficientCredits))
}

func TestSequentialWrapsDoNotBleedCauses(t *testing.T) {
	first := ErrInvalidWebhookEvent.WithError(errors.New("first delivery"))
	second := ErrInvalidWebhookEvent.WithError(errors.New("second delivery"))

	assert.EqualError(t, first.Err, "first delivery")
	assert.EqualError(t, second.Err, "second delivery")
}

func TestIsDistinguishesErrorsSharingACode(t *testing.T) {
	// ErrUserBlocked and ErrForbidden both carry CodeForbidden.
	assert.False(t, errors.Is(ErrUserBlocked, ErrForbidden))
	assert.True(t, errors.Is(ErrUserBlocked.WithError(errors.New("x")), ErrUserBlocked))
}

func TestValidationErrorKeepsSentinelClean(t *testing.T) {
	_ = ValidationError(map[string]string{"email": "required"})
	assert.Nil(t, ErrValidationFailed.Details)
}
