package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverPanic(t *testing.T) {
	assert.Nil(t, RecoverPanic(nil))

	t.Run("string", func(t *testing.T) {
		err := RecoverPanic("boom")
		require.NotNil(t, err)
		assert.Equal(t, CodeUnknown, err.Code)
		assert.Equal(t, "UNKNOWN: panic: boom", err.Error())
		assert.True(t, err.IsFatal())
		assert.Equal(t, true, err.Details["panic"])
		assert.NotEmpty(t, err.Details["stack_trace"])
	})

	t.Run("error", func(t *testing.T) {
		cause := errors.New("nil map")
		err := RecoverPanic(cause)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, CodeUnknown, err.Code)
	})

	t.Run("classified keeps code", func(t *testing.T) {
		err := RecoverPanic(ErrTimeout)
		assert.Equal(t, CodeTimeout, err.Code)
		assert.False(t, err.IsRetryable())
		assert.True(t, ErrTimeout.IsRetryable())
	})
}
