package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("vllm")

	assert.Equal(t, ErrUpstreamError, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, root))
	assert.Equal(t, "[UPSTREAM_ERROR] upstream failed: root", err.Error())
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := Errorf(ErrDegenerateDistribution, "score sum is %v", 0.0)
	wrapped := fmt.Errorf("step 2: select: %w", inner)

	assert.Equal(t, ErrDegenerateDistribution, GetErrorCode(wrapped))
	assert.True(t, IsErrorCode(wrapped, ErrDegenerateDistribution))
	assert.False(t, IsErrorCode(wrapped, ErrGenerationFailed))
	assert.False(t, IsRetryable(wrapped))

	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "score sum is 0", e.Message)
}

func TestError_PlainErrors(t *testing.T) {
	t.Parallel()

	err := errors.New("plain")
	assert.Equal(t, ErrorCode(""), GetErrorCode(err))
	assert.False(t, IsRetryable(err))
	assert.False(t, IsErrorCode(err, ErrInternalError))
}
