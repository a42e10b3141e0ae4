package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := New(CodePlanNotFound, "plan %s missing", "plan-1")
	assert.Equal(t, CodePlanNotFound, CodeOf(err))
	assert.True(t, HasCode(err, CodePlanNotFound))

	// codes survive wrapping with %w
	wrapped := fmt.Errorf("executing: %w", err)
	assert.Equal(t, CodePlanNotFound, CodeOf(wrapped))

	assert.Equal(t, Code(""), CodeOf(stderrors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(CodeProviderTransient, cause, "lifi status for %s", "0xabc")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "PROVIDER_TRANSIENT_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRetryableAndFatal(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeProviderTransient, "blip")))
	assert.False(t, IsRetryable(New(CodeQuoteExpired, "stale")))

	assert.True(t, IsFatal(New(CodePlanNotFound, "gone")))
	assert.True(t, IsFatal(New(CodePlanExpired, "stale")))
	assert.True(t, IsFatal(New(CodePlanNoOp, "empty")))
	assert.False(t, IsFatal(New(CodeLegSubmissionFailed, "rejected")))
	assert.False(t, IsFatal(stderrors.New("plain")))
}
