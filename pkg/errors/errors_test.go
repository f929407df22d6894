package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", NewUpstreamError("compat", stderrors.New("boom")))

	assert.True(t, HasCode(wrapped, ErrCodeUpstreamUnavailable))
	assert.False(t, HasCode(wrapped, ErrCodeValidation))
	assert.False(t, HasCode(nil, ErrCodeUpstreamUnavailable))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeUpstreamUnavailable))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(context.Canceled))
	assert.True(t, IsCancelled(NewCancelledError(context.Canceled)))
	assert.False(t, IsCancelled(nil))
	assert.False(t, IsCancelled(NewRateLimitedError("rest", nil)))
}

func TestIsBudgetExceeded_ContextCause(t *testing.T) {
	ctx, cancel := context.WithTimeoutCause(context.Background(), time.Millisecond, ErrBudgetExceeded)
	defer cancel()
	<-ctx.Done()

	assert.True(t, IsBudgetExceeded(context.Cause(ctx)))
	assert.False(t, IsBudgetExceeded(context.Cause(context.Background())))
}

func TestIsBudgetExceeded_ParentCancelled(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := context.WithTimeoutCause(parent, time.Hour, ErrBudgetExceeded)
	defer cancel()
	cancelParent()

	assert.False(t, IsBudgetExceeded(context.Cause(ctx)))
}

func TestConfigurationError(t *testing.T) {
	cause := stderrors.New("bad yaml")
	err := NewConfigurationError("failed to decode configuration", cause)

	assert.Equal(t, "[CONFIGURATION] failed to decode configuration: bad yaml", err.Error())
	assert.ErrorIs(t, err, cause)
}
