package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionErrTagsDeadBrowser(t *testing.T) {
	for _, msg := range []string{
		"cdp: connection closed",
		"read tcp 127.0.0.1:9222: use of closed network connection",
		"websocket: close 1006 (abnormal closure)",
		"target closed",
		"session closed, no chance to send the request",
	} {
		assert.ErrorIs(t, sessionErr(errors.New(msg)), ErrSessionLost, msg)
	}
}

func TestSessionErrLeavesOrdinaryErrorsAlone(t *testing.T) {
	for _, err := range []error{
		errors.New("cannot find element: h1"),
		errors.New("net::ERR_CONNECTION_RESET"),
		fmt.Errorf("wait load: %w", context.DeadlineExceeded),
		context.Canceled,
	} {
		assert.NotErrorIs(t, sessionErr(err), ErrSessionLost, "%v", err)
	}
	assert.NoError(t, sessionErr(nil))
}

func TestPollUntilSleepsBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	var attempts int
	err := pollUntil(ctx, 20*time.Millisecond, func() error {
		attempts++
		return errors.New("not yet") // fails instantly
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, attempts, 5, "fast failures must not busy-spin")
}

func TestPollUntilReturnsOnSuccess(t *testing.T) {
	var n int
	err := pollUntil(context.Background(), time.Millisecond, func() error {
		n++
		if n < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPollUntilAbortsOnSessionLoss(t *testing.T) {
	err := pollUntil(context.Background(), time.Millisecond, func() error {
		return fmt.Errorf("element lookup: %w", ErrSessionLost)
	})
	require.ErrorIs(t, err, ErrSessionLost)
}
