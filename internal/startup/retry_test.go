package startup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
}

func TestIsNetworkError(t *testing.T) {
	assert.False(t, IsNetworkError(nil))
	assert.True(t, IsNetworkError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")))
	assert.True(t, IsNetworkError(fmt.Errorf("open: %w", errors.New("the database system is starting up"))))
	assert.False(t, IsNetworkError(errors.New("password authentication failed")))
}

func TestWithRetry_RetriesNetworkErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "db", fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "db", fastRetry(), func() error {
		calls++
		return errors.New("syntax error in migration")
	}, zerolog.Nop())

	assert.EqualError(t, err, "syntax error in migration")
	assert.Equal(t, 1, calls)
}

func TestWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "redis", fastRetry(), func() error {
		calls++
		return errors.New("i/o timeout")
	}, zerolog.Nop())

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}
