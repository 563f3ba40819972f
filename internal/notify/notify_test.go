package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "contented.index.Doc", Subject("contented.index", "Doc"))
	assert.Equal(t, "Doc", Subject("", "Doc"))
}

func TestNoticeMarshal(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := Notice{Type: "Doc", BatchID: "b1", Count: 4, GeneratedAt: at}.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Doc", decoded["type"])
	assert.Equal(t, "b1", decoded["batch_id"])
	assert.InDelta(t, 4, decoded["count"], 0)
	assert.Equal(t, "2024-01-02T03:04:05Z", decoded["generated_at"])
}

func TestNoop(t *testing.T) {
	var n Notifier = Noop{}
	assert.NoError(t, n.Notify(t.Context(), Notice{}))
	assert.NoError(t, n.Close())
}

func TestNewNATS_RequiresURL(t *testing.T) {
	_, err := NewNATS(t.Context(), Config{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestNewNATS_Unreachable(t *testing.T) {
	_, err := NewNATS(t.Context(), Config{URL: "nats://127.0.0.1:1"})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotify))
}

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, IsRetryable: func(err error) bool {
		return errors.Is(err, nats.ErrTimeout)
	}}

	calls := 0
	err := policy.Do(t.Context(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return nats.ErrTimeout
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = policy.Do(t.Context(), "op", func(context.Context) error {
		calls++
		return nats.ErrTimeout
	})
	require.ErrorIs(t, err, nats.ErrTimeout)
	assert.Equal(t, 3, calls)

	calls = 0
	fatal := errors.New("bad subject")
	err = policy.Do(t.Context(), "op", func(context.Context) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "non-retryable errors stop immediately")
}

func TestRetryPolicy_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	policy := RetryPolicy{MaxAttempts: 5, Backoff: time.Hour, IsRetryable: func(error) bool { return true }}

	err := policy.Do(ctx, "op", func(context.Context) error {
		cancel()
		return nats.ErrTimeout
	})
	require.ErrorIs(t, err, context.Canceled)
}
