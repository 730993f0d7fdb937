package registrar

import (
	"testing"
	"time"

	"reseller/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterBudget(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(60, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 60; i++ {
		require.NoError(t, l.Reserve("availability"))
	}

	err := l.Reserve("availability")
	require.ErrorIs(t, err, serrors.ErrRateLimited)
	require.Greater(t, serrors.RetryAfter(err), time.Duration(0))

	// a different operation has its own budget
	require.NoError(t, l.Reserve("info"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	require.NoError(t, l.Reserve("register"))
	require.NoError(t, l.Reserve("register"))
	require.ErrorIs(t, l.Reserve("register"), serrors.ErrRateLimited)

	// once the oldest stamp leaves the window the budget frees up
	now = now.Add(61 * time.Second)
	require.NoError(t, l.Reserve("register"))
}

func TestRateLimiterDisabledAndReset(t *testing.T) {
	t.Parallel()

	unlimited := NewRateLimiter(0, time.Minute)
	for i := 0; i < 1000; i++ {
		require.NoError(t, unlimited.Reserve("anything"))
	}

	l := NewRateLimiter(1, time.Minute)
	require.NoError(t, l.Reserve("renew"))
	require.ErrorIs(t, l.Reserve("renew"), serrors.ErrRateLimited)

	l.Reset("renew")
	require.NoError(t, l.Reserve("renew"))

	require.ErrorIs(t, l.Reserve("renew"), serrors.ErrRateLimited)
	l.Reset("")
	require.NoError(t, l.Reserve("renew"))
}
