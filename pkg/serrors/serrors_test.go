package serrors_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"reseller/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := serrors.With(serrors.ErrRateLimited, "slow down")
	require.ErrorIs(t, err, serrors.ErrRateLimited)
	require.NotErrorIs(t, err, serrors.ErrTimeout)
}

func TestError_IsMatchesWrappedCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := serrors.Wrap(serrors.ErrConnectionFailure, cause, "could not reach vendor")

	require.ErrorIs(t, err, serrors.ErrConnectionFailure)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "could not reach vendor: connection refused", err.Error())
}

func TestError_MatchesThroughFmtWrapping(t *testing.T) {
	inner := serrors.With(serrors.ErrDomainNotFound, "no such domain")
	outer := fmt.Errorf("info lookup: %w", inner)

	require.ErrorIs(t, outer, serrors.ErrDomainNotFound)
}

func TestError_RetryAfter(t *testing.T) {
	err := serrors.With(serrors.ErrRateLimited, "budget exhausted").WithRetryAfter(42 * time.Second)

	require.ErrorIs(t, err, serrors.ErrRateLimited)
	require.Equal(t, 42*time.Second, err.RetryAfter())

	// the hint survives fmt wrapping
	wrapped := fmt.Errorf("register: %w", err)
	require.Equal(t, 42*time.Second, serrors.RetryAfter(wrapped))

	// non-semantic errors carry no hint
	require.Zero(t, serrors.RetryAfter(errors.New("plain")))
}

func TestError_Details(t *testing.T) {
	err := serrors.With(serrors.ErrInvalidData, "validation failed").
		WithDetail("years", "must be between 1 and 10").
		WithDetail("domain", "missing TLD")

	require.ErrorIs(t, err, serrors.ErrInvalidData)
	require.Equal(t, "must be between 1 and 10", err.Details()["years"])
	require.Equal(t, "missing TLD", err.Details()["domain"])
}

func TestError_KindOnly(t *testing.T) {
	err := serrors.KindOnly(serrors.ErrInsufficientFunds)
	require.Equal(t, "INSUFFICIENT_FUNDS", err.Error())
	require.Equal(t, serrors.ErrInsufficientFunds, err.Kind())
}
