package orchestrator

import (
	"context"
	"testing"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/registrar"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestClassifyRenewal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	cases := []struct {
		name      string
		expiresAt time.Time
		window    RenewalWindow
	}{
		{"far future", now.Add(200 * day), WindowTooEarly},
		{"just outside ninety days", now.Add(91 * day), WindowTooEarly},
		{"inside ninety days", now.Add(89 * day), WindowStandard},
		{"day before expiry", now.Add(1 * day), WindowStandard},
		{"expired yesterday", now.Add(-1 * day), WindowGrace},
		{"last grace day", now.Add(-30 * day), WindowGrace},
		{"into redemption", now.Add(-31 * day), WindowRedemption},
		{"last redemption day", now.Add(-60 * day), WindowRedemption},
		{"released", now.Add(-61 * day), WindowGone},
	}
	for _, tc := range cases {
		require.Equal(t, tc.window, ClassifyRenewal(now, tc.expiresAt), tc.name)
	}
}

func TestRenew_standardWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	expiresAt := e.now.Add(30 * 24 * time.Hour)
	d := e.seedActiveDomain(t, "example.com", expiresAt)

	renewed, inv, err := e.orch.Renew(ctx, e.tenant, d.ID, 1, "jane")
	require.NoError(t, err)

	require.Equal(t, domain.DomainStatusActive, renewed.Status)
	require.True(t, renewed.ExpiresAt.Equal(expiresAt.AddDate(1, 0, 0)))

	require.Equal(t, domain.InvoiceStatusPaid, inv.Status)
	requireDecimalEqual(t, "12", inv.Total)
	requireDecimalEqual(t, "38", e.balance(t))

	require.Contains(t, auditActions(t, e), domain.AuditDomainRenewed)
}

func TestRenew_graceWindowSurcharge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	// expired ten days ago: renewal still allowed, 20% surcharge applies
	expiresAt := e.now.Add(-10 * 24 * time.Hour)
	d := e.seedActiveDomain(t, "example.com", expiresAt)

	renewed, inv, err := e.orch.Renew(ctx, e.tenant, d.ID, 1, "jane")
	require.NoError(t, err)

	requireDecimalEqual(t, "14.4", inv.Total)
	requireDecimalEqual(t, "35.6", e.balance(t))

	// a lapsed expiry extends from now rather than the lapsed date
	require.True(t, renewed.ExpiresAt.Equal(e.now.AddDate(1, 0, 0)))
}

func TestRenew_rejectedWindows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	day := 24 * time.Hour
	cases := []struct {
		name      string
		expiresAt time.Time
	}{
		{"tooearly.com", e.now.Add(200 * day)},
		{"redemption.com", e.now.Add(-45 * day)},
		{"gone.com", e.now.Add(-90 * day)},
	}
	for _, tc := range cases {
		d := e.seedActiveDomain(t, tc.name, tc.expiresAt)

		_, _, err := e.orch.Renew(ctx, e.tenant, d.ID, 1, "jane")
		require.ErrorIs(t, err, serrors.ErrBadRequest, tc.name)
	}

	// no window rejection touches the wallet
	requireDecimalEqual(t, "50", e.balance(t))
	require.Empty(t, e.ledger(t))
}

func TestRenew_registrarFailureRefunds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedActiveDomain(t, "example.com", e.now.Add(15*24*time.Hour))
	e.fake.FailNext("renew", serrors.With(serrors.ErrOperationFailed, "registry maintenance"))

	_, _, err := e.orch.Renew(ctx, e.tenant, d.ID, 1, "jane")
	require.ErrorIs(t, err, serrors.ErrOperationFailed)

	requireDecimalEqual(t, "50", e.balance(t))
	require.Contains(t, auditActions(t, e), domain.AuditRenewalFailed)

	// local expiry untouched
	current, err := e.store.DomainByID(ctx, e.tenant, d.ID)
	require.NoError(t, err)
	require.True(t, current.ExpiresAt.Equal(d.ExpiresAt))
}

func TestRenew_unknownDomain(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	_, _, err := e.orch.Renew(context.Background(), e.tenant, domain.DomainID(uuid.New()), 1, "jane")
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestAutoRenewSweep_isolatesFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	// funded tenant's domain renews; the broke tenant's failure is contained
	e.seedActiveDomain(t, "funded.com", e.now.Add(10*24*time.Hour))

	broke := domain.TenantID(uuid.New())
	_, err := e.store.CreateWallet(ctx, domain.Wallet{
		TenantID: broke,
		Balance:  decimal.NewFromInt(1),
		Currency: "USD",
	})
	require.NoError(t, err)

	e.fake.Seed("broke.com", registrar.DomainInfo{
		Status:    "active",
		ExpiresAt: e.now.Add(5 * 24 * time.Hour),
	})
	_, err = e.store.StoreDomain(ctx, domain.Domain{
		ID:        domain.DomainID(uuid.New()),
		TenantID:  broke,
		Name:      "broke.com",
		Status:    domain.DomainStatusActive,
		Registrar: "acme",
		ExpiresAt: e.now.Add(5 * 24 * time.Hour),
		AutoRenew: true,
	})
	require.NoError(t, err)

	// mark the funded domain auto-renew as well
	funded, err := e.store.DomainByName(ctx, "funded.com")
	require.NoError(t, err)
	autoRenew := true
	_, err = e.store.UpdateDomainByID(ctx, funded.ID, storage.DomainUpdates{AutoRenew: &autoRenew})
	require.NoError(t, err)

	result, err := e.orch.AutoRenewSweep(ctx, e.now.Add(30*24*time.Hour), 100)
	require.NoError(t, err)
	require.Equal(t, 1, result.Renewed)
	require.Equal(t, 1, result.Failed)

	requireDecimalEqual(t, "38", e.balance(t))
}
