package orchestrator

import (
	"context"
	"testing"

	"reseller/pkg/domain"
	"reseller/pkg/serrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUpdateNameservers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedActiveDomain(t, "example.com", e.now.AddDate(1, 0, 0))

	updated, err := e.orch.UpdateNameservers(ctx, e.tenant, d.ID,
		[]string{"ns1.new.com", "ns2.new.com"}, "jane")
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.new.com", "ns2.new.com"}, updated.Nameservers)

	// no wallet movement for infrastructure changes
	requireDecimalEqual(t, "50", e.balance(t))
	require.Empty(t, e.ledger(t))

	trail, err := e.store.AuditTrail(ctx, "domain", uuid.UUID(d.ID).String(), 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Equal(t, domain.AuditNameserversUpdated, trail[0].Action)
	require.Contains(t, trail[0].OldValue, "ns1.example.com")
	require.Contains(t, trail[0].NewValue, "ns1.new.com")
}

func TestUpdateNameservers_tooFew(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	d := e.seedActiveDomain(t, "example.com", e.now.AddDate(1, 0, 0))

	_, err := e.orch.UpdateNameservers(context.Background(), e.tenant, d.ID,
		[]string{"ns1.new.com"}, "jane")
	require.ErrorIs(t, err, serrors.ErrInvalidData)
}

func TestUpdateDNSRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedActiveDomain(t, "example.com", e.now.AddDate(1, 0, 0))

	err := e.orch.UpdateDNSRecords(ctx, e.tenant, d.ID, []domain.DNSRecord{
		{Type: "A", Host: "www", Value: "203.0.113.7", TTL: 3600},
	}, "jane")
	require.NoError(t, err)

	trail, err := e.store.AuditTrail(ctx, "domain", uuid.UUID(d.ID).String(), 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Equal(t, domain.AuditDNSRecordsUpdated, trail[0].Action)
	require.Contains(t, trail[0].NewValue, "203.0.113.7")
}

func TestUpdateContacts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedActiveDomain(t, "example.com", e.now.AddDate(1, 0, 0))

	err := e.orch.UpdateContacts(ctx, e.tenant, d.ID, []domain.Contact{
		{Type: "registrant", Name: "New Owner", Email: "owner@example.com"},
	}, "jane")
	require.NoError(t, err)

	trail, err := e.store.AuditTrail(ctx, "domain", uuid.UUID(d.ID).String(), 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Equal(t, domain.AuditContactsUpdated, trail[0].Action)
	require.Contains(t, trail[0].NewValue, "owner@example.com")
}

func TestSetAutoRenew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedActiveDomain(t, "example.com", e.now.AddDate(1, 0, 0))
	require.False(t, d.AutoRenew)

	upd, err := e.orch.SetAutoRenew(ctx, e.tenant, d.ID, true)
	require.NoError(t, err)
	require.True(t, upd.AutoRenew)

	upd, err = e.orch.SetAutoRenew(ctx, e.tenant, d.ID, false)
	require.NoError(t, err)
	require.False(t, upd.AutoRenew)
}

func TestOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedActiveDomain(t, "example.com", e.now.AddDate(1, 0, 0))

	// another tenant cannot touch the domain
	stranger := domain.TenantID(uuid.New())
	_, err := e.orch.SetAutoRenew(ctx, stranger, d.ID, true)
	require.ErrorIs(t, err, serrors.ErrNotFound)

	_, err = e.orch.UpdateNameservers(ctx, stranger, d.ID,
		[]string{"ns1.new.com", "ns2.new.com"}, "eve")
	require.ErrorIs(t, err, serrors.ErrNotFound)
}
