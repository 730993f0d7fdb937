package orchestrator

import (
	"context"
	"testing"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestRegister_success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d, inv, err := e.orch.Register(ctx, RegistrationParams{
		TenantID:    e.tenant,
		Registrar:   "acme",
		Name:        "Example.COM",
		Years:       2,
		Nameservers: []string{"ns1.example.com", "ns2.example.com"},
		Contacts:    []domain.Contact{{Type: "registrant", Name: "Jane Doe", Email: "jane@example.com"}},
		AutoRenew:   true,
		Actor:       "jane",
	})
	require.NoError(t, err)

	require.Equal(t, "example.com", d.Name)
	require.Equal(t, domain.DomainStatusPendingRegistration, d.Status)
	require.Equal(t, "acme", d.Registrar)
	require.True(t, d.AutoRenew)
	require.True(t, d.ExpiresAt.Equal(e.now.AddDate(2, 0, 0)))

	// 2 years at 10 per year
	require.Equal(t, domain.InvoiceStatusPaid, inv.Status)
	requireDecimalEqual(t, "20", inv.Total)
	require.Equal(t, d.ID, inv.DomainID)

	requireDecimalEqual(t, "30", e.balance(t))

	entries := e.ledger(t)
	require.Len(t, entries, 1)
	require.Equal(t, domain.EntryDebit, entries[0].Type)
	requireDecimalEqual(t, "20", entries[0].Amount)

	require.Contains(t, auditActions(t, e), domain.AuditDomainRegistered)
}

func TestRegister_duplicateName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	_, _, err := e.orch.Register(ctx, RegistrationParams{
		TenantID: e.tenant, Registrar: "acme", Name: "example.com", Years: 1,
	})
	require.NoError(t, err)

	_, _, err = e.orch.Register(ctx, RegistrationParams{
		TenantID: e.tenant, Registrar: "acme", Name: "example.com", Years: 1,
	})
	require.ErrorIs(t, err, serrors.ErrConflict)
}

func TestRegister_unavailableName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	e.fake.SetUnavailable("taken.com")

	_, _, err := e.orch.Register(ctx, RegistrationParams{
		TenantID: e.tenant, Registrar: "acme", Name: "taken.com", Years: 1,
	})
	require.ErrorIs(t, err, serrors.ErrConflict)

	// nothing was charged
	requireDecimalEqual(t, "50", e.balance(t))
	require.Empty(t, e.ledger(t))
}

func TestRegister_registrarFailureRefunds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	e.fake.FailNext("register", serrors.With(serrors.ErrOperationFailed, "registry unreachable"))

	_, _, err := e.orch.Register(ctx, RegistrationParams{
		TenantID: e.tenant, Registrar: "acme", Name: "example.com", Years: 1,
	})
	require.ErrorIs(t, err, serrors.ErrOperationFailed)

	// debit and compensating refund, balance restored
	requireDecimalEqual(t, "50", e.balance(t))
	entries := e.ledger(t)
	require.Len(t, entries, 2)
	require.Equal(t, domain.EntryRefund, entries[0].Type)
	require.Equal(t, domain.EntryDebit, entries[1].Type)

	// no domain row was created
	d, err := e.store.DomainByName(ctx, "example.com")
	require.NoError(t, err)
	require.Nil(t, d)

	// the invoice ends up failed
	page, err := e.store.TenantInvoices(ctx, e.tenant, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Invoices, 1)
	require.Equal(t, domain.InvoiceStatusFailed, page.Invoices[0].Status)

	require.Contains(t, auditActions(t, e), domain.AuditRegistrationFailed)
}

func TestRegister_insufficientFunds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	// 6 years at 10 per year exceeds the 50 balance
	_, _, err := e.orch.Register(ctx, RegistrationParams{
		TenantID: e.tenant, Registrar: "acme", Name: "example.com", Years: 6,
	})
	require.ErrorIs(t, err, serrors.ErrInsufficientFunds)

	requireDecimalEqual(t, "50", e.balance(t))

	d, err := e.store.DomainByName(ctx, "example.com")
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestRegister_noPriceConfigured(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	_, _, err := e.orch.Register(ctx, RegistrationParams{
		TenantID: e.tenant, Registrar: "acme", Name: "example.net", Years: 1,
	})
	require.ErrorIs(t, err, serrors.ErrNotFound)
	requireDecimalEqual(t, "50", e.balance(t))
}
