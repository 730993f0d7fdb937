package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/registrar"
	"reseller/pkg/registrar/fake"
	"reseller/pkg/storage/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures transfer failure notifications.
type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNotifier) TransferFailed(_ context.Context, _ domain.Domain, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.reasons)
}

// env wires an orchestrator to the in-memory store and a scripted registrar.
// Time is frozen and advanced explicitly through e.now.
type env struct {
	store    *memory.Store
	fake     *fake.Registrar
	orch     *Orchestrator
	notifier *recordingNotifier
	tenant   domain.TenantID

	now time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		store:    memory.New(),
		fake:     fake.New("acme"),
		notifier: &recordingNotifier{},
		tenant:   domain.TenantID(uuid.New()),
		now:      time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}

	registry := registrar.NewRegistry()
	registry.RegisterDriver("fake", func(registrar.Config) (registrar.Client, error) {
		return e.fake, nil
	})
	registry.Configure(registrar.Config{Slug: "acme", Driver: "fake", Active: true})

	e.orch = New(e.store, registry, e.notifier, Options{})
	e.orch.now = func() time.Time { return e.now }
	e.fake.Now = func() time.Time { return e.now }
	e.store.Now = func() time.Time { return e.now }

	ctx := context.Background()
	_, err := e.store.CreateWallet(ctx, domain.Wallet{
		TenantID: e.tenant,
		Balance:  decimal.NewFromInt(50),
		Currency: "USD",
	})
	require.NoError(t, err)

	require.NoError(t, e.store.StorePrices(ctx,
		domain.TLDPrice{Registrar: "acme", TLD: "com", Action: domain.ActionRegister,
			Price: decimal.NewFromInt(10), Currency: "USD"},
		domain.TLDPrice{Registrar: "acme", TLD: "com", Action: domain.ActionRenew,
			Price: decimal.NewFromInt(12), Currency: "USD"},
		domain.TLDPrice{Registrar: "acme", TLD: "com", Action: domain.ActionTransfer,
			Price: decimal.NewFromInt(8), Currency: "USD"},
	))

	return e
}

func (e *env) balance(t *testing.T) decimal.Decimal {
	t.Helper()

	w, err := e.store.WalletByTenant(context.Background(), e.tenant)
	require.NoError(t, err)
	require.NotNil(t, w)

	return w.Balance
}

func (e *env) ledger(t *testing.T) []domain.WalletEntry {
	t.Helper()

	entries, err := e.store.WalletEntries(context.Background(), e.tenant, 100)
	require.NoError(t, err)

	return entries
}

// seedActiveDomain installs a domain both locally and at the fake registrar.
func (e *env) seedActiveDomain(t *testing.T, name string, expiresAt time.Time) *domain.Domain {
	t.Helper()

	e.fake.Seed(name, registrar.DomainInfo{
		Status:      "active",
		ExpiresAt:   expiresAt,
		Nameservers: []string{"ns1.example.com", "ns2.example.com"},
	})

	d, err := e.store.StoreDomain(context.Background(), domain.Domain{
		ID:          domain.DomainID(uuid.New()),
		TenantID:    e.tenant,
		Name:        name,
		Status:      domain.DomainStatusActive,
		Registrar:   "acme",
		ExpiresAt:   expiresAt,
		Nameservers: []string{"ns1.example.com", "ns2.example.com"},
	})
	require.NoError(t, err)

	return d
}

func auditActions(t *testing.T, e *env) []domain.AuditAction {
	t.Helper()

	var actions []domain.AuditAction
	for _, entry := range e.store.AuditEntries() {
		actions = append(actions, entry.Action)
	}

	return actions
}

func requireDecimalEqual(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, actual.Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s", expected, actual.String())
}
