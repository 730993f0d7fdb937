package reconciler

import (
	"context"
	"testing"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/registrar"
	"reseller/pkg/registrar/fake"
	"reseller/pkg/serrors"
	"reseller/pkg/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// env wires a reconciler to the in-memory store and a scripted registrar.
type env struct {
	store    *memory.Store
	fake     *fake.Registrar
	registry *registrar.Registry
	rec      *Reconciler
	tenant   domain.TenantID

	now time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		store:  memory.New(),
		fake:   fake.New("acme"),
		tenant: domain.TenantID(uuid.New()),
		now:    time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}

	e.registry = registrar.NewRegistry()
	e.registry.RegisterDriver("fake", func(registrar.Config) (registrar.Client, error) {
		return e.fake, nil
	})
	e.registry.Configure(registrar.Config{Slug: "acme", Driver: "fake", Active: true})

	e.rec = New(e.store, e.registry, Options{})
	e.rec.now = func() time.Time { return e.now }
	e.fake.Now = func() time.Time { return e.now }
	e.store.Now = func() time.Time { return e.now }

	return e
}

// seedDomain stores a local row that has never been synced.
func (e *env) seedDomain(t *testing.T, name string, status domain.DomainStatus,
	expiresAt time.Time, nameservers []string) *domain.Domain {
	t.Helper()

	d, err := e.store.StoreDomain(context.Background(), domain.Domain{
		ID:          domain.DomainID(uuid.New()),
		TenantID:    e.tenant,
		Name:        name,
		Status:      status,
		Registrar:   "acme",
		ExpiresAt:   expiresAt,
		Nameservers: nameservers,
	})
	require.NoError(t, err)

	return d
}

func TestSync_repairsDrift(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	localExpiry := e.now.AddDate(1, 0, 0)
	vendorExpiry := e.now.AddDate(2, 0, 0)

	d := e.seedDomain(t, "example.com", domain.DomainStatusActive, localExpiry,
		[]string{"ns1.example.com", "ns2.example.com"})

	e.fake.Seed("example.com", registrar.DomainInfo{
		Status:      "expired",
		ExpiresAt:   vendorExpiry,
		Nameservers: []string{"ns1.vendor.com", "ns2.vendor.com"},
	})

	result, err := e.rec.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, SyncResult{Synced: 1, Repaired: 1}, result)

	current, err := e.store.DomainByID(ctx, e.tenant, d.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DomainStatusExpired, current.Status)
	require.True(t, current.ExpiresAt.Equal(vendorExpiry))
	require.Equal(t, []string{"ns1.vendor.com", "ns2.vendor.com"}, current.Nameservers)
	require.False(t, current.LastSyncedAt.IsZero())
	require.Empty(t, current.LastSyncError)

	// one audit entry per repaired field
	trail, err := e.store.AuditTrail(ctx, "domain", uuid.UUID(d.ID).String(), 10)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	fields := map[string]bool{}
	for _, entry := range trail {
		require.Equal(t, domain.AuditSyncDriftRepaired, entry.Action)
		require.Equal(t, "reconciler", entry.Actor)
		fields[entry.Field] = true
	}
	require.True(t, fields["status"])
	require.True(t, fields["expires_at"])
	require.True(t, fields["nameservers"])
}

func TestSync_secondRunRepairsNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedDomain(t, "example.com", domain.DomainStatusActive,
		e.now.AddDate(1, 0, 0), []string{"ns1.example.com", "ns2.example.com"})

	e.fake.Seed("example.com", registrar.DomainInfo{
		Status:      "expired",
		ExpiresAt:   e.now.AddDate(2, 0, 0),
		Nameservers: []string{"ns1.vendor.com", "ns2.vendor.com"},
	})

	result, err := e.rec.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Repaired)

	// a day later the domain is due again; local state now matches
	e.now = e.now.Add(25 * time.Hour)

	result, err = e.rec.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, SyncResult{Synced: 1}, result)

	trail, err := e.store.AuditTrail(ctx, "domain", uuid.UUID(d.ID).String(), 10)
	require.NoError(t, err)
	require.Len(t, trail, 3)
}

func TestSync_minorExpirySkewIsNotDrift(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	expiry := e.now.AddDate(1, 0, 0)
	e.seedDomain(t, "example.com", domain.DomainStatusActive, expiry,
		[]string{"ns1.example.com", "ns2.example.com"})

	e.fake.Seed("example.com", registrar.DomainInfo{
		Status:      "active",
		ExpiresAt:   expiry.Add(30 * time.Second),
		Nameservers: []string{"NS2.Example.com", "ns1.example.com"},
	})

	result, err := e.rec.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, SyncResult{Synced: 1}, result)
}

func TestSync_unknownVendorStatusSkips(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedDomain(t, "example.com", domain.DomainStatusActive,
		e.now.AddDate(1, 0, 0), []string{"ns1.example.com", "ns2.example.com"})

	e.fake.Seed("example.com", registrar.DomainInfo{
		Status:      "quarantine",
		ExpiresAt:   d.ExpiresAt,
		Nameservers: d.Nameservers,
	})

	result, err := e.rec.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, SyncResult{Synced: 1, Skipped: 1}, result)

	current, err := e.store.DomainByID(ctx, e.tenant, d.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DomainStatusActive, current.Status)
	require.False(t, current.LastSyncedAt.IsZero())
}

func TestSync_transferStatesAreNotRepaired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	d := e.seedDomain(t, "example.com", domain.DomainStatusTransferInProgress,
		e.now.AddDate(1, 0, 0), nil)

	e.fake.Seed("example.com", registrar.DomainInfo{
		Status:    "active",
		ExpiresAt: d.ExpiresAt,
	})

	result, err := e.rec.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, SyncResult{Synced: 1, Skipped: 1}, result)

	current, err := e.store.DomainByID(ctx, e.tenant, d.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DomainStatusTransferInProgress, current.Status)
}

func TestSync_isolatesFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	// the failing domain expires first, so it is synced first
	failing := e.seedDomain(t, "failing.com", domain.DomainStatusActive,
		e.now.AddDate(0, 6, 0), []string{"ns1.example.com", "ns2.example.com"})
	healthy := e.seedDomain(t, "healthy.com", domain.DomainStatusActive,
		e.now.AddDate(1, 0, 0), []string{"ns1.example.com", "ns2.example.com"})

	e.fake.Seed("healthy.com", registrar.DomainInfo{
		Status:      "active",
		ExpiresAt:   healthy.ExpiresAt,
		Nameservers: healthy.Nameservers,
	})
	e.fake.FailNext("info", serrors.With(serrors.ErrConnectionFailure, "vendor down"))

	result, err := e.rec.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, SyncResult{Synced: 1, Failed: 1}, result)

	// the failure lands on the row without marking it synced
	current, err := e.store.DomainByID(ctx, e.tenant, failing.ID)
	require.NoError(t, err)
	require.Contains(t, current.LastSyncError, "vendor down")
	require.True(t, current.LastSyncedAt.IsZero())

	// so it stays due for the next sweep
	due, err := e.store.DomainsDueForSync(ctx, "acme", e.now.Add(-DefaultStaleAfter), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "failing.com", due[0].Name)
}
