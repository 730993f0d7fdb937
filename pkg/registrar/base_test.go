package registrar_test

import (
	"context"
	"testing"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/registrar"
	"reseller/pkg/registrar/fake"
	"reseller/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestBaseValidatesBeforeCalling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := fake.New("acme")
	b := registrar.WrapBase(f, registrar.BaseOptions{})

	// an injected failure stays uncollected while validation rejects the call
	f.FailNext("register", serrors.With(serrors.ErrConnectionFailure, "must not be reached"))

	_, err := b.Register(ctx, registrar.RegisterParams{Name: "not a domain", Years: 1})
	require.ErrorIs(t, err, serrors.ErrInvalidData)

	_, err = b.Register(ctx, registrar.RegisterParams{Name: "example.com", Years: 0})
	require.ErrorIs(t, err, serrors.ErrInvalidData)

	_, err = b.Transfer(ctx, "example.com", "abc")
	require.ErrorIs(t, err, serrors.ErrInvalidData)

	_, err = b.UpdateContacts(ctx, "example.com", nil)
	require.ErrorIs(t, err, serrors.ErrInvalidData)

	_, err = b.UpdateDNSRecords(ctx, "example.com", []domain.DNSRecord{{Type: "A", Host: "@"}})
	require.ErrorIs(t, err, serrors.ErrInvalidData)

	// the failure is still armed, so no vendor call happened above
	_, err = b.Register(ctx, registrar.RegisterParams{Name: "example.com", Years: 1})
	require.ErrorIs(t, err, serrors.ErrConnectionFailure)
}

func TestBaseRegisterAppliesDefaultNameservers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := fake.New("acme")
	b := registrar.WrapBase(f, registrar.BaseOptions{
		DefaultNameservers: []string{"NS1.Default.COM.", "ns2.default.com"},
	})

	// no nameservers supplied: the configured defaults go out, normalized
	_, err := b.Register(ctx, registrar.RegisterParams{Name: "example.com", Years: 1})
	require.NoError(t, err)

	res, err := b.Info(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.default.com", "ns2.default.com"}, res.Info.Nameservers)

	// caller-supplied nameservers win over the defaults
	_, err = b.Register(ctx, registrar.RegisterParams{
		Name:        "other.com",
		Years:       1,
		Nameservers: []string{"ns1.caller.net", "ns2.caller.net"},
	})
	require.NoError(t, err)

	res, err = b.Info(ctx, "other.com")
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.caller.net", "ns2.caller.net"}, res.Info.Nameservers)
}

func TestBaseAvailabilityCacheAndInvalidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := fake.New("acme")
	b := registrar.WrapBase(f, registrar.BaseOptions{CacheTTL: time.Minute})

	available, err := b.CheckAvailability(ctx, "example.com")
	require.NoError(t, err)
	require.True(t, available)

	// the vendor-side change is masked by the cached read
	f.SetUnavailable("example.com")
	available, err = b.CheckAvailability(ctx, "example.com")
	require.NoError(t, err)
	require.True(t, available)

	// any write through the base invalidates cached reads for the domain
	res, err := b.Register(ctx, registrar.RegisterParams{Name: "example.com", Years: 1})
	require.NoError(t, err)
	require.False(t, res.Success)

	available, err = b.CheckAvailability(ctx, "example.com")
	require.NoError(t, err)
	require.False(t, available)
}

func TestBaseInfoCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := fake.New("acme")
	b := registrar.WrapBase(f, registrar.BaseOptions{CacheTTL: time.Minute})

	f.Seed("example.com", registrar.DomainInfo{
		Status:      "active",
		ExpiresAt:   time.Now().AddDate(1, 0, 0),
		Nameservers: []string{"ns1.old.com", "ns2.old.com"},
	})

	res, err := b.Info(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.old.com", "ns2.old.com"}, res.Info.Nameservers)
	require.Equal(t, "acme", res.Registrar)

	// mutate behind the base; the cached view wins until invalidated
	_, err = f.UpdateNameservers(ctx, "example.com", []string{"ns1.new.com", "ns2.new.com"})
	require.NoError(t, err)

	res, err = b.Info(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.old.com", "ns2.old.com"}, res.Info.Nameservers)

	_, err = b.UpdateNameservers(ctx, "example.com", []string{"ns1.new.com", "ns2.new.com"})
	require.NoError(t, err)

	res, err = b.Info(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.new.com", "ns2.new.com"}, res.Info.Nameservers)
}

func TestBaseInfoCacheHitIsolatesCallers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := fake.New("acme")
	b := registrar.WrapBase(f, registrar.BaseOptions{CacheTTL: time.Minute})

	f.Seed("example.com", registrar.DomainInfo{
		Status:      "active",
		Nameservers: []string{"ns1.old.com", "ns2.old.com"},
	})

	res, err := b.Info(ctx, "example.com")
	require.NoError(t, err)

	// one caller scribbling on its response must not leak to the next
	res.Info.Status = "mangled"
	res.Info.Nameservers[0] = "ns1.mangled.com"

	res, err = b.Info(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, "active", res.Info.Status)
	require.Equal(t, []string{"ns1.old.com", "ns2.old.com"}, res.Info.Nameservers)
}

func TestBaseRateLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := fake.New("acme")
	b := registrar.WrapBase(f, registrar.BaseOptions{RateLimit: 1, RateWindow: time.Minute})

	f.Seed("one.com", registrar.DomainInfo{Status: "active"})
	f.Seed("two.com", registrar.DomainInfo{Status: "active"})

	_, err := b.Info(ctx, "one.com")
	require.NoError(t, err)

	_, err = b.Info(ctx, "two.com")
	require.ErrorIs(t, err, serrors.ErrRateLimited)
	require.Greater(t, serrors.RetryAfter(err), time.Duration(0))

	// the budget is per operation, so a different call still goes through
	available, err := b.CheckAvailability(ctx, "three.com")
	require.NoError(t, err)
	require.True(t, available)
}

// noPrices hides the fake's optional price list capability.
type noPrices struct{ registrar.Client }

func TestBaseTLDPrices(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := fake.New("acme")
	f.SetPrices(domain.TLDPrice{TLD: "com", Action: domain.ActionRegister})

	b := registrar.WrapBase(f, registrar.BaseOptions{})
	res, err := b.TLDPrices(ctx)
	require.NoError(t, err)
	require.Len(t, res.Prices, 1)

	bare := registrar.WrapBase(noPrices{f}, registrar.BaseOptions{})
	_, err = bare.TLDPrices(ctx)
	require.ErrorIs(t, err, serrors.ErrOperationFailed)
}
