package registrar

import (
	"context"
	"errors"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/logger"
	"reseller/pkg/metrics"
	"reseller/pkg/serrors"

	"go.uber.org/zap"
)

// BaseOptions configure the shared behavior wrapped around a concrete adapter.
type BaseOptions struct {
	// RateLimit is the per-operation call budget; <= 0 disables limiting.
	RateLimit int
	// RateWindow is the sliding window the budget applies to.
	RateWindow time.Duration
	// CacheTTL is how long idempotent reads are cached; <= 0 uses the default.
	CacheTTL time.Duration
	// MaxNameservers overrides the vendor's nameserver count bound.
	MaxNameservers int
	// DefaultNameservers are substituted when a registration supplies none.
	DefaultNameservers []string
}

// Base wraps a concrete adapter with the cross-cutting behavior shared by all
// vendors: per-operation rate limiting, call timing and logging with
// credential redaction, short-TTL caching of idempotent reads, and local
// parameter validation that fails before any network call. Base itself
// satisfies the Client contract so callers never handle raw adapters.
type Base struct {
	inner   Client
	limiter *RateLimiter
	cache   *Cache

	maxNameservers     int
	defaultNameservers []string
}

// WrapBase wraps the given adapter. The registry applies this to every
// instance it hands out.
func WrapBase(inner Client, opts BaseOptions) *Base {
	window := opts.RateWindow
	if window <= 0 {
		window = time.Minute
	}

	return &Base{
		inner:              inner,
		limiter:            NewRateLimiter(opts.RateLimit, window),
		cache:              NewCache(opts.CacheTTL),
		maxNameservers:     opts.MaxNameservers,
		defaultNameservers: append([]string(nil), opts.DefaultNameservers...),
	}
}

// Name returns the wrapped adapter's registrar slug.
func (b *Base) Name() string { return b.inner.Name() }

// outcome classifies a call result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, serrors.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}

// call runs one adapter operation with rate limiting, timing and logging.
// params must already be safe to build; they are redacted before logging.
func (b *Base) call(ctx context.Context,
	op, name string,
	params map[string]any,
	fn func(context.Context) (*Response, error)) (*Response, error) {
	reg := b.inner.Name()
	if err := b.limiter.Reserve(op); err != nil {
		metrics.RegistrarCalls.WithLabelValues(reg, op, outcome(err)).Inc()
		logger.Warn(ctx, "registrar call rate limited",
			zap.String("registrar", reg),
			zap.String("operation", op),
			zap.String("domain", name),
			zap.Duration("retryAfter", serrors.RetryAfter(err)))

		return nil, err
	}

	start := time.Now()
	res, err := fn(ctx)
	dur := time.Since(start)

	metrics.RegistrarCallDuration.WithLabelValues(reg, op).Observe(dur.Seconds())
	metrics.RegistrarCalls.WithLabelValues(reg, op, outcome(err)).Inc()

	fields := []zap.Field{
		zap.String("registrar", reg),
		zap.String("operation", op),
		zap.String("domain", name),
		zap.Duration("duration", dur),
		zap.Any("params", Redact(params)),
	}
	if err != nil {
		logger.Error(ctx, "registrar call failed", append(fields, zap.Error(err))...)

		return nil, err
	}
	logger.Debug(ctx, "registrar call finished", fields...)

	if res != nil {
		res.Registrar = reg
		if res.Timestamp.IsZero() {
			res.Timestamp = time.Now().UTC()
		}
	}

	return res, nil
}

// callBool is call for the operations that report a plain boolean.
func (b *Base) callBool(ctx context.Context,
	op, name string,
	params map[string]any,
	fn func(context.Context) (bool, error)) (bool, error) {
	res, err := b.call(ctx, op, name, params, func(ctx context.Context) (*Response, error) {
		ok, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		return &Response{Success: ok}, nil
	})
	if err != nil {
		return false, err
	}

	return res.Success, nil
}

// CheckAvailability validates the name, then answers from the read cache or
// the vendor. Results are cached for the configured TTL.
func (b *Base) CheckAvailability(ctx context.Context, name string) (bool, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return false, err
	}

	if v, ok := b.cache.Get("availability", name); ok {
		metrics.RegistrarCalls.WithLabelValues(b.Name(), "availability", "cache_hit").Inc()

		return v.(bool), nil
	}

	available, err := b.callBool(ctx, "availability", name, nil, func(ctx context.Context) (bool, error) {
		return b.inner.CheckAvailability(ctx, name)
	})
	if err != nil {
		return false, err
	}
	b.cache.Put("availability", name, available)

	return available, nil
}

// Register validates parameters locally, then registers the domain and
// invalidates cached reads for it. Registrations supplying no nameservers
// get the configured defaults.
func (b *Base) Register(ctx context.Context, params RegisterParams) (*Response, error) {
	name, err := NormalizeDomainName(params.Name)
	if err != nil {
		return nil, err
	}
	params.Name = name
	if err := ValidateYears(params.Years); err != nil {
		return nil, err
	}
	if len(params.Nameservers) == 0 {
		params.Nameservers = b.defaultNameservers
	}
	if len(params.Nameservers) > 0 {
		ns, err := NormalizeNameservers(params.Nameservers, b.maxNameservers)
		if err != nil {
			return nil, err
		}
		params.Nameservers = ns
	}

	res, err := b.call(ctx, "register", name, map[string]any{
		"years":       params.Years,
		"nameservers": params.Nameservers,
	}, func(ctx context.Context) (*Response, error) {
		return b.inner.Register(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateDomain(name)

	return res, nil
}

// Renew validates the term, renews the domain, and invalidates cached reads.
func (b *Base) Renew(ctx context.Context, name string, years int) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}
	if err := ValidateYears(years); err != nil {
		return nil, err
	}

	res, err := b.call(ctx, "renew", name, map[string]any{"years": years},
		func(ctx context.Context) (*Response, error) {
			return b.inner.Renew(ctx, name, years)
		})
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateDomain(name)

	return res, nil
}

// Transfer validates the auth code locally before initiating the transfer.
// The auth code is redacted from all logs.
func (b *Base) Transfer(ctx context.Context, name, authCode string) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}
	if err := ValidateAuthCode(authCode); err != nil {
		return nil, err
	}

	res, err := b.call(ctx, "transfer", name, map[string]any{"authCode": authCode},
		func(ctx context.Context) (*Response, error) {
			return b.inner.Transfer(ctx, name, authCode)
		})
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateDomain(name)

	return res, nil
}

// TransferStatus reports the normalized state of an in-flight transfer.
func (b *Base) TransferStatus(ctx context.Context, name string) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}

	return b.call(ctx, "transfer_status", name, nil, func(ctx context.Context) (*Response, error) {
		return b.inner.TransferStatus(ctx, name)
	})
}

// CancelTransfer cancels an in-flight transfer and invalidates cached reads.
func (b *Base) CancelTransfer(ctx context.Context, name string) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}

	res, err := b.call(ctx, "cancel_transfer", name, nil, func(ctx context.Context) (*Response, error) {
		return b.inner.CancelTransfer(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateDomain(name)

	return res, nil
}

// AuthCode fetches the transfer auth code. The code itself never reaches
// logs; only the envelope is instrumented.
func (b *Base) AuthCode(ctx context.Context, name string) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}

	return b.call(ctx, "auth_code", name, nil, func(ctx context.Context) (*Response, error) {
		return b.inner.AuthCode(ctx, name)
	})
}

// UpdateNameservers normalizes and bounds the list, updates the vendor, and
// invalidates cached reads for the domain.
func (b *Base) UpdateNameservers(ctx context.Context, name string, nameservers []string) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}
	ns, err := NormalizeNameservers(nameservers, b.maxNameservers)
	if err != nil {
		return nil, err
	}

	res, err := b.call(ctx, "update_nameservers", name, map[string]any{"nameservers": ns},
		func(ctx context.Context) (*Response, error) {
			return b.inner.UpdateNameservers(ctx, name, ns)
		})
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateDomain(name)

	return res, nil
}

// Contacts fetches the contacts attached to the domain.
func (b *Base) Contacts(ctx context.Context, name string) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}

	return b.call(ctx, "contacts", name, nil, func(ctx context.Context) (*Response, error) {
		return b.inner.Contacts(ctx, name)
	})
}

// UpdateContacts requires at least one contact, updates the vendor, and
// invalidates cached reads.
func (b *Base) UpdateContacts(ctx context.Context, name string, contacts []domain.Contact) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, serrors.With(serrors.ErrInvalidData, "at least one contact is required").
			WithDetail("contacts", "required")
	}

	res, err := b.call(ctx, "update_contacts", name, map[string]any{"count": len(contacts)},
		func(ctx context.Context) (*Response, error) {
			return b.inner.UpdateContacts(ctx, name, contacts)
		})
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateDomain(name)

	return res, nil
}

// DNSRecords fetches the resource records managed at the registrar.
func (b *Base) DNSRecords(ctx context.Context, name string) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}

	return b.call(ctx, "dns_records", name, nil, func(ctx context.Context) (*Response, error) {
		return b.inner.DNSRecords(ctx, name)
	})
}

// UpdateDNSRecords replaces the records at the vendor and invalidates cached
// reads for the domain.
func (b *Base) UpdateDNSRecords(ctx context.Context, name string, records []domain.DNSRecord) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Type == "" || r.Host == "" || r.Value == "" {
			return nil, serrors.With(serrors.ErrInvalidData, "dns records need type, host and value").
				WithDetail("records", "incomplete record")
		}
	}

	res, err := b.call(ctx, "update_dns_records", name, map[string]any{"count": len(records)},
		func(ctx context.Context) (*Response, error) {
			return b.inner.UpdateDNSRecords(ctx, name, records)
		})
	if err != nil {
		return nil, err
	}
	b.cache.InvalidateDomain(name)

	return res, nil
}

// Info fetches the registrar-reported state, served from the read cache when
// fresh.
func (b *Base) Info(ctx context.Context, name string) (*Response, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}

	if v, ok := b.cache.Get("info", name); ok {
		metrics.RegistrarCalls.WithLabelValues(b.Name(), "info", "cache_hit").Inc()

		return copyInfoResponse(v.(*Response)), nil
	}

	res, err := b.call(ctx, "info", name, nil, func(ctx context.Context) (*Response, error) {
		return b.inner.Info(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	// cache a snapshot; callers mutating their response must not poison it
	b.cache.Put("info", name, copyInfoResponse(res))

	return res, nil
}

// copyInfoResponse clones the parts of an info response that callers are
// likely to mutate.
func copyInfoResponse(res *Response) *Response {
	cp := *res
	if cp.Info != nil {
		info := *cp.Info
		info.Nameservers = append([]string(nil), info.Nameservers...)
		cp.Info = &info
	}

	return &cp
}

// SetLock toggles the registrar transfer lock and invalidates cached reads.
func (b *Base) SetLock(ctx context.Context, name string, locked bool) (bool, error) {
	name, err := NormalizeDomainName(name)
	if err != nil {
		return false, err
	}

	res, err := b.callBool(ctx, "set_lock", name, map[string]any{"locked": locked},
		func(ctx context.Context) (bool, error) {
			return b.inner.SetLock(ctx, name, locked)
		})
	if err != nil {
		return false, err
	}
	b.cache.InvalidateDomain(name)

	return res, nil
}

// TestConnection verifies credentials and connectivity.
func (b *Base) TestConnection(ctx context.Context) (bool, error) {
	return b.callBool(ctx, "test_connection", "", nil, func(ctx context.Context) (bool, error) {
		return b.inner.TestConnection(ctx)
	})
}

// TLDPrices exposes the wrapped adapter's price list when it supports one.
func (b *Base) TLDPrices(ctx context.Context) (*Response, error) {
	pl, ok := b.inner.(PriceLister)
	if !ok {
		return nil, serrors.With(serrors.ErrOperationFailed,
			"registrar %s does not expose pricing", b.Name())
	}

	return b.call(ctx, "tld_prices", "", nil, func(ctx context.Context) (*Response, error) {
		return pl.TLDPrices(ctx)
	})
}

// Ensure Base conforms to the Client interface at compile time.
var _ Client = (*Base)(nil)
