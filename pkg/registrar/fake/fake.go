// Package fake provides a deterministic in-memory registrar.Client used by
// tests and by registrars configured in test mode. Behavior is scripted:
// availability, transfer status sequences and one-shot failures are all set
// up front, so orchestration tests never depend on a network.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/registrar"
	"reseller/pkg/serrors"
)

// state is the fake's view of one registered domain.
type state struct {
	info     registrar.DomainInfo
	contacts []domain.Contact
	records  []domain.DNSRecord
	authCode string

	transferScript []domain.DomainStatus
	transferIdx    int
}

// Registrar is a deterministic in-memory registrar backend. Safe for
// concurrent use.
type Registrar struct {
	mu   sync.Mutex
	name string

	unavailable map[string]bool
	domains     map[string]*state
	failNext    map[string]error
	prices      []domain.TLDPrice
	orderSeq    int

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// New creates a fake registrar with the given slug.
func New(name string) *Registrar {
	return &Registrar{
		name:        name,
		unavailable: make(map[string]bool),
		domains:     make(map[string]*state),
		failNext:    make(map[string]error),
		Now:         time.Now,
	}
}

// NewFromConfig is the registry constructor for the "fake" driver.
func NewFromConfig(cfg registrar.Config) (registrar.Client, error) {
	return New(cfg.Slug), nil
}

// Name returns the registrar slug.
func (f *Registrar) Name() string { return f.name }

// SetUnavailable marks a name as taken for availability checks.
func (f *Registrar) SetUnavailable(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable[name] = true
}

// Seed installs registrar-side state for a domain, as if it had been
// registered earlier.
func (f *Registrar) Seed(name string, info registrar.DomainInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains[name] = &state{info: info, authCode: "SEEDED-AUTH"}
}

// FailNext injects an error returned by the next call to the named
// operation ("register", "renew", "transfer", "info", ...).
func (f *Registrar) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext[op] = err
}

// ScriptTransfer sets the sequence of statuses TransferStatus will report
// for a domain; the last status repeats once the script is exhausted.
func (f *Registrar) ScriptTransfer(name string, statuses ...domain.DomainStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.domains[name]
	if st == nil {
		st = &state{}
		f.domains[name] = st
	}
	st.transferScript = statuses
	st.transferIdx = 0
}

// SetPrices installs the price list returned by TLDPrices.
func (f *Registrar) SetPrices(prices ...domain.TLDPrice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = prices
}

// takeFailure pops an injected failure for the operation, if any.
func (f *Registrar) takeFailure(op string) error {
	if err := f.failNext[op]; err != nil {
		delete(f.failNext, op)

		return err
	}

	return nil
}

func (f *Registrar) nextOrderID() string {
	f.orderSeq++

	return fmt.Sprintf("%s-order-%d", f.name, f.orderSeq)
}

// Response alias keeps signatures short inside this package.
type Response = registrar.Response

func (f *Registrar) respond(r *Response) *Response {
	r.Registrar = f.name
	r.Timestamp = f.Now().UTC()
	if r.Raw == nil {
		raw, _ := json.Marshal(map[string]any{"fake": true, "success": r.Success})
		r.Raw = raw
	}

	return r
}

// CheckAvailability reports a name as available unless it was marked
// unavailable or already registered here.
func (f *Registrar) CheckAvailability(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("availability"); err != nil {
		return false, err
	}
	if f.unavailable[name] {
		return false, nil
	}
	_, taken := f.domains[name]

	return !taken, nil
}

// Register records the domain with an expiry of now plus the term.
func (f *Registrar) Register(_ context.Context, params registrar.RegisterParams) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("register"); err != nil {
		return nil, err
	}
	if f.unavailable[params.Name] {
		return f.respond(&Response{
			Success: false,
			Message: "domain is not available",
			Errors:  []string{"domain is not available"},
		}), nil
	}
	if _, taken := f.domains[params.Name]; taken {
		return nil, serrors.With(serrors.ErrOperationFailed, "domain %s already registered", params.Name)
	}

	now := f.Now().UTC()
	f.domains[params.Name] = &state{
		info: registrar.DomainInfo{
			Status:      "active",
			CreatedAt:   now,
			ExpiresAt:   now.AddDate(params.Years, 0, 0),
			Nameservers: params.Nameservers,
			Locked:      true,
		},
		contacts: params.Contacts,
		authCode: "AUTH-" + params.Name,
	}

	return f.respond(&Response{Success: true, OrderID: f.nextOrderID()}), nil
}

// Renew extends the stored expiry by the term.
func (f *Registrar) Renew(_ context.Context, name string, years int) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("renew"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		return nil, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}
	st.info.ExpiresAt = st.info.ExpiresAt.AddDate(years, 0, 0)

	return f.respond(&Response{Success: true, OrderID: f.nextOrderID()}), nil
}

// Transfer starts a scripted transfer; the status sequence is consumed by
// TransferStatus.
func (f *Registrar) Transfer(_ context.Context, name, authCode string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("transfer"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		st = &state{}
		f.domains[name] = st
	}
	st.authCode = authCode
	if len(st.transferScript) == 0 {
		st.transferScript = []domain.DomainStatus{
			domain.DomainStatusTransferInProgress,
			domain.DomainStatusTransferCompleted,
		}
	}

	return f.respond(&Response{
		Success: true,
		OrderID: f.nextOrderID(),
		Transfer: &registrar.TransferDetail{
			Status:       domain.DomainStatusPendingTransfer,
			VendorStatus: "pending",
			ETA:          f.Now().UTC().Add(5 * 24 * time.Hour),
		},
	}), nil
}

// TransferStatus pops the next scripted status; the final one repeats.
func (f *Registrar) TransferStatus(_ context.Context, name string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("transfer_status"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil || len(st.transferScript) == 0 {
		return nil, serrors.With(serrors.ErrDomainNotFound, "no transfer for domain %s", name)
	}

	status := st.transferScript[st.transferIdx]
	if st.transferIdx < len(st.transferScript)-1 {
		st.transferIdx++
	}
	if status == domain.DomainStatusTransferCompleted {
		now := f.Now().UTC()
		st.info.CreatedAt = now
		st.info.ExpiresAt = now.AddDate(1, 0, 0)
		st.info.Status = "active"
	}

	return f.respond(&Response{
		Success: true,
		Transfer: &registrar.TransferDetail{
			Status:       status,
			VendorStatus: string(status),
		},
	}), nil
}

// CancelTransfer succeeds while the scripted transfer has not completed.
func (f *Registrar) CancelTransfer(_ context.Context, name string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("cancel_transfer"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil || len(st.transferScript) == 0 {
		return nil, serrors.With(serrors.ErrDomainNotFound, "no transfer for domain %s", name)
	}
	if st.transferScript[st.transferIdx].IsTerminalTransferState() {
		return f.respond(&Response{
			Success: false,
			Message: "transfer already finished",
			Errors:  []string{"transfer already finished"},
		}), nil
	}
	st.transferScript = []domain.DomainStatus{domain.DomainStatusTransferCancelled}
	st.transferIdx = 0

	return f.respond(&Response{Success: true, OrderID: f.nextOrderID()}), nil
}

// AuthCode returns the stored transfer secret.
func (f *Registrar) AuthCode(_ context.Context, name string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("auth_code"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		return nil, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}

	return f.respond(&Response{Success: true, AuthCode: st.authCode}), nil
}

// UpdateNameservers replaces the stored delegation set.
func (f *Registrar) UpdateNameservers(_ context.Context, name string, nameservers []string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("update_nameservers"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		return nil, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}
	st.info.Nameservers = append([]string(nil), nameservers...)

	return f.respond(&Response{Success: true}), nil
}

// Contacts returns the stored contacts.
func (f *Registrar) Contacts(_ context.Context, name string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("contacts"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		return nil, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}

	return f.respond(&Response{Success: true, Contacts: append([]domain.Contact(nil), st.contacts...)}), nil
}

// UpdateContacts replaces the stored contacts.
func (f *Registrar) UpdateContacts(_ context.Context, name string, contacts []domain.Contact) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("update_contacts"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		return nil, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}
	st.contacts = append([]domain.Contact(nil), contacts...)

	return f.respond(&Response{Success: true}), nil
}

// DNSRecords returns the stored records.
func (f *Registrar) DNSRecords(_ context.Context, name string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("dns_records"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		return nil, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}

	return f.respond(&Response{Success: true, Records: append([]domain.DNSRecord(nil), st.records...)}), nil
}

// UpdateDNSRecords replaces the stored records.
func (f *Registrar) UpdateDNSRecords(_ context.Context, name string, records []domain.DNSRecord) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("update_dns_records"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		return nil, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}
	st.records = append([]domain.DNSRecord(nil), records...)

	return f.respond(&Response{Success: true}), nil
}

// Info returns the stored registrar-side view of the domain.
func (f *Registrar) Info(_ context.Context, name string) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("info"); err != nil {
		return nil, err
	}
	st := f.domains[name]
	if st == nil {
		return nil, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}
	info := st.info
	info.Nameservers = append([]string(nil), st.info.Nameservers...)

	return f.respond(&Response{Success: true, Info: &info}), nil
}

// SetLock toggles the stored lock flag.
func (f *Registrar) SetLock(_ context.Context, name string, locked bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("set_lock"); err != nil {
		return false, err
	}
	st := f.domains[name]
	if st == nil {
		return false, serrors.With(serrors.ErrDomainNotFound, "domain %s not found", name)
	}
	st.info.Locked = locked

	return locked, nil
}

// TestConnection always succeeds unless a failure was injected.
func (f *Registrar) TestConnection(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("test_connection"); err != nil {
		return false, err
	}

	return true, nil
}

// TLDPrices returns the configured price list.
func (f *Registrar) TLDPrices(_ context.Context) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("tld_prices"); err != nil {
		return nil, err
	}

	return f.respond(&Response{Success: true, Prices: append([]domain.TLDPrice(nil), f.prices...)}), nil
}

// Ensure Registrar conforms to the contract at compile time.
var (
	_ registrar.Client      = (*Registrar)(nil)
	_ registrar.PriceLister = (*Registrar)(nil)
)
