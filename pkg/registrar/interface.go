// Package registrar defines the capability contract every registrar backend
// must satisfy, the normalized response envelope, and the shared cross-cutting
// behavior (rate limiting, instrumentation, caching, validation, redaction)
// wrapped around every concrete adapter.
package registrar

import (
	"context"
	"encoding/json"
	"time"

	"reseller/pkg/domain"
)

// DomainInfo is the normalized registrar-reported view of one domain.
type DomainInfo struct {
	// Status is the registrar-reported status, normalized to this side's
	// vocabulary where possible; unknown statuses pass through verbatim.
	Status string `json:"status"`
	// CreatedAt is the registration date at the registrar.
	CreatedAt time.Time `json:"createdAt"`
	// ExpiresAt is the registrar-reported expiry.
	ExpiresAt time.Time `json:"expiresAt"`
	// Nameservers are the delegated nameservers in registrar order.
	Nameservers []string `json:"nameservers"`
	// Locked reports the registrar transfer lock.
	Locked bool `json:"locked"`
}

// TransferDetail is the normalized view of an in-flight transfer.
type TransferDetail struct {
	// Status is the vendor status mapped into the fixed transfer vocabulary.
	// It is empty when the vendor status was not recognized; callers must
	// leave local state unchanged in that case.
	Status domain.DomainStatus `json:"status"`
	// VendorStatus is the raw vendor status string, kept for diagnosis.
	VendorStatus string `json:"vendorStatus"`
	// ETA is the vendor-estimated completion time, when reported.
	ETA time.Time `json:"eta,omitzero"`
}

// Response is the normalized envelope every adapter operation returns, so
// orchestrators never branch on vendor-specific shapes. Exactly the payload
// fields relevant to the operation are populated.
type Response struct {
	// Success reports whether the vendor acknowledged the operation.
	Success bool `json:"success"`
	// Message is a human-readable vendor message, when any.
	Message string `json:"message,omitempty"`
	// Errors lists vendor-reported error strings.
	Errors []string `json:"errors,omitempty"`

	// OrderID is the vendor order/transfer identifier for mutating
	// operations. Callers use it to detect "already applied" on retry.
	OrderID string `json:"orderId,omitempty"`

	// Payload fields, populated per operation.
	Info     *DomainInfo      `json:"info,omitempty"`
	Transfer *TransferDetail  `json:"transfer,omitempty"`
	AuthCode string           `json:"-"`
	Contacts []domain.Contact `json:"contacts,omitempty"`
	Records  []domain.DNSRecord `json:"records,omitempty"`
	Prices   []domain.TLDPrice  `json:"prices,omitempty"`

	// Raw is the raw vendor response, preserved for forensic logging only,
	// never for control flow.
	Raw json.RawMessage `json:"-"`
	// Registrar is the slug of the backend that produced this response.
	Registrar string `json:"registrar"`
	// Timestamp is when the response was produced.
	Timestamp time.Time `json:"timestamp"`
}

// RegisterParams are the inputs for registering a new domain.
type RegisterParams struct {
	// Name is the fully-qualified domain name.
	Name string
	// Years is the registration term, 1 to 10.
	Years int
	// Nameservers to delegate to; validated and normalized before any call.
	Nameservers []string
	// Contacts to attach; at minimum a registrant.
	Contacts []domain.Contact
}

// Client is the capability contract every registrar backend satisfies.
// Implementations translate vendor wire formats into the normalized Response
// and classify vendor errors into the serrors taxonomy. Mutating operations
// either retry safely or surface an OrderID so callers can detect
// "already applied".
type Client interface {
	// Name returns the registrar slug this client serves.
	Name() string

	// CheckAvailability reports whether the domain can be registered.
	CheckAvailability(ctx context.Context, name string) (bool, error)
	// Register registers a new domain.
	Register(ctx context.Context, params RegisterParams) (*Response, error)
	// Renew extends the registration by the given number of years.
	Renew(ctx context.Context, name string, years int) (*Response, error)

	// Transfer initiates a transfer-in using the losing registrar's auth code.
	Transfer(ctx context.Context, name, authCode string) (*Response, error)
	// TransferStatus reports the current state of an in-flight transfer.
	TransferStatus(ctx context.Context, name string) (*Response, error)
	// CancelTransfer cancels an in-flight transfer.
	CancelTransfer(ctx context.Context, name string) (*Response, error)
	// AuthCode fetches the transfer auth code for a domain we manage.
	AuthCode(ctx context.Context, name string) (*Response, error)

	// UpdateNameservers replaces the delegated nameserver set.
	UpdateNameservers(ctx context.Context, name string, nameservers []string) (*Response, error)
	// Contacts fetches the contacts attached to the domain.
	Contacts(ctx context.Context, name string) (*Response, error)
	// UpdateContacts replaces the contacts attached to the domain.
	UpdateContacts(ctx context.Context, name string, contacts []domain.Contact) (*Response, error)
	// DNSRecords fetches the resource records managed at the registrar.
	DNSRecords(ctx context.Context, name string) (*Response, error)
	// UpdateDNSRecords replaces the resource records managed at the registrar.
	UpdateDNSRecords(ctx context.Context, name string, records []domain.DNSRecord) (*Response, error)

	// Info fetches the registrar-reported state of the domain.
	Info(ctx context.Context, name string) (*Response, error)
	// SetLock enables or disables the registrar transfer lock and reports
	// the resulting lock state.
	SetLock(ctx context.Context, name string, locked bool) (bool, error)

	// TestConnection verifies credentials and connectivity.
	TestConnection(ctx context.Context) (bool, error)
}

// PriceLister is the optional capability for registrars that expose TLD
// price lists. The reconciliation engine type-asserts for it.
type PriceLister interface {
	// TLDPrices returns the vendor's current per-TLD price list.
	TLDPrices(ctx context.Context) (*Response, error)
}

// MapTransferStatus maps a raw vendor transfer status through the adapter's
// vocabulary table. The boolean is false for unrecognized statuses; callers
// must then leave local state unchanged, never default to completed.
func MapTransferStatus(table map[string]domain.DomainStatus, vendor string) (domain.DomainStatus, bool) {
	s, ok := table[vendor]

	return s, ok
}
