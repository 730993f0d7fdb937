package storage

import (
	"context"
	"encoding/json"
	"time"

	"reseller/pkg/domain"
)

// DomainUpdates describes a set of optional fields that can be applied to an
// existing domain during an update. Only non-nil fields will be updated.
type DomainUpdates struct {
	// Status is the new lifecycle state to set. Empty leaves it unchanged.
	Status domain.DomainStatus
	// ExpectStatus, when non-empty, guards the update: the row is only changed
	// if its current status equals this value. Callers use it to make lifecycle
	// transitions race-safe without holding a row lock across registrar calls.
	ExpectStatus domain.DomainStatus

	// ExpiresAt, when provided, replaces the stored expiry date.
	ExpiresAt *time.Time
	// AutoRenew, when provided, toggles the auto-renew flag.
	AutoRenew *bool
	// AuthCode, when provided, sets the transfer secret. An empty string value
	// indicates the secret should be cleared (set to NULL).
	AuthCode *string
	// Nameservers, when non-nil, replaces the delegation set.
	Nameservers []string

	// TransferInitiatedAt and TransferETA, when provided, record transfer
	// bookkeeping alongside a status change.
	TransferInitiatedAt *time.Time
	TransferETA         *time.Time
	// TransferMetadata, when non-nil, replaces the raw transfer payload.
	TransferMetadata json.RawMessage

	// LastSyncedAt, when provided, marks the reconciliation timestamp.
	LastSyncedAt *time.Time
	// LastSyncError, when provided, sets the last sync error text. An empty
	// string value indicates the error should be cleared (set to NULL).
	LastSyncError *string
	// SyncMetadata, when non-nil, replaces the raw registrar info payload.
	SyncMetadata json.RawMessage
}

// TenantDomains groups a page of domains returned for a tenant together with
// an optional NextCursor used for pagination.
type TenantDomains struct {
	// Domains contains the current page of domain records.
	Domains []domain.Domain
	// NextCursor points to the timestamp to be used as the cursor for fetching
	// the next page. It is nil when there is no next page.
	NextCursor *time.Time
}

// DomainStorage defines CRUD and query operations related to domains.
// Domains are never hard-deleted; the DELETED status is terminal.
type DomainStorage interface {
	// StoreDomain inserts a domain and returns the stored row as it exists in
	// the database (including generated fields).
	StoreDomain(ctx context.Context, d domain.Domain) (*domain.Domain, error)
	// DomainByID fetches a domain by its ID for the given tenant.
	// Returns nil when not found.
	DomainByID(ctx context.Context, tenantID domain.TenantID, ID domain.DomainID) (*domain.Domain, error)
	// DomainByName fetches a domain by its fully-qualified name across all
	// tenants. Returns nil when not found.
	DomainByName(ctx context.Context, name string) (*domain.Domain, error)
	// UpdateDomainByID updates a single domain identified by its ID and returns
	// the updated row. Only provided fields are changed and updated_at is set
	// automatically. When ExpectStatus is set and the row's current status
	// differs, nil is returned and nothing is changed.
	UpdateDomainByID(ctx context.Context, ID domain.DomainID, updates DomainUpdates) (*domain.Domain, error)
	// TenantDomains returns a page of domains for a tenant created before the
	// optional cursor time, limited by the given limit. If status is non-empty,
	// results are filtered to records with the given status.
	TenantDomains(ctx context.Context,
		tenantID domain.TenantID,
		status domain.DomainStatus,
		cursor time.Time,
		limit uint) (TenantDomains, error)
	// DomainsDueForSync returns up to limit domains of the given registrar that
	// have either never been synced or were last synced before staleBefore.
	// Results are ordered by nearest expiry first so the riskiest rows are
	// reconciled earliest. Deleted domains are excluded.
	DomainsDueForSync(ctx context.Context, registrar string, staleBefore time.Time, limit uint) ([]domain.Domain, error)
	// AutoRenewDue returns up to limit active domains with auto-renew enabled
	// that expire before the given time, ordered by nearest expiry first.
	AutoRenewDue(ctx context.Context, before time.Time, limit uint) ([]domain.Domain, error)
	// ActiveTransfers returns up to limit domains currently in a non-terminal
	// transfer state, ordered by transfer initiation time.
	ActiveTransfers(ctx context.Context, limit uint) ([]domain.Domain, error)
}
