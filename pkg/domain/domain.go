package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DomainID uniquely identifies a registered domain.
// It wraps uuid.UUID to provide type safety at the domain layer.
type DomainID uuid.UUID

// TenantID uniquely identifies the tenant that owns a domain or wallet.
type TenantID uuid.UUID

// DomainStatus represents the lifecycle state of a domain.
type DomainStatus string

const (
	// DomainStatusPendingRegistration indicates the registrar accepted the
	// registration but has not confirmed it active yet.
	DomainStatusPendingRegistration DomainStatus = "PENDING_REGISTRATION"
	// DomainStatusActive indicates the domain is registered and resolvable.
	DomainStatusActive DomainStatus = "ACTIVE"
	// DomainStatusExpired indicates the domain passed its expiry date.
	DomainStatusExpired DomainStatus = "EXPIRED"
	// DomainStatusPendingTransfer indicates a transfer-in has been initiated.
	DomainStatusPendingTransfer DomainStatus = "PENDING_TRANSFER"
	// DomainStatusTransferInProgress indicates the losing registrar has been contacted.
	DomainStatusTransferInProgress DomainStatus = "TRANSFER_IN_PROGRESS"
	// DomainStatusTransferApproved indicates the transfer was approved and is finalizing.
	DomainStatusTransferApproved DomainStatus = "TRANSFER_APPROVED"
	// DomainStatusTransferCompleted indicates the transfer finished and this side now owns the domain.
	DomainStatusTransferCompleted DomainStatus = "TRANSFER_COMPLETED"
	// DomainStatusTransferFailed indicates the transfer was rejected or timed out.
	DomainStatusTransferFailed DomainStatus = "TRANSFER_FAILED"
	// DomainStatusTransferCancelled indicates the tenant cancelled the transfer within the allowed window.
	DomainStatusTransferCancelled DomainStatus = "TRANSFER_CANCELLED"
	// DomainStatusDeleted is the terminal state; rows are never hard-deleted.
	DomainStatusDeleted DomainStatus = "DELETED"
)

// transferProgression orders the transfer sub-lifecycle so that polling can
// only ever move a domain forward, never back to an earlier stage.
var transferProgression = map[DomainStatus]int{ //nolint: gochecknoglobals
	DomainStatusPendingTransfer:    1,
	DomainStatusTransferInProgress: 2,
	DomainStatusTransferApproved:   3,
	DomainStatusTransferCompleted:  4,
	DomainStatusTransferFailed:     4,
	DomainStatusTransferCancelled:  4,
}

// IsTransferState reports whether s belongs to the transfer sub-lifecycle.
func (s DomainStatus) IsTransferState() bool {
	_, ok := transferProgression[s]

	return ok
}

// IsTerminalTransferState reports whether s is a terminal transfer outcome.
func (s DomainStatus) IsTerminalTransferState() bool {
	switch s {
	case DomainStatusTransferCompleted, DomainStatusTransferFailed, DomainStatusTransferCancelled:
		return true
	default:
		return false
	}
}

// TransferAdvances reports whether moving from s to next is a forward step in
// the transfer sub-lifecycle. Polling uses it so a vendor status can only
// ever move a domain forward, never back to an earlier stage.
func (s DomainStatus) TransferAdvances(next DomainStatus) bool {
	cur, ok := transferProgression[s]
	if !ok {
		return false
	}
	nxt, ok := transferProgression[next]
	if !ok {
		return false
	}

	return nxt > cur
}

// CanCancelTransfer reports whether a transfer in state s may still be cancelled.
func (s DomainStatus) CanCancelTransfer() bool {
	switch s {
	case DomainStatusPendingTransfer, DomainStatusTransferInProgress:
		return true
	default:
		return false
	}
}

// Domain represents a single domain name owned by a tenant and managed
// through one registrar backend.
type Domain struct {
	// ID is the unique identifier of the domain row.
	ID DomainID `json:"id"`
	// TenantID is the tenant that owns the domain.
	TenantID TenantID `json:"tenantId"`

	// Name is the fully-qualified domain name, lowercased.
	Name string `json:"name"`
	// Status is the current lifecycle state.
	Status DomainStatus `json:"status"`
	// Registrar is the slug of the backend that owns this domain.
	// Exactly one registrar owns a domain at a time.
	Registrar string `json:"registrar"`

	// ExpiresAt is the registrar-reported expiry date.
	ExpiresAt time.Time `json:"expiresAt"`
	// AutoRenew marks the domain for the automatic renewal sweep.
	AutoRenew bool `json:"autoRenew"`

	// AuthCode is the transfer secret. It is cleared when a transfer-in
	// completes and must never be logged.
	AuthCode string `json:"-"`
	// TransferInitiatedAt is set when a transfer-in starts; the cancellation
	// window is measured from it.
	TransferInitiatedAt time.Time `json:"transferInitiatedAt,omitzero"`
	// TransferETA is the estimated completion time reported at initiation.
	TransferETA time.Time `json:"transferEta,omitzero"`

	// LastSyncedAt is when reconciliation last compared this domain against
	// registrar-reported state. Zero means never synced.
	LastSyncedAt time.Time `json:"lastSyncedAt,omitzero"`
	// LastSyncError holds the most recent reconciliation failure, if any.
	LastSyncError string `json:"-"`
	// SyncMetadata is the raw registrar info payload kept for forensic replay.
	SyncMetadata json.RawMessage `json:"-"`
	// TransferMetadata is the raw transfer payload kept for forensic replay.
	TransferMetadata json.RawMessage `json:"-"`

	// Nameservers are the delegated nameservers in submission order.
	Nameservers []string `json:"nameservers"`

	// CreatedAt is when the row was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is when the row last changed.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Contact is a registrant/admin/tech/billing contact attached to a domain.
type Contact struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
}

// DNSRecord is one resource record managed through the registrar's DNS API.
type DNSRecord struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Value    string `json:"value"`
	TTL      int    `json:"ttl"`
	Priority int    `json:"priority,omitempty"`
}

// TLD extracts the top-level domain (without the leading dot) from a
// fully-qualified name. It returns an empty string when name has no dot.
func TLD(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}

	return ""
}
