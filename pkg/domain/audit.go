package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntryID uniquely identifies an audit log entry.
type AuditEntryID uuid.UUID

// AuditAction names the state change an audit entry records.
type AuditAction string

const (
	AuditDomainRegistered      AuditAction = "DOMAIN_REGISTERED"
	AuditDomainRenewed         AuditAction = "DOMAIN_RENEWED"
	AuditRegistrationFailed    AuditAction = "REGISTRATION_FAILED"
	AuditRenewalFailed         AuditAction = "RENEWAL_FAILED"
	AuditTransferInitiated     AuditAction = "TRANSFER_INITIATED"
	AuditTransferStatusChanged AuditAction = "TRANSFER_STATUS_CHANGED"
	AuditTransferCancelled     AuditAction = "TRANSFER_CANCELLED"
	AuditTransferFailed        AuditAction = "TRANSFER_FAILED"
	AuditNameserversUpdated    AuditAction = "NAMESERVERS_UPDATED"
	AuditDNSRecordsUpdated     AuditAction = "DNS_RECORDS_UPDATED"
	AuditContactsUpdated       AuditAction = "CONTACTS_UPDATED"
	AuditSyncDriftRepaired     AuditAction = "SYNC_DRIFT_REPAIRED"
	AuditTLDPriceChanged       AuditAction = "TLD_PRICE_CHANGED"
)

// AuditEntry is an immutable, append-only record of one state-changing
// action, with old/new value pairs for the changed field.
type AuditEntry struct {
	ID       AuditEntryID `json:"id"`
	TenantID TenantID     `json:"tenantId,omitzero"`

	Action AuditAction `json:"action"`
	// Entity is the kind of record that changed, e.g. "domain", "invoice".
	Entity string `json:"entity"`
	// EntityID identifies the changed record, usually a domain ID.
	EntityID string `json:"entityId"`

	// Field is the changed attribute for drift/update entries; empty for
	// creation events.
	Field    string `json:"field,omitempty"`
	OldValue string `json:"oldValue,omitempty"`
	NewValue string `json:"newValue,omitempty"`

	// Actor identifies who or what made the change.
	Actor string `json:"actor"`

	CreatedAt time.Time `json:"createdAt"`
}
