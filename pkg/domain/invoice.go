package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceID uniquely identifies an invoice.
type InvoiceID uuid.UUID

// InvoiceStatus is the lifecycle state of an invoice. An invoice's terminal
// status must always match whether its wallet debit was retained or reversed.
type InvoiceStatus string

const (
	// InvoiceStatusDraft is the non-final status an invoice is created in.
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	// InvoiceStatusPaid means the wallet debit was retained.
	InvoiceStatusPaid InvoiceStatus = "PAID"
	// InvoiceStatusFailed means the registrar call failed and the debit was reversed.
	InvoiceStatusFailed InvoiceStatus = "FAILED"
	// InvoiceStatusRefunded means a previously paid invoice was refunded.
	InvoiceStatusRefunded InvoiceStatus = "REFUNDED"
)

// InvoiceAction names the domain action an invoice pays for.
type InvoiceAction string

const (
	ActionRegister InvoiceAction = "REGISTER"
	ActionRenew    InvoiceAction = "RENEW"
	ActionTransfer InvoiceAction = "TRANSFER"
)

// Invoice is the financial record of one domain action.
type Invoice struct {
	ID       InvoiceID `json:"id"`
	TenantID TenantID  `json:"tenantId"`

	Status InvoiceStatus   `json:"status"`
	Action InvoiceAction   `json:"action"`
	Total  decimal.Decimal `json:"total"`

	// DomainName is recorded at creation; DomainID is linked once the
	// domain row exists (registration creates the row after payment).
	DomainName string   `json:"domainName"`
	DomainID   DomainID `json:"domainId,omitzero"`
	// Years is the number of registration/renewal years purchased.
	Years int `json:"years"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
