package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyLBP Currency = "LBP"
	CurrencyAED Currency = "AED"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyLBP, CurrencyAED:
		return true
	}
	return false
}

// PaymentRecord is the single source of truth for agent access
// decisions. Rows are never deleted; they are the financial audit
// trail. Amount and Currency are immutable after creation, status
// moves pending -> success|failed, and success -> refunded only.
type PaymentRecord struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     string          `gorm:"type:varchar(255);index:idx_payment_user_agent;not null" json:"userId"`
	AgentKind  AgentKind       `gorm:"type:varchar(16);not null" json:"agentKind"`
	AgentRef   string          `gorm:"type:varchar(255);index:idx_payment_user_agent;not null" json:"agentRef"`
	ExternalID *string         `gorm:"type:varchar(64);uniqueIndex" json:"externalId,omitempty"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency   Currency        `gorm:"type:varchar(8);not null" json:"currency"`
	CollectURL string          `gorm:"type:text" json:"collectUrl,omitempty"`
	Status     PaymentStatus   `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	PayerPhone string          `gorm:"type:varchar(32)" json:"payerPhone,omitempty"`
	Metadata   datatypes.JSON  `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	PaidAt     *time.Time      `gorm:"index" json:"paidAt,omitempty"`
}

func (PaymentRecord) TableName() string {
	return "payment_records"
}

// External returns the gateway correlation id, or "" while the record
// has not been through the gateway round trip yet. The column stays
// NULL until then so unassigned rows never collide on the unique index.
func (p *PaymentRecord) External() string {
	if p.ExternalID == nil {
		return ""
	}
	return *p.ExternalID
}

func (p *PaymentRecord) AgentID() AgentID {
	id, _ := ParseAgentID(p.AgentRef)
	id.Kind = p.AgentKind
	return id
}
