package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AgentRole string

const (
	RoleFree AgentRole = "free"
	RolePaid AgentRole = "paid"
)

// Agent is a configured persona users converse with. Paid agents carry
// a price and are gated by the payment flow.
type Agent struct {
	ID            uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Tone          string          `gorm:"type:varchar(255)" json:"tone,omitempty"`
	Traits        datatypes.JSON  `gorm:"type:json" json:"traits,omitempty"`
	SystemPrompt  string          `gorm:"type:text" json:"systemPrompt,omitempty"`
	Role          AgentRole       `gorm:"type:varchar(16);not null;default:'free'" json:"role"`
	PriceAmount   decimal.Decimal `gorm:"type:decimal(20,2)" json:"priceAmount"`
	PriceCurrency Currency        `gorm:"type:varchar(8)" json:"priceCurrency,omitempty"`
	Archive       bool            `gorm:"type:boolean;default:false;not null" json:"archive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (a *Agent) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
