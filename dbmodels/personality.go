package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Personality is the integer-keyed persona entity from the previous
// schema revision. Kept read-only as a lookup fallback so existing
// links keep resolving; new personas are created as Agent rows.
type Personality struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Tone          string          `gorm:"type:varchar(255)" json:"tone,omitempty"`
	Traits        datatypes.JSON  `gorm:"type:json" json:"traits,omitempty"`
	SystemPrompt  string          `gorm:"type:text" json:"systemPrompt,omitempty"`
	Role          AgentRole       `gorm:"type:varchar(16);default:'free'" json:"role"`
	PriceAmount   decimal.Decimal `gorm:"type:decimal(20,2)" json:"priceAmount"`
	PriceCurrency Currency        `gorm:"type:varchar(8)" json:"priceCurrency,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (Personality) TableName() string {
	return "personalities"
}
