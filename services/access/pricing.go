package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	models "github.com/maarifa-ai/maarifa/dbmodels"
)

var ErrAgentNotFound = errors.New("agent not found")

// Pricing is the resolved price view of an agent, derived from the
// Agent or legacy Personality row rather than persisted separately.
type Pricing struct {
	AgentID  models.AgentID
	Name     string
	Role     models.AgentRole
	Amount   decimal.Decimal
	Currency models.Currency
}

func (p *Pricing) Paid() bool {
	return p != nil && p.Role == models.RolePaid && p.Amount.IsPositive()
}

func (p *Pricing) Formatted() string {
	return fmt.Sprintf("%s %s", p.Amount.StringFixed(2), p.Currency)
}

type PricingResolver interface {
	Resolve(ctx context.Context, agent models.AgentID) (*Pricing, error)
}

// GormPricingResolver reads pricing off the persona tables. The tagged
// identifier decides which table to hit; the string shape is never
// re-inspected here.
type GormPricingResolver struct {
	db *gorm.DB
}

func NewGormPricingResolver(db *gorm.DB) *GormPricingResolver {
	return &GormPricingResolver{db: db}
}

func (r *GormPricingResolver) Resolve(ctx context.Context, agent models.AgentID) (*Pricing, error) {
	switch agent.Kind {
	case models.AgentKindLegacy:
		var p models.Personality
		err := r.db.WithContext(ctx).First(&p, agent.Legacy).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		if err != nil {
			return nil, err
		}
		return &Pricing{
			AgentID:  agent,
			Name:     p.Name,
			Role:     p.Role,
			Amount:   p.PriceAmount,
			Currency: p.PriceCurrency,
		}, nil
	default:
		var a models.Agent
		err := r.db.WithContext(ctx).Where("id = ?", agent.UUID).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		if err != nil {
			return nil, err
		}
		return &Pricing{
			AgentID:  agent,
			Name:     a.Name,
			Role:     a.Role,
			Amount:   a.PriceAmount,
			Currency: a.PriceCurrency,
		}, nil
	}
}
