// Package access decides whether a user may talk to an agent by
// combining pricing lookup with payment record state.
package access

import (
	"context"
	"errors"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

type DecisionKind string

const (
	// Granted means a successful payment exists for the pair.
	Granted DecisionKind = "granted"
	// GrantedFree means the agent is free or has no pricing at all.
	GrantedFree DecisionKind = "granted_free"
	// PaymentRequired means the agent is paid and no successful
	// payment exists.
	PaymentRequired DecisionKind = "payment_required"
	// AllowDegraded means an infrastructure fault prevented the check
	// and the gate failed open. This is a deliberate availability-over-
	// strictness tradeoff: a transient data-layer error must not lock
	// users out of agents they may have paid for. Paid content can leak
	// during an outage; the cause is logged and carried in the decision
	// so the risk stays visible.
	AllowDegraded DecisionKind = "allow_degraded"
)

type Decision struct {
	Kind    DecisionKind
	Pricing *Pricing
	// Cause is set only for AllowDegraded.
	Cause error
}

func (d Decision) Allowed() bool {
	return d.Kind != PaymentRequired
}

func (d Decision) RequiresPayment() bool {
	return d.Kind == PaymentRequired || d.Kind == Granted
}

// PaymentChecker is the narrow slice of the payment store the gate
// needs.
type PaymentChecker interface {
	HasSuccessfulPayment(ctx context.Context, userID string, agent models.AgentID) (bool, error)
}

type Checker struct {
	pricing  PricingResolver
	payments PaymentChecker
}

func NewChecker(pricing PricingResolver, payments PaymentChecker) *Checker {
	return &Checker{pricing: pricing, payments: payments}
}

func (c *Checker) Check(ctx context.Context, userID string, agent models.AgentID) Decision {
	pricing, err := c.pricing.Resolve(ctx, agent)
	if errors.Is(err, ErrAgentNotFound) {
		return Decision{Kind: GrantedFree}
	}
	if err != nil {
		xlog.Error("Access check failed open: pricing lookup error", "agent", agent.String(), "error", err)
		return Decision{Kind: AllowDegraded, Cause: err}
	}

	if !pricing.Paid() {
		return Decision{Kind: GrantedFree, Pricing: pricing}
	}

	paid, err := c.payments.HasSuccessfulPayment(ctx, userID, agent)
	if err != nil {
		xlog.Error("Access check failed open: payment lookup error", "agent", agent.String(), "user", userID, "error", err)
		return Decision{Kind: AllowDegraded, Pricing: pricing, Cause: err}
	}
	if paid {
		return Decision{Kind: Granted, Pricing: pricing}
	}
	return Decision{Kind: PaymentRequired, Pricing: pricing}
}
