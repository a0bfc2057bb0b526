package access_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/services/access"
)

type fakePricing struct {
	pricing *access.Pricing
	err     error
}

func (f *fakePricing) Resolve(ctx context.Context, agent models.AgentID) (*access.Pricing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pricing, nil
}

type fakePayments struct {
	paid bool
	err  error
}

func (f *fakePayments) HasSuccessfulPayment(ctx context.Context, userID string, agent models.AgentID) (bool, error) {
	return f.paid, f.err
}

var _ = Describe("Checker", func() {
	var (
		pricing  *fakePricing
		payments *fakePayments
		checker  *access.Checker
		agent    models.AgentID
		ctx      context.Context
	)

	paidPricing := func() *access.Pricing {
		return &access.Pricing{
			Name:     "Coach",
			Role:     models.RolePaid,
			Amount:   decimal.NewFromInt(5),
			Currency: models.CurrencyUSD,
		}
	}

	BeforeEach(func() {
		pricing = &fakePricing{}
		payments = &fakePayments{}
		checker = access.NewChecker(pricing, payments)
		agent, _ = models.ParseAgentID("42")
		ctx = context.Background()
	})

	It("grants access when no pricing record exists", func() {
		pricing.err = access.ErrAgentNotFound
		decision := checker.Check(ctx, "u1", agent)
		Expect(decision.Kind).To(Equal(access.GrantedFree))
		Expect(decision.Allowed()).To(BeTrue())
		Expect(decision.RequiresPayment()).To(BeFalse())
	})

	It("grants access to free agents regardless of payment history", func() {
		pricing.pricing = &access.Pricing{Name: "Helper", Role: models.RoleFree}
		payments.paid = false
		decision := checker.Check(ctx, "u1", agent)
		Expect(decision.Kind).To(Equal(access.GrantedFree))
	})

	It("grants access to paid agents with a zero price", func() {
		pricing.pricing = &access.Pricing{Name: "Helper", Role: models.RolePaid, Amount: decimal.Zero}
		decision := checker.Check(ctx, "u1", agent)
		Expect(decision.Kind).To(Equal(access.GrantedFree))
	})

	It("requires payment for paid agents without a successful payment", func() {
		pricing.pricing = paidPricing()
		payments.paid = false
		decision := checker.Check(ctx, "u1", agent)
		Expect(decision.Kind).To(Equal(access.PaymentRequired))
		Expect(decision.Allowed()).To(BeFalse())
		Expect(decision.RequiresPayment()).To(BeTrue())
		Expect(decision.Pricing.Name).To(Equal("Coach"))
	})

	It("grants access once a successful payment exists", func() {
		pricing.pricing = paidPricing()
		payments.paid = true
		decision := checker.Check(ctx, "u1", agent)
		Expect(decision.Kind).To(Equal(access.Granted))
		Expect(decision.Allowed()).To(BeTrue())
	})

	It("fails open when the pricing lookup errors", func() {
		pricing.err = errors.New("connection refused")
		decision := checker.Check(ctx, "u1", agent)
		Expect(decision.Kind).To(Equal(access.AllowDegraded))
		Expect(decision.Allowed()).To(BeTrue())
		Expect(decision.Cause).To(HaveOccurred())
	})

	It("fails open when the payment lookup errors", func() {
		pricing.pricing = paidPricing()
		payments.err = errors.New("timeout")
		decision := checker.Check(ctx, "u1", agent)
		Expect(decision.Kind).To(Equal(access.AllowDegraded))
		Expect(decision.Allowed()).To(BeTrue())
		Expect(decision.Pricing).NotTo(BeNil())
	})
})
