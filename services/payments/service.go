// Package payments owns the payment lifecycle: intent creation,
// webhook-driven status transitions, and manual verification. Webhook
// and verification transitions go through the store's conditional
// updates, so replayed deliveries are no-ops rather than errors.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/pkg/whish"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
	"github.com/maarifa-ai/maarifa/services/access"
)

var (
	ErrAgentFree   = errors.New("agent does not require payment")
	ErrAlreadyPaid = errors.New("user already has access to this agent")
)

// Gateway is the slice of the Whish client the service uses.
type Gateway interface {
	CreatePayment(ctx context.Context, in whish.CreatePaymentInput) (*whish.CreatePaymentResult, error)
	CheckStatus(ctx context.Context, externalID string, currency models.Currency) (*whish.StatusResult, error)
}

type Service struct {
	store   Store
	gateway Gateway
	pricing access.PricingResolver
}

func NewService(store Store, gateway Gateway, pricing access.PricingResolver) *Service {
	return &Service{store: store, gateway: gateway, pricing: pricing}
}

type CreateResult struct {
	Record         *models.PaymentRecord
	CollectURL     string
	FormattedPrice string
	AgentName      string
}

// Create opens a payment intent for a paid agent and returns the
// hosted collect URL. Gateway failures fail closed: the record is
// marked failed and the error surfaces to the caller.
func (s *Service) Create(ctx context.Context, userID string, agent models.AgentID, successURL, failureURL string) (*CreateResult, error) {
	pricing, err := s.pricing.Resolve(ctx, agent)
	if err != nil {
		return nil, err
	}
	if !pricing.Paid() {
		return nil, ErrAgentFree
	}

	paid, err := s.store.HasSuccessfulPayment(ctx, userID, agent)
	if err != nil {
		return nil, fmt.Errorf("checking existing payments: %w", err)
	}
	if paid {
		return nil, ErrAlreadyPaid
	}

	rec := &models.PaymentRecord{
		UserID:    userID,
		AgentKind: agent.Kind,
		AgentRef:  agent.String(),
		Amount:    pricing.Amount,
		Currency:  pricing.Currency,
		Status:    models.PaymentPending,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	// The record's own id doubles as the provider-facing correlation id.
	externalID := fmt.Sprint(rec.ID)
	if err := s.store.SetGatewayRefs(ctx, rec.ID, externalID, ""); err != nil {
		return nil, fmt.Errorf("assigning external id: %w", err)
	}
	rec.ExternalID = &externalID

	created, err := s.gateway.CreatePayment(ctx, whish.CreatePaymentInput{
		UserID:             userID,
		AgentID:            agent.String(),
		Amount:             pricing.Amount,
		Currency:           pricing.Currency,
		AgentName:          pricing.Name,
		PaymentRecordID:    rec.ID,
		SuccessRedirectURL: successURL,
		FailureRedirectURL: failureURL,
	})
	if err != nil {
		if _, markErr := s.store.MarkFailed(ctx, externalID, "gateway creation failed"); markErr != nil {
			xlog.Error("Could not mark payment record failed after gateway error", "paymentId", rec.ID, "error", markErr)
		}
		return nil, err
	}

	if err := s.store.SetGatewayRefs(ctx, rec.ID, created.ExternalID, created.CollectURL); err != nil {
		return nil, fmt.Errorf("storing gateway references: %w", err)
	}
	rec.ExternalID = &created.ExternalID
	rec.CollectURL = created.CollectURL

	return &CreateResult{
		Record:         rec,
		CollectURL:     created.CollectURL,
		FormattedPrice: pricing.Formatted(),
		AgentName:      pricing.Name,
	}, nil
}

// HandleSuccessWebhook applies the pending -> success transition for
// one externalId. Before writing it re-verifies with the gateway to
// capture the payer phone; a verification failure there is logged and
// tolerated, the transition proceeds without the phone rather than
// blocking acknowledgement.
func (s *Service) HandleSuccessWebhook(ctx context.Context, externalID string) error {
	rec, err := s.store.GetByExternalID(ctx, externalID)
	if err != nil {
		return err
	}

	payerPhone := ""
	if st, verr := s.gateway.CheckStatus(ctx, externalID, rec.Currency); verr != nil {
		xlog.Warn("Payment verification during success webhook failed, proceeding without payer phone",
			"externalId", externalID, "error", verr)
	} else {
		payerPhone = st.PayerPhoneNumber
	}

	applied, err := s.store.MarkSuccess(ctx, externalID, payerPhone, time.Now())
	if err != nil {
		return fmt.Errorf("applying success transition: %w", err)
	}
	if !applied {
		xlog.Info("Success webhook was a no-op, record already terminal", "externalId", externalID, "status", rec.Status)
	}
	return nil
}

// HandleFailureWebhook applies pending -> failed. A missing record is
// tolerated with an acknowledgement, webhook senders retry on non-200.
func (s *Service) HandleFailureWebhook(ctx context.Context, externalID, providerStatus string) error {
	reason := strings.TrimSpace(providerStatus)
	if reason == "" {
		reason = "unknown"
	}

	if _, err := s.store.GetByExternalID(ctx, externalID); errors.Is(err, ErrNotFound) {
		xlog.Warn("Failure webhook for unknown payment", "externalId", externalID)
		return nil
	} else if err != nil {
		return err
	}

	applied, err := s.store.MarkFailed(ctx, externalID, reason)
	if err != nil {
		return fmt.Errorf("applying failure transition: %w", err)
	}
	if !applied {
		xlog.Info("Failure webhook was a no-op, record already terminal", "externalId", externalID)
	}
	return nil
}

type VerifyResult struct {
	PaymentID  uint                  `json:"paymentId"`
	Status     models.PaymentStatus  `json:"status"`
	PayerPhone string                `json:"payerPhone,omitempty"`
	Currency   models.Currency       `json:"currency"`
	Payment    *models.PaymentRecord `json:"payment"`
}

// Verify re-queries the gateway for a known payment and reconciles the
// stored status with the gateway's view before returning it.
func (s *Service) Verify(ctx context.Context, paymentID uint) (*VerifyResult, error) {
	rec, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if rec.External() == "" {
		return s.result(rec), nil
	}

	st, err := s.gateway.CheckStatus(ctx, rec.External(), rec.Currency)
	if err != nil {
		return nil, err
	}

	reported := mapCollectStatus(st.CollectStatus)
	if reported != "" && reported != rec.Status {
		switch reported {
		case models.PaymentSuccess:
			_, err = s.store.MarkSuccess(ctx, rec.External(), st.PayerPhoneNumber, time.Now())
		case models.PaymentFailed:
			_, err = s.store.MarkFailed(ctx, rec.External(), st.CollectStatus)
		case models.PaymentRefunded:
			_, err = s.store.MarkRefunded(ctx, rec.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("reconciling payment status: %w", err)
		}
		if rec, err = s.store.GetByID(ctx, paymentID); err != nil {
			return nil, err
		}
	}
	return s.result(rec), nil
}

func (s *Service) result(rec *models.PaymentRecord) *VerifyResult {
	return &VerifyResult{
		PaymentID:  rec.ID,
		Status:     rec.Status,
		PayerPhone: rec.PayerPhone,
		Currency:   rec.Currency,
		Payment:    rec,
	}
}

func mapCollectStatus(collectStatus string) models.PaymentStatus {
	switch strings.ToLower(collectStatus) {
	case "success", "completed", "paid":
		return models.PaymentSuccess
	case "failed", "cancelled", "rejected", "expired":
		return models.PaymentFailed
	case "refunded":
		return models.PaymentRefunded
	}
	return ""
}
