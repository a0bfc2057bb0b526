package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	models "github.com/maarifa-ai/maarifa/dbmodels"
)

var ErrNotFound = errors.New("payment record not found")

// Store persists payment records. Status transitions are conditional
// single-statement updates so concurrent webhook deliveries for the
// same externalId cannot interleave into a mixed state. The boolean
// returned by the Mark methods reports whether the transition was
// applied; false means the record was not in the required source state
// (callers treat a repeated delivery as a no-op, not an error).
type Store interface {
	Create(ctx context.Context, rec *models.PaymentRecord) error
	GetByID(ctx context.Context, id uint) (*models.PaymentRecord, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.PaymentRecord, error)
	SetGatewayRefs(ctx context.Context, id uint, externalID, collectURL string) error
	HasSuccessfulPayment(ctx context.Context, userID string, agent models.AgentID) (bool, error)
	LatestPayment(ctx context.Context, userID string, agent models.AgentID) (*models.PaymentRecord, error)
	MarkSuccess(ctx context.Context, externalID, payerPhone string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, externalID, reason string) (bool, error)
	MarkRefunded(ctx context.Context, id uint) (bool, error)
	ListStalePending(ctx context.Context, olderThan time.Duration) ([]models.PaymentRecord, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, rec *models.PaymentRecord) error {
	if rec.Status == "" {
		rec.Status = models.PaymentPending
	}
	// JSON_SET merges into an existing document; a NULL column would
	// swallow every later webhookReceived/failureReason write.
	if len(rec.Metadata) == 0 {
		rec.Metadata = datatypes.JSON([]byte("{}"))
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("creating payment record: %w", err)
	}
	return nil
}

func (s *GormStore) GetByID(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) GetByExternalID(ctx context.Context, externalID string) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) SetGatewayRefs(ctx context.Context, id uint, externalID, collectURL string) error {
	updates := map[string]any{"collect_url": collectURL}
	if externalID != "" {
		updates["external_id"] = externalID
	}
	return s.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *GormStore) HasSuccessfulPayment(ctx context.Context, userID string, agent models.AgentID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("user_id = ? AND agent_kind = ? AND agent_ref = ? AND status = ?",
			userID, agent.Kind, agent.String(), models.PaymentSuccess).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) LatestPayment(ctx context.Context, userID string, agent models.AgentID) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND agent_kind = ? AND agent_ref = ?", userID, agent.Kind, agent.String()).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) MarkSuccess(ctx context.Context, externalID, payerPhone string, paidAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":   models.PaymentSuccess,
		"paid_at":  paidAt,
		"metadata": datatypes.JSONSet("metadata").Set("webhookReceived", paidAt.UTC().Format(time.RFC3339)),
	}
	if payerPhone != "" {
		updates["payer_phone"] = payerPhone
	}
	res := s.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("external_id = ? AND status = ?", externalID, models.PaymentPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) MarkFailed(ctx context.Context, externalID, reason string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("external_id = ? AND status = ?", externalID, models.PaymentPending).
		Updates(map[string]any{
			"status":   models.PaymentFailed,
			"metadata": datatypes.JSONSet("metadata").Set("failureReason", reason),
		})
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) MarkRefunded(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ? AND status = ?", id, models.PaymentSuccess).
		Update("status", models.PaymentRefunded)
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) ListStalePending(ctx context.Context, olderThan time.Duration) ([]models.PaymentRecord, error) {
	var recs []models.PaymentRecord
	err := s.db.WithContext(ctx).
		Where("status = ? AND external_id IS NOT NULL AND created_at < ?",
			models.PaymentPending, time.Now().Add(-olderThan)).
		Find(&recs).Error
	return recs, err
}
