// Package chathistory is the append-only conversation log. Message
// content is encrypted at rest; a row that fails to decrypt degrades
// to a placeholder instead of failing the whole read.
package chathistory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/pkg/cipher"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

const unreadablePlaceholder = "[message could not be decrypted]"

type Turn struct {
	Role      models.MessageRole `json:"role"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
}

type Store interface {
	AppendTurn(ctx context.Context, userID string, agent models.AgentID, role models.MessageRole, content string) error
	RecentTurns(ctx context.Context, userID string, agent models.AgentID, limit int) ([]Turn, error)
	CountTurns(ctx context.Context, userID string, agent models.AgentID) (int64, error)
	DeleteAll(ctx context.Context, userID string, agent models.AgentID) error
}

type GormStore struct {
	db     *gorm.DB
	cipher *cipher.Cipher
}

func NewGormStore(db *gorm.DB, c *cipher.Cipher) *GormStore {
	return &GormStore{db: db, cipher: c}
}

func (s *GormStore) conversation(ctx context.Context, userID string, agent models.AgentID, create bool) (*models.Conversation, error) {
	var conv models.Conversation
	q := s.db.WithContext(ctx).Where("user_id = ? AND agent_kind = ? AND agent_ref = ?",
		userID, agent.Kind, agent.String())

	err := q.First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !create {
			return nil, nil
		}
		conv = models.Conversation{UserID: userID, AgentKind: agent.Kind, AgentRef: agent.String()}
		if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
		return &conv, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *GormStore) AppendTurn(ctx context.Context, userID string, agent models.AgentID, role models.MessageRole, content string) error {
	conv, err := s.conversation(ctx, userID, agent, true)
	if err != nil {
		return err
	}

	encrypted, err := s.cipher.Encrypt(content)
	if err != nil {
		return fmt.Errorf("encrypting message: %w", err)
	}

	msg := models.ConversationMessage{
		ConversationID: conv.ID,
		Role:           role,
		Content:        encrypted,
		CreatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	return nil
}

// RecentTurns returns the most recent limit turns in chronological
// order.
func (s *GormStore) RecentTurns(ctx context.Context, userID string, agent models.AgentID, limit int) ([]Turn, error) {
	conv, err := s.conversation(ctx, userID, agent, false)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, nil
	}

	var rows []models.ConversationMessage
	err = s.db.WithContext(ctx).
		Where("conversation_id = ?", conv.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		turns = append(turns, Turn{
			Role:      rows[i].Role,
			Content:   s.decode(rows[i]),
			Timestamp: rows[i].CreatedAt,
		})
	}
	return turns, nil
}

func (s *GormStore) decode(row models.ConversationMessage) string {
	if !cipher.IsEncrypted(row.Content) {
		// plaintext row from before encryption was enabled
		return row.Content
	}
	plain, err := s.cipher.Decrypt(row.Content)
	if err != nil {
		xlog.Warn("Could not decrypt stored message", "messageId", row.ID, "error", err)
		return unreadablePlaceholder
	}
	return plain
}

func (s *GormStore) CountTurns(ctx context.Context, userID string, agent models.AgentID) (int64, error) {
	conv, err := s.conversation(ctx, userID, agent, false)
	if err != nil || conv == nil {
		return 0, err
	}
	var count int64
	err = s.db.WithContext(ctx).
		Model(&models.ConversationMessage{}).
		Where("conversation_id = ?", conv.ID).
		Count(&count).Error
	return count, err
}

func (s *GormStore) DeleteAll(ctx context.Context, userID string, agent models.AgentID) error {
	conv, err := s.conversation(ctx, userID, agent, false)
	if err != nil || conv == nil {
		return err
	}
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conv.ID).
		Delete(&models.ConversationMessage{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(conv).Error
}
