package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Conversation groups the messages exchanged between one user and one
// agent. One row per (user, agent) pair.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(255);uniqueIndex:idx_conv_pair;not null" json:"userId"`
	AgentKind AgentKind `gorm:"type:varchar(16);not null" json:"agentKind"`
	AgentRef  string    `gorm:"type:varchar(255);uniqueIndex:idx_conv_pair;not null" json:"agentRef"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// ConversationMessage is one utterance. Content is encrypted at rest;
// rows are append-only and never mutated.
type ConversationMessage struct {
	ID             uuid.UUID   `gorm:"type:char(36);primaryKey" json:"id"`
	ConversationID uuid.UUID   `gorm:"type:char(36);index:idx_conv_msgs,priority:1;not null" json:"conversationId"`
	Role           MessageRole `gorm:"type:varchar(16);not null" json:"role"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time   `gorm:"index:idx_conv_msgs,priority:2" json:"createdAt"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}

func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
