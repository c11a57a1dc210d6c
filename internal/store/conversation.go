package store

import (
	"context"
	"errors"

	"contentflow/internal/ai"
	"contentflow/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationStore is the GORM-backed implementation of ai.Store.
type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) GetConversation(ctx context.Context, id, ownerID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ? AND user_id = ?", id, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ai.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ConversationStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (*models.Message, error) {
	msg := models.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}
