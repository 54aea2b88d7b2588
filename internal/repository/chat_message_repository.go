package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pdfqa/internal/model"
)

type ChatMessageRepository struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

func (r *ChatMessageRepository) Create(message *model.ChatMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create chat message failed: %w", err)
	}
	return nil
}

// ListByChatID returns the full history in arrival order. ID is the
// secondary sort key so messages created within one timestamp tick keep
// their append order.
func (r *ChatMessageRepository) ListByChatID(chatID uint) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	if err := r.db.Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list chat messages failed: %w", err)
	}
	return messages, nil
}

func (r *ChatMessageRepository) FirstByChatID(chatID uint) (*model.ChatMessage, error) {
	var message model.ChatMessage
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get first chat message failed: %w", err)
	}
	return &message, nil
}

func (r *ChatMessageRepository) CountByChatID(chatID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.ChatMessage{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chat messages failed: %w", err)
	}
	return count, nil
}

func (r *ChatMessageRepository) DeleteByChatID(chatID uint) error {
	if err := r.db.Where("chat_id = ?", chatID).Delete(&model.ChatMessage{}).Error; err != nil {
		return fmt.Errorf("delete chat messages failed: %w", err)
	}
	return nil
}
