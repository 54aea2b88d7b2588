package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pdfqa/internal/model"
)

type ChatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

func (r *ChatSessionRepository) Create(session *model.ChatSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create chat session failed: %w", err)
	}
	return nil
}

// GetByID loads the session with its documents ordered by upload time.
func (r *ChatSessionRepository) GetByID(id uint) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Preload("Documents", func(db *gorm.DB) *gorm.DB {
		return db.Order("documents.uploaded_at ASC, documents.id ASC")
	}).First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session failed: %w", err)
	}
	return &session, nil
}

func (r *ChatSessionRepository) List() ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	if err := r.db.Order("created_at DESC, id DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list chat sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *ChatSessionRepository) Rename(id uint, name string) error {
	if err := r.db.Model(&model.ChatSession{}).Where("id = ?", id).Update("name", name).Error; err != nil {
		return fmt.Errorf("rename chat session failed: %w", err)
	}
	return nil
}

// Delete removes the session, its messages and its document membership links
// in one transaction. Documents themselves survive.
func (r *ChatSessionRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM chat_documents WHERE chat_session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ChatSession{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete chat session failed: %w", err)
	}
	return nil
}

// AddDocument links a document to a chat; adding an existing link is a no-op.
func (r *ChatSessionRepository) AddDocument(chatID, documentID uint) error {
	var count int64
	if err := r.db.Table("chat_documents").
		Where("chat_session_id = ? AND document_id = ?", chatID, documentID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check chat document link failed: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := r.db.Exec(
		"INSERT INTO chat_documents (chat_session_id, document_id) VALUES (?, ?)",
		chatID, documentID,
	).Error; err != nil {
		return fmt.Errorf("add document to chat failed: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) RemoveDocument(chatID, documentID uint) error {
	if err := r.db.Exec(
		"DELETE FROM chat_documents WHERE chat_session_id = ? AND document_id = ?",
		chatID, documentID,
	).Error; err != nil {
		return fmt.Errorf("remove document from chat failed: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) DocumentCount(chatID uint) (int64, error) {
	var count int64
	if err := r.db.Table("chat_documents").
		Where("chat_session_id = ?", chatID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chat documents failed: %w", err)
	}
	return count, nil
}
