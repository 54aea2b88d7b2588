package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pdfqa/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List() ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Order("uploaded_at DESC, id DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) MarkProcessed(id uint) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Update("processed", true).Error; err != nil {
		return fmt.Errorf("mark document processed failed: %w", err)
	}
	return nil
}

// Delete removes the document, its chunks and its chat membership links in
// one transaction. Other documents and chat messages are untouched.
func (r *DocumentRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM chat_documents WHERE document_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Document{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
