package repository

import (
	"fmt"

	"gorm.io/gorm"

	"pdfqa/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

// ListByDocumentIDs returns all chunks for the given documents, grouped by
// document and ordered by chunk index within each document. This is context
// assembly order, not relevance order.
func (r *ChunkRepository) ListByDocumentIDs(documentIDs []uint) ([]model.Chunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.Where("document_id IN ?", documentIDs).
		Order("document_id ASC, chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document ids failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) CountByDocumentID(documentID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Chunk{}).Where("document_id = ?", documentID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chunks failed: %w", err)
	}
	return count, nil
}
