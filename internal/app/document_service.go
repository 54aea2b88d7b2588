package app

import (
	"context"
	"fmt"

	"pdfqa/internal/ai"
	"pdfqa/internal/model"
	"pdfqa/internal/pkg/pdfextract"
	"pdfqa/internal/pkg/textsplit"
	"pdfqa/internal/repository"
)

const embeddingBatchSize = 10

// IngestPublisher enqueues a document for asynchronous processing.
type IngestPublisher interface {
	Publish(ctx context.Context, documentID uint, path string) error
}

// DocumentService owns the document lifecycle: registration, text
// extraction, chunking, embedding and deletion.
type DocumentService struct {
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.ChunkRepository
	llm       LLMClient
	publisher IngestPublisher

	embCfg       ai.EmbeddingConfig
	chunkSize    int
	chunkOverlap int
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	llm LLMClient,
	publisher IngestPublisher,
	embCfg ai.EmbeddingConfig,
	chunkSize, chunkOverlap int,
) *DocumentService {
	if chunkSize <= 0 {
		chunkSize = textsplit.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = textsplit.DefaultChunkOverlap
	}
	return &DocumentService{
		docRepo:      docRepo,
		chunkRepo:    chunkRepo,
		llm:          llm,
		publisher:    publisher,
		embCfg:       embCfg,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Register records a stored upload and enqueues it for processing. The
// document stays unprocessed until the worker finishes it.
func (s *DocumentService) Register(ctx context.Context, storedName, originalName, path string, size int64) (*model.Document, error) {
	doc := &model.Document{
		Filename:     storedName,
		OriginalName: originalName,
		FileSize:     size,
		Processed:    false,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, doc.ID, path); err != nil {
		return nil, fmt.Errorf("enqueue document %d failed: %w", doc.ID, err)
	}
	return doc, nil
}

// ProcessFile extracts the text of a stored PDF and indexes it.
func (s *DocumentService) ProcessFile(ctx context.Context, documentID uint, path string) error {
	text, err := pdfextract.ExtractFile(path)
	if err != nil {
		return fmt.Errorf("extract document %d failed: %w", documentID, err)
	}
	return s.ProcessExtracted(ctx, documentID, text)
}

// ProcessExtracted chunks the given text, embeds every chunk and stores the
// results. A document whose text yields no chunks is still marked processed;
// it simply contributes nothing to retrieval.
func (s *DocumentService) ProcessExtracted(ctx context.Context, documentID uint, text string) error {
	pieces := textsplit.Split(text, s.chunkSize, s.chunkOverlap)
	if len(pieces) == 0 {
		return s.docRepo.MarkProcessed(documentID)
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.llm.EmbedBatch(ctx, s.embCfg, texts[start:end])
		if err != nil {
			return fmt.Errorf("embed document %d chunks failed: %w", documentID, err)
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(pieces) {
		return fmt.Errorf("embed document %d: got %d vectors for %d chunks", documentID, len(vectors), len(pieces))
	}

	chunks := make([]model.Chunk, len(pieces))
	for i, p := range pieces {
		chunk := model.Chunk{
			DocumentID: documentID,
			ChunkIndex: p.Index,
			Content:    p.Content,
		}
		chunk.SetEmbedding(vectors[i])
		chunks[i] = chunk
	}
	if err := s.chunkRepo.CreateBatch(chunks); err != nil {
		return err
	}
	return s.docRepo.MarkProcessed(documentID)
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.docRepo.List()
}

func (s *DocumentService) Get(ctx context.Context, id uint) (*model.Document, error) {
	doc, err := s.docRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes the document together with its chunks and its chat links.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.docRepo.Delete(id)
}
