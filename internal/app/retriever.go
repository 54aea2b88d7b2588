package app

import (
	"context"

	"pdfqa/internal/model"
	"pdfqa/internal/vectorindex"
)

// Retriever is an ephemeral, per-question similarity index over the chunks
// of one chat's documents. It is rebuilt for every question because chat
// membership is mutable; nothing is cached across questions.
type Retriever struct {
	index      *vectorindex.Index
	chunks     []model.Chunk
	topK       int
	embedQuery func(ctx context.Context, text string) ([]float32, error)
}

// Search embeds the query and returns the top-k most similar chunks,
// nearest first.
func (r *Retriever) Search(ctx context.Context, query string) ([]model.Chunk, error) {
	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits := r.index.Search(vector, r.topK)
	results := make([]model.Chunk, len(hits))
	for i, hit := range hits {
		results[i] = r.chunks[hit.Position]
	}
	return results, nil
}
