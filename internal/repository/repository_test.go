package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pdfqa/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.ChatSession{},
		&model.ChatMessage{},
	))
	return db
}

func createDocument(t *testing.T, db *gorm.DB, name string) *model.Document {
	t.Helper()
	doc := &model.Document{Filename: "stored_" + name, OriginalName: name, FileSize: 1024}
	require.NoError(t, NewDocumentRepository(db).Create(doc))
	return doc
}

func TestDocumentLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)

	doc := createDocument(t, db, "report.pdf")
	assert.False(t, doc.Processed)

	require.NoError(t, repo.MarkProcessed(doc.ID))
	got, err := repo.GetByID(doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Processed)
	assert.Equal(t, "report.pdf", got.OriginalName)
}

func TestDocumentGetByIDMissing(t *testing.T) {
	db := newTestDB(t)
	got, err := NewDocumentRepository(db).GetByID(999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChunkOrderingWithinDocument(t *testing.T) {
	db := newTestDB(t)
	chunkRepo := NewChunkRepository(db)
	doc := createDocument(t, db, "ordered.pdf")

	// Insert out of order on purpose.
	chunks := []model.Chunk{
		{DocumentID: doc.ID, ChunkIndex: 2, Content: "third"},
		{DocumentID: doc.ID, ChunkIndex: 0, Content: "first"},
		{DocumentID: doc.ID, ChunkIndex: 1, Content: "second"},
	}
	require.NoError(t, chunkRepo.CreateBatch(chunks))

	got, err := chunkRepo.ListByDocumentIDs([]uint{doc.ID})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, "third", got[2].Content)
}

func TestChunkListGroupsByDocument(t *testing.T) {
	db := newTestDB(t)
	chunkRepo := NewChunkRepository(db)
	docA := createDocument(t, db, "a.pdf")
	docB := createDocument(t, db, "b.pdf")

	require.NoError(t, chunkRepo.CreateBatch([]model.Chunk{
		{DocumentID: docB.ID, ChunkIndex: 0, Content: "b0"},
		{DocumentID: docA.ID, ChunkIndex: 1, Content: "a1"},
		{DocumentID: docA.ID, ChunkIndex: 0, Content: "a0"},
	}))

	got, err := chunkRepo.ListByDocumentIDs([]uint{docA.ID, docB.ID})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a0", got[0].Content)
	assert.Equal(t, "a1", got[1].Content)
	assert.Equal(t, "b0", got[2].Content)
}

func TestDocumentDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	docRepo := NewDocumentRepository(db)
	chunkRepo := NewChunkRepository(db)
	chatRepo := NewChatSessionRepository(db)

	doc := createDocument(t, db, "doomed.pdf")
	other := createDocument(t, db, "survivor.pdf")
	require.NoError(t, chunkRepo.CreateBatch([]model.Chunk{
		{DocumentID: doc.ID, ChunkIndex: 0, Content: "gone"},
		{DocumentID: other.ID, ChunkIndex: 0, Content: "stays"},
	}))

	session := &model.ChatSession{Name: "Chat"}
	require.NoError(t, chatRepo.Create(session))
	require.NoError(t, chatRepo.AddDocument(session.ID, doc.ID))
	require.NoError(t, chatRepo.AddDocument(session.ID, other.ID))

	require.NoError(t, docRepo.Delete(doc.ID))

	got, err := docRepo.GetByID(doc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	count, err := chunkRepo.CountByDocumentID(doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	docCount, err := chatRepo.DocumentCount(session.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, docCount)

	otherCount, err := chunkRepo.CountByDocumentID(other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, otherCount)
}

func TestChatDocumentMembership(t *testing.T) {
	db := newTestDB(t)
	chatRepo := NewChatSessionRepository(db)
	doc := createDocument(t, db, "shared.pdf")

	session := &model.ChatSession{Name: "Chat"}
	require.NoError(t, chatRepo.Create(session))

	require.NoError(t, chatRepo.AddDocument(session.ID, doc.ID))
	// Adding again is a no-op, not a duplicate row.
	require.NoError(t, chatRepo.AddDocument(session.ID, doc.ID))

	count, err := chatRepo.DocumentCount(session.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, chatRepo.RemoveDocument(session.ID, doc.ID))
	count, err = chatRepo.DocumentCount(session.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestChatSessionPreloadsDocumentsInUploadOrder(t *testing.T) {
	db := newTestDB(t)
	chatRepo := NewChatSessionRepository(db)
	first := createDocument(t, db, "first.pdf")
	second := createDocument(t, db, "second.pdf")

	session := &model.ChatSession{Name: "Chat"}
	require.NoError(t, chatRepo.Create(session))
	require.NoError(t, chatRepo.AddDocument(session.ID, second.ID))
	require.NoError(t, chatRepo.AddDocument(session.ID, first.ID))

	got, err := chatRepo.GetByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "first.pdf", got.Documents[0].OriginalName)
	assert.Equal(t, "second.pdf", got.Documents[1].OriginalName)
}

func TestChatSessionDeleteRemovesMessagesAndLinks(t *testing.T) {
	db := newTestDB(t)
	chatRepo := NewChatSessionRepository(db)
	messageRepo := NewChatMessageRepository(db)
	doc := createDocument(t, db, "kept.pdf")

	session := &model.ChatSession{Name: "Chat"}
	require.NoError(t, chatRepo.Create(session))
	require.NoError(t, chatRepo.AddDocument(session.ID, doc.ID))
	require.NoError(t, messageRepo.Create(&model.ChatMessage{
		ChatID: session.ID, Question: "q", Answer: "a",
	}))

	require.NoError(t, chatRepo.Delete(session.ID))

	got, err := chatRepo.GetByID(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	msgCount, err := messageRepo.CountByChatID(session.ID)
	require.NoError(t, err)
	assert.Zero(t, msgCount)

	// The document itself survives session deletion.
	doc2, err := NewDocumentRepository(db).GetByID(doc.ID)
	require.NoError(t, err)
	assert.NotNil(t, doc2)
}

func TestChatMessageHistoryOrderAndClear(t *testing.T) {
	db := newTestDB(t)
	chatRepo := NewChatSessionRepository(db)
	messageRepo := NewChatMessageRepository(db)
	doc := createDocument(t, db, "history.pdf")

	session := &model.ChatSession{Name: "Chat"}
	require.NoError(t, chatRepo.Create(session))
	require.NoError(t, chatRepo.AddDocument(session.ID, doc.ID))

	for _, q := range []string{"first?", "second?", "third?"} {
		require.NoError(t, messageRepo.Create(&model.ChatMessage{
			ChatID: session.ID, Question: q, Answer: "answer to " + q,
		}))
	}

	history, err := messageRepo.ListByChatID(session.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first?", history[0].Question)
	assert.Equal(t, "third?", history[2].Question)

	first, err := messageRepo.FirstByChatID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "first?", first.Question)

	// Clearing history keeps the session and its document links.
	require.NoError(t, messageRepo.DeleteByChatID(session.ID))
	count, err := messageRepo.CountByChatID(session.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	docCount, err := chatRepo.DocumentCount(session.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, docCount)
}

func TestChatSessionRename(t *testing.T) {
	db := newTestDB(t)
	chatRepo := NewChatSessionRepository(db)

	session := &model.ChatSession{Name: "New Chat"}
	require.NoError(t, chatRepo.Create(session))
	require.NoError(t, chatRepo.Rename(session.ID, "Quarterly Report"))

	got, err := chatRepo.GetByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Quarterly Report", got.Name)
}
