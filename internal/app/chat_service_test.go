package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pdfqa/internal/model"
	"pdfqa/internal/repository"
)

type chatFixture struct {
	db      *gorm.DB
	service *ChatService

	chatRepo    *repository.ChatSessionRepository
	messageRepo *repository.ChatMessageRepository
	docRepo     *repository.DocumentRepository
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := newTestDB(t)
	f := &chatFixture{
		db:          db,
		chatRepo:    repository.NewChatSessionRepository(db),
		messageRepo: repository.NewChatMessageRepository(db),
		docRepo:     repository.NewDocumentRepository(db),
	}
	f.service = NewChatService(f.chatRepo, f.messageRepo, f.docRepo, nil)
	return f
}

func (f *chatFixture) newDocument(t *testing.T, name string) *model.Document {
	t.Helper()
	doc := &model.Document{Filename: "stored_" + name, OriginalName: name, FileSize: 512}
	require.NoError(t, f.docRepo.Create(doc))
	return doc
}

func TestCreateChatDefaultName(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, "New Chat", session.Name)

	named, err := f.service.CreateChat(context.Background(), "Budget Review")
	require.NoError(t, err)
	assert.Equal(t, "Budget Review", named.Name)
}

func TestAddFirstDocumentRenamesDefaultChat(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "")
	require.NoError(t, err)
	doc := f.newDocument(t, "annual_report_2024.pdf")

	require.NoError(t, f.service.AddDocument(context.Background(), session.ID, doc.ID))

	got, err := f.service.GetChat(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annual Report 2024", got.Name)
}

func TestAddDocumentKeepsCustomName(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "My Research")
	require.NoError(t, err)
	doc := f.newDocument(t, "paper.pdf")

	require.NoError(t, f.service.AddDocument(context.Background(), session.ID, doc.ID))

	got, err := f.service.GetChat(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Research", got.Name)
}

func TestAddSecondDocumentDoesNotRename(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "")
	require.NoError(t, err)
	first := f.newDocument(t, "first_doc.pdf")
	second := f.newDocument(t, "second_doc.pdf")

	require.NoError(t, f.service.AddDocument(context.Background(), session.ID, first.ID))
	require.NoError(t, f.service.AddDocument(context.Background(), session.ID, second.ID))

	got, err := f.service.GetChat(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "First Doc", got.Name)
}

func TestAddDocumentUnknownIDs(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "")
	require.NoError(t, err)

	err = f.service.AddDocument(context.Background(), session.ID, 999)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	doc := f.newDocument(t, "doc.pdf")
	err = f.service.AddDocument(context.Background(), 999, doc.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestClearHistoryPreservesDocuments(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "")
	require.NoError(t, err)
	doc := f.newDocument(t, "kept.pdf")
	require.NoError(t, f.service.AddDocument(context.Background(), session.ID, doc.ID))
	require.NoError(t, f.messageRepo.Create(&model.ChatMessage{
		ChatID: session.ID, Question: "q", Answer: "a",
	}))

	require.NoError(t, f.service.ClearHistory(context.Background(), session.ID))

	history, err := f.service.History(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	docs, err := f.service.ChatDocuments(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestListChatsSummaries(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "Active Chat")
	require.NoError(t, err)
	doc := f.newDocument(t, "doc.pdf")
	require.NoError(t, f.service.AddDocument(context.Background(), session.ID, doc.ID))

	longQuestion := strings.Repeat("why ", 20) // 80 chars
	require.NoError(t, f.messageRepo.Create(&model.ChatMessage{
		ChatID: session.ID, Question: longQuestion, Answer: "because",
	}))
	require.NoError(t, f.messageRepo.Create(&model.ChatMessage{
		ChatID: session.ID, Question: "and then?", Answer: "done",
	}))

	_, err = f.service.CreateChat(context.Background(), "Empty Chat")
	require.NoError(t, err)

	summaries, err := f.service.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byName := map[string]ChatSummary{}
	for _, s := range summaries {
		byName[s.Name] = s
	}

	active := byName["Active Chat"]
	assert.EqualValues(t, 1, active.DocumentCount)
	assert.EqualValues(t, 2, active.MessageCount)
	assert.True(t, strings.HasSuffix(active.Preview, "..."))
	assert.LessOrEqual(t, len([]rune(active.Preview)), 53)
	assert.True(t, strings.HasPrefix(longQuestion, strings.TrimSuffix(active.Preview, "...")))

	empty := byName["Empty Chat"]
	assert.Zero(t, empty.DocumentCount)
	assert.Zero(t, empty.MessageCount)
	assert.Empty(t, empty.Preview)
}

func TestRenameChatValidation(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.RenameChat(context.Background(), session.ID, "  "), ErrInvalidInput)
	assert.ErrorIs(t, f.service.RenameChat(context.Background(), 999, "x"), ErrChatNotFound)

	require.NoError(t, f.service.RenameChat(context.Background(), session.ID, "Renamed"))
	got, err := f.service.GetChat(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestDeleteChatKeepsDocuments(t *testing.T) {
	f := newChatFixture(t)
	session, err := f.service.CreateChat(context.Background(), "")
	require.NoError(t, err)
	doc := f.newDocument(t, "survives.pdf")
	require.NoError(t, f.service.AddDocument(context.Background(), session.ID, doc.ID))

	require.NoError(t, f.service.DeleteChat(context.Background(), session.ID))

	_, err = f.service.GetChat(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)

	kept, err := f.docRepo.GetByID(doc.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestSmartChatName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"annual_report_2024.pdf", "Annual Report 2024"},
		{"machine-learning-basics.pdf", "Machine Learning Basics"},
		{"one two three four five.pdf", "One Two Three"},
		{"simple.pdf", "Simple"},
		{"extraordinarily comprehensive documentation.pdf", "Extraordinarily Compre..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, smartChatName(tt.filename), "filename %q", tt.filename)
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Hello World", titleCase("hello world"))
	assert.Equal(t, "Mixed Case Words", titleCase("MIXED cAsE words"))
}
