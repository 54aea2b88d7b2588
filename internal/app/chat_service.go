package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"pdfqa/internal/model"
	"pdfqa/internal/repository"
)

// HistoryCache is the read-through cache over a chat's message history.
// The hit flag distinguishes a cached empty history from a miss.
type HistoryCache interface {
	GetHistory(ctx context.Context, chatID uint) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, chatID uint, messages []model.ChatMessage) error
	DeleteHistory(ctx context.Context, chatID uint) error
}

const defaultChatName = "New Chat"

// ChatService manages chat sessions, their document membership and their
// message history.
type ChatService struct {
	chatRepo     *repository.ChatSessionRepository
	messageRepo  *repository.ChatMessageRepository
	docRepo      *repository.DocumentRepository
	historyCache HistoryCache
}

func NewChatService(
	chatRepo *repository.ChatSessionRepository,
	messageRepo *repository.ChatMessageRepository,
	docRepo *repository.DocumentRepository,
	historyCache HistoryCache,
) *ChatService {
	return &ChatService{
		chatRepo:     chatRepo,
		messageRepo:  messageRepo,
		docRepo:      docRepo,
		historyCache: historyCache,
	}
}

// ChatSummary is the listing view of a session: counts plus a short preview
// of the opening question.
type ChatSummary struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	CreatedAt     string `json:"created_at"`
	DocumentCount int64  `json:"document_count"`
	MessageCount  int64  `json:"message_count"`
	Preview       string `json:"preview"`
}

func (s *ChatService) CreateChat(ctx context.Context, name string) (*model.ChatSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultChatName
	}
	session := &model.ChatSession{Name: name}
	if err := s.chatRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListChats(ctx context.Context) ([]ChatSummary, error) {
	sessions, err := s.chatRepo.List()
	if err != nil {
		return nil, err
	}
	summaries := make([]ChatSummary, 0, len(sessions))
	for _, session := range sessions {
		docCount, err := s.chatRepo.DocumentCount(session.ID)
		if err != nil {
			return nil, err
		}
		msgCount, err := s.messageRepo.CountByChatID(session.ID)
		if err != nil {
			return nil, err
		}
		preview := ""
		if msgCount > 0 {
			first, err := s.messageRepo.FirstByChatID(session.ID)
			if err != nil {
				return nil, err
			}
			if first != nil {
				preview = truncateRunes(first.Question, 50)
			}
		}
		summaries = append(summaries, ChatSummary{
			ID:            session.ID,
			Name:          session.Name,
			CreatedAt:     session.CreatedAt.Format("2006-01-02 15:04:05"),
			DocumentCount: docCount,
			MessageCount:  msgCount,
			Preview:       preview,
		})
	}
	return summaries, nil
}

func (s *ChatService) GetChat(ctx context.Context, id uint) (*model.ChatSession, error) {
	session, err := s.chatRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrChatNotFound
	}
	return session, nil
}

func (s *ChatService) RenameChat(ctx context.Context, id uint, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidInput
	}
	if _, err := s.GetChat(ctx, id); err != nil {
		return err
	}
	return s.chatRepo.Rename(id, name)
}

func (s *ChatService) DeleteChat(ctx context.Context, id uint) error {
	if _, err := s.GetChat(ctx, id); err != nil {
		return err
	}
	if err := s.chatRepo.Delete(id); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, id)
	}
	return nil
}

// ClearHistory removes the session's messages while keeping the session and
// its document membership intact.
func (s *ChatService) ClearHistory(ctx context.Context, id uint) error {
	if _, err := s.GetChat(ctx, id); err != nil {
		return err
	}
	if err := s.messageRepo.DeleteByChatID(id); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, id)
	}
	return nil
}

// History returns the full message history in arrival order, served from the
// cache when warm.
func (s *ChatService) History(ctx context.Context, id uint) ([]model.ChatMessage, error) {
	if _, err := s.GetChat(ctx, id); err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		cached, hit, err := s.historyCache.GetHistory(ctx, id)
		if err == nil && hit {
			return cached, nil
		}
	}
	messages, err := s.messageRepo.ListByChatID(id)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		_ = s.historyCache.SetHistory(ctx, id, messages)
	}
	return messages, nil
}

// AddDocument attaches an already-registered document to a chat. Attaching
// the first document to a chat still carrying a default name renames the
// chat after that document.
func (s *ChatService) AddDocument(ctx context.Context, chatID, documentID uint) error {
	session, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	doc, err := s.docRepo.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.chatRepo.AddDocument(chatID, documentID); err != nil {
		return err
	}

	count, err := s.chatRepo.DocumentCount(chatID)
	if err != nil {
		return err
	}
	if count == 1 && isDefaultName(session.Name) {
		if name := smartChatName(doc.OriginalName); name != "" {
			if err := s.chatRepo.Rename(chatID, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ChatService) RemoveDocument(ctx context.Context, chatID, documentID uint) error {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return err
	}
	return s.chatRepo.RemoveDocument(chatID, documentID)
}

func (s *ChatService) ChatDocuments(ctx context.Context, chatID uint) ([]model.Document, error) {
	session, err := s.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return session.Documents, nil
}

func isDefaultName(name string) bool {
	return strings.Contains(name, "New Chat") || strings.Contains(name, "Chat ")
}

// smartChatName derives a display name from a filename: extension stripped,
// underscores and hyphens turned into spaces, at most three words, capped at
// 25 characters with an ellipsis, title-cased.
func smartChatName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	words := strings.Fields(base)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 3 {
		words = words[:3]
	}
	name := strings.Join(words, " ")
	if len(name) > 25 {
		name = name[:22] + "..."
	}
	return titleCase(name)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:max]))
}
