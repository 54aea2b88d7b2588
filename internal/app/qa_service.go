package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"pdfqa/internal/agent"
	"pdfqa/internal/ai"
	"pdfqa/internal/model"
	"pdfqa/internal/repository"
	"pdfqa/internal/vectorindex"
)

// Answer tiers, evaluated in strict order; the first applicable one wins.
const (
	TierNone   = "none"
	TierSystem = "system"
	TierDirect = "direct"
	TierAgent  = "agent"
)

const (
	msgNoDocuments = "No documents found in this chat. Please add some documents first."
	msgNoContent   = "No document content found. Please ensure documents are properly processed."

	hintQuota   = "model quota or rate limit reached"
	hintStorage = "storage error"
	hintUnknown = "unexpected error"
)

// Best-effort classifier for meta-questions about the documents themselves.
// Keyword containment can misfire on content questions that happen to use
// these phrases; that is accepted, the tier only exists to answer the common
// cases cheaply and without hallucination risk.
var systemQuestionKeywords = []string{
	"any pdf", "pdf available", "documents available", "files available",
	"what pdf", "which pdf", "pdf loaded", "document loaded",
	"file info", "document info", "system status", "how many documents",
	"what documents", "which documents",
}

// Markers by which the direct tier recognizes the model declining to answer
// from context, triggering fall-through to the agentic tier.
var uncertaintyMarkers = []string{"i don't know", "i do not know", "not sure"}

// LLMClient is the pluggable language-model capability.
type LLMClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

// WebSearcher is the external web search capability. It reports failures as
// readable text, never as an error.
type WebSearcher interface {
	Search(ctx context.Context, query string) string
}

// QAService is the tiered answer composer: system-status short-circuit,
// direct context-stuffed answer, then the tool-using agent loop.
type QAService struct {
	chatRepo    *repository.ChatSessionRepository
	chunkRepo   *repository.ChunkRepository
	messageRepo *repository.ChatMessageRepository

	llm          LLMClient
	web          WebSearcher
	historyCache HistoryCache

	chatCfg       ai.ChatConfig
	embCfg        ai.EmbeddingConfig
	topK          int
	agentMaxSteps int
}

func NewQAService(
	chatRepo *repository.ChatSessionRepository,
	chunkRepo *repository.ChunkRepository,
	messageRepo *repository.ChatMessageRepository,
	llm LLMClient,
	web WebSearcher,
	historyCache HistoryCache,
	chatCfg ai.ChatConfig,
	embCfg ai.EmbeddingConfig,
	topK int,
	agentMaxSteps int,
) *QAService {
	if topK <= 0 {
		topK = 5
	}
	if agentMaxSteps <= 0 {
		agentMaxSteps = 5
	}
	return &QAService{
		chatRepo:      chatRepo,
		chunkRepo:     chunkRepo,
		messageRepo:   messageRepo,
		llm:           llm,
		web:           web,
		historyCache:  historyCache,
		chatCfg:       chatCfg,
		embCfg:        embCfg,
		topK:          topK,
		agentMaxSteps: agentMaxSteps,
	}
}

// AskResult is the outcome of one question. Persisted reports whether the
// exchange was appended to the chat history; short-circuit and failure
// answers are surfaced but not recorded.
type AskResult struct {
	Answer    string `json:"answer"`
	Tier      string `json:"tier"`
	Persisted bool   `json:"persisted"`
}

// Ask answers one question against the chat's current document set. Input
// validation and a missing chat are reported as errors; every failure past
// that point degrades to a renderable apology result instead.
func (s *QAService) Ask(ctx context.Context, chatID uint, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if chatID == 0 || question == "" {
		return nil, ErrInvalidInput
	}

	chat, err := s.chatRepo.GetByID(chatID)
	if err != nil {
		return s.failure(chatID, hintStorage, err), nil
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if len(chat.Documents) == 0 {
		return &AskResult{Answer: msgNoDocuments, Tier: TierNone}, nil
	}

	retriever, err := s.buildRetriever(chat.Documents)
	if err != nil {
		return s.failure(chatID, hintStorage, err), nil
	}
	if retriever == nil {
		return &AskResult{Answer: msgNoContent, Tier: TierNone}, nil
	}

	if isSystemQuestion(question) {
		answer := systemAnswer(chat.Documents)
		if err := s.appendMessage(ctx, chatID, question, answer); err != nil {
			return s.failure(chatID, hintStorage, err), nil
		}
		return &AskResult{Answer: answer, Tier: TierSystem, Persisted: true}, nil
	}

	if answer, ok := s.directAnswer(ctx, retriever, question); ok {
		if err := s.appendMessage(ctx, chatID, question, answer); err != nil {
			return s.failure(chatID, hintStorage, err), nil
		}
		return &AskResult{Answer: answer, Tier: TierDirect, Persisted: true}, nil
	}

	answer, err := s.agentAnswer(ctx, retriever, chat.Documents, question)
	if err != nil {
		return s.failure(chatID, modelHint(err), err), nil
	}
	if err := s.appendMessage(ctx, chatID, question, answer); err != nil {
		return s.failure(chatID, hintStorage, err), nil
	}
	return &AskResult{Answer: answer, Tier: TierAgent, Persisted: true}, nil
}

// buildRetriever loads the chunks of the given documents (grouped by
// document, ordered by chunk index) and indexes their stored vectors. A nil
// retriever means there is nothing to search, which is not an error.
func (s *QAService) buildRetriever(docs []model.Document) (*Retriever, error) {
	ids := make([]uint, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	chunks, err := s.chunkRepo.ListByDocumentIDs(ids)
	if err != nil {
		return nil, err
	}

	kept := make([]model.Chunk, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		v := c.EmbeddingVector()
		if len(v) == 0 {
			continue
		}
		kept = append(kept, c)
		vectors = append(vectors, v)
	}

	index := vectorindex.Build(vectors)
	if index == nil {
		return nil, nil
	}
	return &Retriever{
		index:  index,
		chunks: kept,
		topK:   s.topK,
		embedQuery: func(ctx context.Context, text string) ([]float32, error) {
			return s.llm.Embed(ctx, s.embCfg, text)
		},
	}, nil
}

// directAnswer is the single-shot tier: stuff the top-k chunks into one
// prompt and ask once. Any failure or an uncertain answer yields ok=false,
// signalling fall-through to the agent.
func (s *QAService) directAnswer(ctx context.Context, retriever *Retriever, question string) (string, bool) {
	chunks, err := retriever.Search(ctx, question)
	if err != nil {
		log.Printf("qa: direct retrieval failed: %v", err)
		return "", false
	}
	if len(chunks) == 0 {
		return "", false
	}

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	contextBlock := strings.Join(parts, "\n---\n")

	messages := []ai.ChatMessage{
		{Role: "system", Content: directSystemPrompt},
		{Role: "user", Content: "Context:\n" + contextBlock + "\n\nQuestion: " + question + "\n\nAnswer:"},
	}
	answer, err := s.llm.Complete(ctx, s.chatCfg, messages)
	if err != nil {
		log.Printf("qa: direct completion failed: %v", err)
		return "", false
	}
	answer = strings.TrimSpace(answer)
	if answer == "" || isUncertain(answer) {
		return "", false
	}
	return answer, true
}

const directSystemPrompt = "You are an AI assistant helping users with PDF document analysis. " +
	"Use the provided context to answer the question. " +
	"If the question is about the documents themselves (availability, existence, file info), " +
	"answer based on the fact that you have access to the document content. " +
	"If you don't know the answer based on the context, just say that you don't know; " +
	"do not try to make up an answer."

// agentAnswer runs the tool-using reasoning loop with the system-info,
// document-search and web-search tools.
func (s *QAService) agentAnswer(ctx context.Context, retriever *Retriever, docs []model.Document, question string) (string, error) {
	tools := []agent.Tool{
		{
			Name:        "SystemInfo",
			Description: "Get information about the currently loaded documents: names, count, total size and processing status. Use this for questions about document availability or file info.",
			Run: func(ctx context.Context, input string) string {
				return systemInfo(docs)
			},
		},
		{
			Name:        "PDFSearch",
			Description: "Search through the content of the uploaded PDF documents. Use this for questions about what is written inside the documents.",
			Run: func(ctx context.Context, input string) string {
				chunks, err := retriever.Search(ctx, input)
				if err != nil {
					return "document search error: " + err.Error()
				}
				if len(chunks) == 0 {
					return "No relevant PDF content found."
				}
				parts := make([]string, len(chunks))
				for i, c := range chunks {
					parts[i] = c.Content
				}
				return strings.Join(parts, "\n")
			},
		},
		{
			Name:        "WebSearch",
			Description: "Search the web for up-to-date information that is not in the documents.",
			Run: func(ctx context.Context, input string) string {
				return s.web.Search(ctx, input)
			},
		},
	}

	loop := agent.New(func(ctx context.Context, messages []ai.ChatMessage) (string, error) {
		return s.llm.Complete(ctx, s.chatCfg, messages)
	}, tools, s.agentMaxSteps)

	return loop.Run(ctx, question)
}

// appendMessage records one successful exchange and invalidates the cached
// history.
func (s *QAService) appendMessage(ctx context.Context, chatID uint, question, answer string) error {
	msg := &model.ChatMessage{ChatID: chatID, Question: question, Answer: answer}
	if err := s.messageRepo.Create(msg); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, chatID)
	}
	return nil
}

func (s *QAService) failure(chatID uint, hint string, err error) *AskResult {
	log.Printf("qa: answering failed (chat=%d, %s): %v", chatID, hint, err)
	return &AskResult{
		Answer: fmt.Sprintf("Sorry, I encountered a problem while processing your question (%s). Please try again.", hint),
		Tier:   TierNone,
	}
}

func modelHint(err error) string {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") {
		return hintQuota
	}
	return hintUnknown
}

func isSystemQuestion(question string) bool {
	q := strings.ToLower(question)
	for _, keyword := range systemQuestionKeywords {
		if strings.Contains(q, keyword) {
			return true
		}
	}
	return false
}

func isUncertain(answer string) bool {
	a := strings.ToLower(answer)
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(a, marker) {
			return true
		}
	}
	return false
}

func systemAnswer(docs []model.Document) string {
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.OriginalName
	}
	if len(docs) == 1 {
		return fmt.Sprintf("Yes, there is 1 PDF document in this chat: '%s'.", names[0])
	}
	return fmt.Sprintf("Yes, there are %d PDF documents in this chat: %s.", len(docs), strings.Join(names, ", "))
}

func systemInfo(docs []model.Document) string {
	if len(docs) == 0 {
		return "No document information available."
	}
	names := make([]string, len(docs))
	var totalSize int64
	for i, d := range docs {
		names[i] = d.OriginalName
		totalSize += d.FileSize
	}
	var b strings.Builder
	if len(docs) == 1 {
		fmt.Fprintf(&b, "Currently loaded document: %s\n", names[0])
	} else {
		fmt.Fprintf(&b, "Currently loaded documents (%d): %s\n", len(docs), strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Total file size: %d bytes\n", totalSize)
	b.WriteString("Document type: PDF\n")
	b.WriteString("Status: processed and indexed\n")
	return b.String()
}
