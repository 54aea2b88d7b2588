package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"pdfqa/internal/ai"
	appsvc "pdfqa/internal/app"
	"pdfqa/internal/bootstrap"
	"pdfqa/internal/cache"
	"pdfqa/internal/repository"
	"pdfqa/internal/transport/http/handler"
	"pdfqa/internal/websearch"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	docRepo := repository.NewDocumentRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	chatRepo := repository.NewChatSessionRepository(app.MySQL)
	messageRepo := repository.NewChatMessageRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
	)
	chatCfg := ai.ChatConfig{
		BaseURL:     app.Config.LLM.BaseURL,
		APIKey:      app.Config.LLM.APIKey,
		Model:       app.Config.LLM.Model,
		Temperature: app.Config.LLM.Temperature,
	}
	embCfg := ai.EmbeddingConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.EmbeddingModel,
	}

	chatService := appsvc.NewChatService(chatRepo, messageRepo, docRepo, historyCache)
	qaService := appsvc.NewQAService(
		chatRepo,
		chunkRepo,
		messageRepo,
		app.LLM,
		websearch.NewClient(app.Config.Serper.APIKey),
		historyCache,
		chatCfg,
		embCfg,
		app.Config.RAG.TopK,
		app.Config.RAG.AgentMaxSteps,
	)

	chatHandler := handler.NewChatHandler(chatService, qaService)
	documentHandler := handler.NewDocumentHandler(
		app.Documents,
		app.Config.Upload.Dir,
		app.Config.MaxUploadBytes(),
	)

	v1 := router.Group("/api/v1")

	chats := v1.Group("/chats")
	chats.POST("", chatHandler.CreateChat)
	chats.GET("", chatHandler.ListChats)
	chats.PATCH("/:id", chatHandler.RenameChat)
	chats.DELETE("/:id", chatHandler.DeleteChat)
	chats.GET("/:id/documents", chatHandler.ListDocuments)
	chats.POST("/:id/documents/:docID", chatHandler.AddDocument)
	chats.DELETE("/:id/documents/:docID", chatHandler.RemoveDocument)
	chats.POST("/:id/ask", chatHandler.Ask)
	chats.GET("/:id/history", chatHandler.GetHistory)
	chats.DELETE("/:id/history", chatHandler.ClearHistory)

	documents := v1.Group("/documents")
	documents.POST("", documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.DELETE("/:id", documentHandler.Delete)

	return router
}
