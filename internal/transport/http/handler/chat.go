package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pdfqa/internal/app"
	"pdfqa/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
	qaService   *app.QAService
}

type CreateChatRequest struct {
	Name string `json:"name" binding:"max=128"`
}

type RenameChatRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService, qaService *app.QAService) *ChatHandler {
	return &ChatHandler{chatService: chatService, qaService: qaService}
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	session, err := h.chatService.CreateChat(c.Request.Context(), req.Name)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create chat failed")
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	summaries, err := h.chatService.ListChats(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list chats failed")
		return
	}
	response.OK(c, summaries)
}

func (h *ChatHandler) RenameChat(c *gin.Context) {
	chatID, err := parseUintParam(c, "id")
	if err != nil || chatID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	var req RenameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.chatService.RenameChat(c.Request.Context(), chatID, req.Name); err != nil {
		h.writeServiceError(c, err, "rename chat failed")
		return
	}
	response.OK(c, gin.H{"id": chatID, "name": req.Name})
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID, err := parseUintParam(c, "id")
	if err != nil || chatID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	if err := h.chatService.DeleteChat(c.Request.Context(), chatID); err != nil {
		h.writeServiceError(c, err, "delete chat failed")
		return
	}
	response.OK(c, gin.H{"deleted_chat_id": chatID})
}

func (h *ChatHandler) AddDocument(c *gin.Context) {
	chatID, err := parseUintParam(c, "id")
	if err != nil || chatID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	docID, err := parseUintParam(c, "docID")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	if err := h.chatService.AddDocument(c.Request.Context(), chatID, docID); err != nil {
		h.writeServiceError(c, err, "add document to chat failed")
		return
	}
	response.OK(c, gin.H{"chat_id": chatID, "document_id": docID})
}

func (h *ChatHandler) RemoveDocument(c *gin.Context) {
	chatID, err := parseUintParam(c, "id")
	if err != nil || chatID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	docID, err := parseUintParam(c, "docID")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	if err := h.chatService.RemoveDocument(c.Request.Context(), chatID, docID); err != nil {
		h.writeServiceError(c, err, "remove document from chat failed")
		return
	}
	response.OK(c, gin.H{"chat_id": chatID, "removed_document_id": docID})
}

func (h *ChatHandler) ListDocuments(c *gin.Context) {
	chatID, err := parseUintParam(c, "id")
	if err != nil || chatID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	docs, err := h.chatService.ChatDocuments(c.Request.Context(), chatID)
	if err != nil {
		h.writeServiceError(c, err, "list chat documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *ChatHandler) Ask(c *gin.Context) {
	chatID, err := parseUintParam(c, "id")
	if err != nil || chatID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.qaService.Ask(c.Request.Context(), chatID, req.Question)
	if err != nil {
		h.writeServiceError(c, err, "ask failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	chatID, err := parseUintParam(c, "id")
	if err != nil || chatID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	messages, err := h.chatService.History(c.Request.Context(), chatID)
	if err != nil {
		h.writeServiceError(c, err, "get history failed")
		return
	}
	response.OK(c, messages)
}

func (h *ChatHandler) ClearHistory(c *gin.Context) {
	chatID, err := parseUintParam(c, "id")
	if err != nil || chatID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	if err := h.chatService.ClearHistory(c.Request.Context(), chatID); err != nil {
		h.writeServiceError(c, err, "clear history failed")
		return
	}
	response.OK(c, gin.H{"cleared_chat_id": chatID})
}

func (h *ChatHandler) writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrChatNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	s := c.Param(key)
	u, err := strconv.ParseUint(s, 10, 64)
	return uint(u), err
}
