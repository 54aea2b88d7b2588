package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pdfqa/internal/app"
	"pdfqa/internal/transport/http/response"
)

type DocumentHandler struct {
	documents *app.DocumentService
	uploadDir string
	maxBytes  int64
}

func NewDocumentHandler(documents *app.DocumentService, uploadDir string, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
	}
}

type uploadResult struct {
	Filename   string `json:"filename"`
	DocumentID uint   `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Upload accepts a multipart form with one or more PDFs under "files". Files
// are validated and stored independently, so one bad file does not reject
// the rest of the batch.
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files provided")
		return
	}

	results := make([]uploadResult, 0, len(files))
	for _, file := range files {
		result := uploadResult{Filename: file.Filename}

		if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".pdf" {
			result.Error = "only PDF files are allowed"
			results = append(results, result)
			continue
		}
		if file.Size > h.maxBytes {
			result.Error = fmt.Sprintf("file too large (max %d bytes)", h.maxBytes)
			results = append(results, result)
			continue
		}

		storedName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(file.Filename))
		path := filepath.Join(h.uploadDir, storedName)
		if err := c.SaveUploadedFile(file, path); err != nil {
			result.Error = "failed to store file"
			results = append(results, result)
			continue
		}

		doc, err := h.documents.Register(c.Request.Context(), storedName, file.Filename, path, file.Size)
		if err != nil {
			result.Error = "failed to register document"
			results = append(results, result)
			continue
		}

		result.DocumentID = doc.ID
		results = append(results, result)
	}

	response.OK(c, results)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	if err := h.documents.Delete(c.Request.Context(), docID); err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_document_id": docID})
}
