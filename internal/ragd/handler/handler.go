// Package handler provides the HTTP handlers of the retrieval service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vektor-io/ragd/internal/ragd/biz"
	"github.com/vektor-io/ragd/pkg/errors"
)

// queryTimeout bounds retrieval plus answer generation.
const queryTimeout = 60 * time.Second

// Handler handles retrieval HTTP requests.
type Handler struct {
	service biz.Service
}

// New creates a Handler.
func New(service biz.Service) *Handler {
	return &Handler{service: service}
}

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, err error) {
	c.JSON(errors.HTTPStatus(err), ErrorResponse{
		Code:    errors.Code(err),
		Message: err.Error(),
	})
}

// IndexRequest is the body of an index call.
type IndexRequest struct {
	Owner          string `json:"owner" binding:"required"`
	FileID         string `json:"file_id"`
	FileName       string `json:"file_name"`
	Content        string `json:"content" binding:"required"`
	ContentType    string `json:"content_type"`
	EmbeddingModel string `json:"embedding_model"`
}

// Index ingests one document.
func (h *Handler) Index(c *gin.Context) {
	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.ErrInvalidRequest.WithCause(err))
		return
	}

	result, err := h.service.Index(c.Request.Context(), &biz.IndexRequest{
		Owner:       req.Owner,
		FileID:      req.FileID,
		FileName:    req.FileName,
		Raw:         []byte(req.Content),
		ContentType: req.ContentType,
		EmbedModel:  req.EmbeddingModel,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Document indexed successfully", Data: result})
}

// RetrieveRequest is the body of a retrieve or query call.
type RetrieveRequest struct {
	Owner          string   `json:"owner" binding:"required"`
	Query          string   `json:"query" binding:"required"`
	Limit          int      `json:"limit"`
	ScoreThreshold float32  `json:"score_threshold"`
	FileIDs        []string `json:"file_ids"`
	Hybrid         bool     `json:"hybrid"`
	Rerank         bool     `json:"rerank"`
	EmbeddingModel string   `json:"embedding_model"`
}

func (r *RetrieveRequest) toBiz() *biz.RetrieveRequest {
	return &biz.RetrieveRequest{
		Owner:          r.Owner,
		Query:          r.Query,
		Limit:          r.Limit,
		ScoreThreshold: r.ScoreThreshold,
		FileIDs:        r.FileIDs,
		Hybrid:         r.Hybrid,
		Rerank:         r.Rerank,
		EmbedModel:     r.EmbeddingModel,
	}
}

// Retrieve returns ranked passages for a query.
func (h *Handler) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.ErrInvalidRequest.WithCause(err))
		return
	}

	results, err := h.service.Retrieve(c.Request.Context(), req.toBiz())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: results})
}

// Query retrieves passages and generates a grounded answer.
func (h *Handler) Query(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.ErrInvalidRequest.WithCause(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, req.toBiz())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: result})
}

// DeleteDocument removes a document and all its chunks.
func (h *Handler) DeleteDocument(c *gin.Context) {
	owner := c.Param("owner")
	fileID := c.Param("file_id")

	if err := h.service.DeleteDocument(c.Request.Context(), owner, fileID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Document deleted successfully"})
}

// Stats returns the chunk count of an owner's collection, or of one
// document when the file_id query parameter is set.
func (h *Handler) Stats(c *gin.Context) {
	owner := c.Param("owner")
	fileID := c.Query("file_id")

	count, err := h.service.Stats(c.Request.Context(), owner, fileID)
	if err != nil {
		writeError(c, err)
		return
	}

	data := gin.H{
		"owner":       owner,
		"chunk_count": count,
	}
	if fileID != "" {
		data["file_id"] = fileID
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: data})
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
