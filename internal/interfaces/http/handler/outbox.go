package handler

import (
	"github.com/gin-gonic/gin"
	appevent "github.com/supplytrace/backend/internal/application/event"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
)

// OutboxHandler serves dead-letter inspection and replay for the event outbox
type OutboxHandler struct {
	BaseHandler
	outbox *appevent.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outbox *appevent.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// RetryAllResponse reports how many dead entries were requeued
type RetryAllResponse struct {
	Requeued int64 `json:"requeued"`
}

// ListDead returns one page of dead entries, newest first
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var filter appevent.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.outbox.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Get returns one outbox entry
func (h *OutboxHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.outbox.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Retry requeues one dead entry
func (h *OutboxHandler) Retry(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAll requeues every dead entry
func (h *OutboxHandler) RetryAll(c *gin.Context) {
	n, err := h.outbox.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Requeued: n})
}

// Stats returns entry counts per status
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
