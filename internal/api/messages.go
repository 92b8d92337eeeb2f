package api

import (
	"errors"
	"net/http"
	"strconv"

	"whatsapp-core/internal/conversation"
	"whatsapp-core/internal/dispatch"
	"whatsapp-core/internal/pipeline"
	"whatsapp-core/internal/ratelimit"
	"whatsapp-core/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	Dispatcher dispatch.Dispatcher
	Store      *conversation.Store
}

func NewMessageHandler(dispatcher dispatch.Dispatcher, store *conversation.Store) *MessageHandler {
	return &MessageHandler{Dispatcher: dispatcher, Store: store}
}

// Send accepts an outbound payload and hands it to the configured dispatcher.
func (h *MessageHandler) Send(c *gin.Context) {
	var p pipeline.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if p.Body == "" && p.TemplateName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either body or template_name is required"})
		return
	}

	if err := h.Dispatcher.Enqueue(c.Request.Context(), p); err != nil {
		var transportErr *whatsapp.TransportError
		switch {
		case errors.Is(err, ratelimit.ErrRateLimitExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		case errors.As(err, &transportErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": "provider rejected message", "detail": transportErr.Body})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// List returns recent messages, newest first.
func (h *MessageHandler) List(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	messages, err := h.Store.RecentMessages(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, messages)
}
