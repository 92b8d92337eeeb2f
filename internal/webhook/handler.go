// Package webhook verifies and ingests inbound provider events.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"whatsapp-core/internal/config"
	"whatsapp-core/internal/conversation"
	"whatsapp-core/internal/metrics"
	"whatsapp-core/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const signatureHeader = "X-Hub-Signature-256"

type Handler struct {
	Config  *config.Config
	Store   *conversation.Store
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

func NewHandler(cfg *config.Config, store *conversation.Store, collector *metrics.Collector, logger zerolog.Logger) *Handler {
	return &Handler{
		Config:  cfg,
		Store:   store,
		Metrics: collector,
		Logger:  logger,
	}
}

// Verify answers the provider's subscription handshake.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if mode == "subscribe" && token == h.Config.VerifyToken {
		h.Logger.Info().Msg("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive authenticates the delivery against its HMAC signature and persists
// any inbound text message. The digest is computed over the exact raw request
// bytes, before any parsing.
func (h *Handler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if !h.validSignature(body, c.GetHeader(signatureHeader)) {
		h.Logger.Warn().Msg("webhook signature mismatch")
		c.Status(http.StatusUnauthorized)
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		c.Status(http.StatusOK)
		return
	}
	value := payload.Entry[0].Changes[0].Value

	// Delivery receipts update counters only; no persistence.
	if len(value.Statuses) > 0 {
		switch value.Statuses[0].Status {
		case "delivered":
			h.Metrics.RecordDelivered()
		case "read":
			h.Metrics.RecordRead()
		case "failed":
			h.Metrics.RecordFailed()
		}
		c.Status(http.StatusOK)
		return
	}

	if len(value.Messages) == 0 {
		c.Status(http.StatusOK)
		return
	}
	message := value.Messages[0]
	if message.Type != "text" {
		// Media and location events are acknowledged and dropped.
		h.Logger.Debug().Str("type", message.Type).Str("from", message.From).Msg("non-text event skipped")
		c.Status(http.StatusOK)
		return
	}

	_, err = h.Store.PersistInbound(c.Request.Context(), conversation.InboundMessage{
		From: message.From,
		Body: message.Text.Body,
	})
	if err != nil {
		// The provider redelivers on 5xx.
		h.Logger.Error().Str("from", message.From).Err(err).Msg("failed to persist inbound message")
		c.Status(http.StatusInternalServerError)
		return
	}

	h.Logger.Info().Str("from", message.From).Msg("inbound message stored")
	c.Status(http.StatusOK)
}

func (h *Handler) validSignature(body []byte, header string) bool {
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Config.AppSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(header, "sha256=")))
}
