// Package pipeline composes the rate limiter, provider transport and
// conversation store into a single outbound dispatch step.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"whatsapp-core/internal/conversation"
	"whatsapp-core/internal/metrics"
	"whatsapp-core/internal/models"

	"github.com/rs/zerolog"
)

// Payload is one outbound message: either free text or a template reference.
type Payload struct {
	To             string   `json:"to" binding:"required"`
	Body           string   `json:"body,omitempty"`
	TemplateName   string   `json:"template_name,omitempty"`
	TemplateLocale string   `json:"template_locale,omitempty"`
	Variables      []string `json:"variables,omitempty"`
}

func (p Payload) IsTemplate() bool {
	return p.TemplateName != ""
}

type Result struct {
	MessageID string          `json:"message_id"`
	Raw       json.RawMessage `json:"raw_response"`
}

// RateLimiter is the atomic per-recipient quota.
type RateLimiter interface {
	Enforce(ctx context.Context, recipient string) error
}

// Transport is the provider client.
type Transport interface {
	SendText(ctx context.Context, to, body string) (string, []byte, error)
	SendTemplate(ctx context.Context, to, templateName, languageCode string, variables []string) (string, []byte, error)
}

// Persister records dispatched messages.
type Persister interface {
	PersistOutbound(ctx context.Context, out conversation.OutboundRecord) (*models.Message, error)
}

type Sender struct {
	Limiter   RateLimiter
	Transport Transport
	Store     Persister
	Metrics   *metrics.Collector
	Logger    zerolog.Logger
}

// SendAndPersist dispatches one message. The rate-limit error propagates
// unchanged; transport failures carry the provider status and body. A crash
// between the provider call and persistence leaves a sent-but-unrecorded
// message; the provider remains the authoritative delivery record.
func (s *Sender) SendAndPersist(ctx context.Context, p Payload) (*Result, error) {
	if err := s.Limiter.Enforce(ctx, p.To); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		providerID string
		raw        []byte
		err        error
	)
	if p.IsTemplate() {
		providerID, raw, err = s.Transport.SendTemplate(ctx, p.To, p.TemplateName, p.TemplateLocale, p.Variables)
	} else {
		providerID, raw, err = s.Transport.SendText(ctx, p.To, p.Body)
	}
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	_, err = s.Store.PersistOutbound(ctx, conversation.OutboundRecord{
		To:                p.To,
		Body:              p.Body,
		TemplateName:      p.TemplateName,
		ProviderMessageID: providerID,
		Status:            "sent",
	})
	if err != nil {
		return nil, fmt.Errorf("record outbound message: %w", err)
	}

	s.Metrics.RecordSent(elapsed)
	s.Logger.Info().
		Str("to", p.To).
		Str("provider_message_id", providerID).
		Dur("elapsed", elapsed).
		Msg("message sent")

	return &Result{MessageID: providerID, Raw: raw}, nil
}
