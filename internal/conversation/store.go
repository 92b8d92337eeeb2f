// Package conversation persists contacts, conversations, messages and the
// per-contact session window.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-core/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	DB            *gorm.DB
	WindowMinutes int
}

func NewStore(db *gorm.DB, windowMinutes int) *Store {
	return &Store{DB: db, WindowMinutes: windowMinutes}
}

// InboundMessage is a verified text message extracted from a webhook event.
type InboundMessage struct {
	From string
	Body string
}

// OutboundRecord captures a dispatched message for persistence.
type OutboundRecord struct {
	To                string
	Body              string
	TemplateName      string
	ProviderMessageID string
	Status            string
	ErrorCode         string
}

// EnsureContact upserts the contact for an external id. Existing contacts are
// left untouched; new ones start with no tags and opted in.
func (s *Store) EnsureContact(ctx context.Context, waID string) (*models.Contact, error) {
	contact := models.Contact{WaID: waID, Tags: "[]", OptIn: true}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&contact).Error
	if err != nil {
		return nil, fmt.Errorf("ensure contact %s: %w", waID, err)
	}
	if err := s.DB.WithContext(ctx).First(&contact, "wa_id = ?", waID).Error; err != nil {
		return nil, fmt.Errorf("ensure contact %s: %w", waID, err)
	}
	return &contact, nil
}

// EnsureConversation returns the contact's latest conversation if its window
// is still open, otherwise opens a new one. Runs inside tx, which must already
// hold the per-contact lock (see withContact).
func (s *Store) ensureConversation(tx *gorm.DB, waID string, now time.Time) (*models.Conversation, error) {
	var conv models.Conversation
	err := tx.Where("contact_wa_id = ?", waID).
		Order("id DESC").
		First(&conv).Error
	if err == nil && conv.WindowExpiresAt.After(now) {
		return &conv, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = models.Conversation{
		ContactWaID:     waID,
		WindowExpiresAt: now.Add(time.Duration(s.WindowMinutes) * time.Minute),
	}
	if err := tx.Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// withContact serializes conversation lookups per contact: the contact row is
// locked for the duration of the transaction on stores that support it, so
// concurrent events for one contact cannot open duplicate windows.
func (s *Store) withContact(ctx context.Context, waID string, fn func(tx *gorm.DB) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx
		if tx.Dialector.Name() == "postgres" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var contact models.Contact
		if err := locked.First(&contact, "wa_id = ?", waID).Error; err != nil {
			return err
		}
		return fn(tx)
	})
}

func (s *Store) persist(ctx context.Context, waID string, build func(conversationID uint) models.Message) (*models.Message, error) {
	if _, err := s.EnsureContact(ctx, waID); err != nil {
		return nil, err
	}

	var msg models.Message
	err := s.withContact(ctx, waID, func(tx *gorm.DB) error {
		now := time.Now()
		conv, err := s.ensureConversation(tx, waID, now)
		if err != nil {
			return err
		}

		msg = build(conv.ID)
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		// Window is bumped on every message exchanged within it.
		conv.WindowExpiresAt = now.Add(time.Duration(s.WindowMinutes) * time.Minute)
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update("window_expires_at", conv.WindowExpiresAt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("persist message for %s: %w", waID, err)
	}
	return &msg, nil
}

func (s *Store) PersistInbound(ctx context.Context, in InboundMessage) (*models.Message, error) {
	return s.persist(ctx, in.From, func(conversationID uint) models.Message {
		return models.Message{
			ConversationID: conversationID,
			Direction:      models.DirectionInbound,
			Type:           models.TypeText,
			Body:           in.Body,
			Status:         "delivered",
		}
	})
}

func (s *Store) PersistOutbound(ctx context.Context, out OutboundRecord) (*models.Message, error) {
	msgType := models.TypeText
	if out.TemplateName != "" {
		msgType = models.TypeTemplate
	}
	return s.persist(ctx, out.To, func(conversationID uint) models.Message {
		return models.Message{
			ConversationID:    conversationID,
			Direction:         models.DirectionOutbound,
			Type:              msgType,
			Body:              out.Body,
			TemplateName:      out.TemplateName,
			Status:            out.Status,
			ProviderMessageID: out.ProviderMessageID,
			ErrorCode:         out.ErrorCode,
		}
	})
}

// RecentMessages lists messages newest-first for the dashboard listing.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// Ping reports whether the persistence store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
