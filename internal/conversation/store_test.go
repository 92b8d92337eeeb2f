package conversation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"whatsapp-core/internal/database"
	"whatsapp-core/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newStore(t *testing.T, windowMinutes int) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return NewStore(db, windowMinutes)
}

func TestEnsureContactIdempotent(t *testing.T) {
	s := newStore(t, 1440)

	first, err := s.EnsureContact(context.Background(), "1234567890")
	require.NoError(t, err)
	require.Equal(t, "1234567890", first.WaID)
	require.True(t, first.OptIn)
	require.Equal(t, "[]", first.Tags)

	second, err := s.EnsureContact(context.Background(), "1234567890")
	require.NoError(t, err)
	require.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())

	var count int64
	require.NoError(t, s.DB.Model(&models.Contact{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPersistInboundCreatesConversationAndBumpsWindow(t *testing.T) {
	s := newStore(t, 1440)

	before := time.Now()
	msg, err := s.PersistInbound(context.Background(), InboundMessage{From: "1234567890", Body: "hello"})
	require.NoError(t, err)
	require.Equal(t, models.DirectionInbound, msg.Direction)
	require.Equal(t, models.TypeText, msg.Type)
	require.Equal(t, "delivered", msg.Status)

	var conv models.Conversation
	require.NoError(t, s.DB.First(&conv, msg.ConversationID).Error)
	require.Equal(t, "1234567890", conv.ContactWaID)

	// Window extended to roughly now + WINDOW_MINUTES.
	expected := before.Add(1440 * time.Minute)
	require.WithinDuration(t, expected, conv.WindowExpiresAt, 5*time.Second)
}

func TestConversationReusedWhileWindowOpen(t *testing.T) {
	s := newStore(t, 1440)

	first, err := s.PersistInbound(context.Background(), InboundMessage{From: "111", Body: "a"})
	require.NoError(t, err)
	second, err := s.PersistOutbound(context.Background(), OutboundRecord{To: "111", Body: "b", Status: "sent"})
	require.NoError(t, err)
	require.Equal(t, first.ConversationID, second.ConversationID)

	var count int64
	require.NoError(t, s.DB.Model(&models.Conversation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestNewConversationAfterWindowElapsed(t *testing.T) {
	s := newStore(t, 1440)

	first, err := s.PersistInbound(context.Background(), InboundMessage{From: "222", Body: "a"})
	require.NoError(t, err)

	// Force the open window into the past.
	require.NoError(t, s.DB.Model(&models.Conversation{}).
		Where("id = ?", first.ConversationID).
		Update("window_expires_at", time.Now().Add(-time.Minute)).Error)

	second, err := s.PersistInbound(context.Background(), InboundMessage{From: "222", Body: "b"})
	require.NoError(t, err)
	require.NotEqual(t, first.ConversationID, second.ConversationID)

	// At most one conversation has a future window.
	var open int64
	require.NoError(t, s.DB.Model(&models.Conversation{}).
		Where("contact_wa_id = ? AND window_expires_at > ?", "222", time.Now()).
		Count(&open).Error)
	require.EqualValues(t, 1, open)
}

func TestPersistOutboundTemplateType(t *testing.T) {
	s := newStore(t, 1440)

	msg, err := s.PersistOutbound(context.Background(), OutboundRecord{
		To:                "333",
		TemplateName:      "greet",
		ProviderMessageID: "wamsg123",
		Status:            "sent",
	})
	require.NoError(t, err)
	require.Equal(t, models.DirectionOutbound, msg.Direction)
	require.Equal(t, models.TypeTemplate, msg.Type)
	require.Equal(t, "wamsg123", msg.ProviderMessageID)
}

func TestRecentMessagesNewestFirst(t *testing.T) {
	s := newStore(t, 1440)

	for _, body := range []string{"one", "two", "three"} {
		_, err := s.PersistInbound(context.Background(), InboundMessage{From: "444", Body: body})
		require.NoError(t, err)
	}

	messages, err := s.RecentMessages(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "three", messages[0].Body)
	require.Equal(t, "two", messages[1].Body)
}
