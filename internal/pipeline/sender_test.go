package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"whatsapp-core/internal/conversation"
	"whatsapp-core/internal/database"
	"whatsapp-core/internal/metrics"
	"whatsapp-core/internal/models"
	"whatsapp-core/internal/ratelimit"
	"whatsapp-core/internal/whatsapp"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeLimiter struct {
	err   error
	calls int
}

func (f *fakeLimiter) Enforce(ctx context.Context, recipient string) error {
	f.calls++
	return f.err
}

type fakeTransport struct {
	id        string
	err       error
	lastTo    string
	lastTmpl  string
	templated bool
}

func (f *fakeTransport) SendText(ctx context.Context, to, body string) (string, []byte, error) {
	f.lastTo = to
	return f.id, []byte(`{"messages":[{"id":"` + f.id + `"}]}`), f.err
}

func (f *fakeTransport) SendTemplate(ctx context.Context, to, templateName, languageCode string, variables []string) (string, []byte, error) {
	f.lastTo = to
	f.lastTmpl = templateName
	f.templated = true
	return f.id, []byte(`{"messages":[{"id":"` + f.id + `"}]}`), f.err
}

func newSender(t *testing.T, limiter *fakeLimiter, transport *fakeTransport) (*Sender, *conversation.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	store := conversation.NewStore(db, 1440)

	return &Sender{
		Limiter:   limiter,
		Transport: transport,
		Store:     store,
		Metrics:   metrics.NewCollector(),
		Logger:    zerolog.Nop(),
	}, store
}

func TestSendAndPersistSuccess(t *testing.T) {
	transport := &fakeTransport{id: "wamsg123"}
	sender, store := newSender(t, &fakeLimiter{}, transport)

	res, err := sender.SendAndPersist(context.Background(), Payload{To: "1234567890", Body: "hello"})
	require.NoError(t, err)
	require.Equal(t, "wamsg123", res.MessageID)

	var msg models.Message
	require.NoError(t, store.DB.First(&msg, "provider_message_id = ?", "wamsg123").Error)
	require.Equal(t, models.DirectionOutbound, msg.Direction)
	require.Equal(t, "sent", msg.Status)

	s := sender.Metrics.GetMetrics()
	require.EqualValues(t, 1, s.Sent)
}

func TestSendAndPersistTemplatePayload(t *testing.T) {
	transport := &fakeTransport{id: "wamsg456"}
	sender, store := newSender(t, &fakeLimiter{}, transport)

	_, err := sender.SendAndPersist(context.Background(), Payload{
		To:             "1234567890",
		TemplateName:   "greet",
		TemplateLocale: "en",
		Variables:      []string{"Ada"},
	})
	require.NoError(t, err)
	require.True(t, transport.templated)
	require.Equal(t, "greet", transport.lastTmpl)

	var msg models.Message
	require.NoError(t, store.DB.First(&msg, "provider_message_id = ?", "wamsg456").Error)
	require.Equal(t, models.TypeTemplate, msg.Type)
	require.Equal(t, "greet", msg.TemplateName)
}

func TestSendAndPersistRateLimited(t *testing.T) {
	limiter := &fakeLimiter{err: ratelimit.ErrRateLimitExceeded}
	transport := &fakeTransport{id: "wamsg789"}
	sender, store := newSender(t, limiter, transport)

	_, err := sender.SendAndPersist(context.Background(), Payload{To: "1234567890", Body: "hello"})
	require.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
	// Limit error propagates unchanged and nothing is sent or persisted.
	require.Empty(t, transport.lastTo)

	var count int64
	require.NoError(t, store.DB.Model(&models.Message{}).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, sender.Metrics.GetMetrics().Sent)
}

func TestSendAndPersistTransportError(t *testing.T) {
	transport := &fakeTransport{err: &whatsapp.TransportError{Status: 500, Body: "upstream down"}}
	sender, store := newSender(t, &fakeLimiter{}, transport)

	_, err := sender.SendAndPersist(context.Background(), Payload{To: "1234567890", Body: "hello"})
	var transportErr *whatsapp.TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, 500, transportErr.Status)

	var count int64
	require.NoError(t, store.DB.Model(&models.Message{}).Count(&count).Error)
	require.Zero(t, count)
}
