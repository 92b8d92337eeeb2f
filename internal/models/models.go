package models

import (
	"time"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message types.
const (
	TypeText     = "text"
	TypeTemplate = "template"
)

// Template statuses.
const (
	TemplateStatusPending  = "pending"
	TemplateStatusApproved = "approved"
	TemplateStatusRejected = "rejected"
)

// Contact represents a WhatsApp contact, created idempotently on first interaction.
type Contact struct {
	WaID      string    `gorm:"primaryKey" json:"wa_id"` // WhatsApp ID (phone number)
	Tags      string    `gorm:"type:text;default:'[]'" json:"tags"` // JSON array of tags
	OptIn     bool      `gorm:"default:true" json:"opt_in"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Conversation is one session window for a contact. Never deleted; a new one is
// opened only after the previous window has elapsed.
type Conversation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ContactWaID     string    `gorm:"type:varchar(50);not null;index" json:"contact_wa_id"`
	WindowExpiresAt time.Time `gorm:"not null;index" json:"window_expires_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message belongs to exactly one conversation and is immutable once written.
type Message struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ConversationID    uint      `gorm:"not null;index" json:"conversation_id"`
	Direction         string    `gorm:"type:varchar(10);not null" json:"direction"`
	Type              string    `gorm:"type:varchar(20);not null" json:"type"`
	Body              string    `gorm:"type:text" json:"body"`
	TemplateName      string    `gorm:"type:varchar(255)" json:"template_name,omitempty"`
	Status            string    `gorm:"type:varchar(20)" json:"status"`
	ProviderMessageID string    `gorm:"type:varchar(255)" json:"provider_message_id,omitempty"`
	ErrorCode         string    `gorm:"type:varchar(50)" json:"error_code,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Template is a pre-approved outbound message format.
type Template struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Locale    string    `gorm:"type:varchar(10);not null" json:"locale"`
	Category  string    `gorm:"type:varchar(50);not null" json:"category"` // service | marketing | authentication
	Body      string    `gorm:"type:text;not null" json:"body"`
	Variables string    `gorm:"type:text;default:'[]'" json:"variables"` // ordered JSON array of placeholders
	Status    string    `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}
