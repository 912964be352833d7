package postgres

import (
	"time"

	"folio-chat/domain"

	"github.com/google/uuid"
)

type messageModel struct {
	MessageID      uuid.UUID  `gorm:"column:message_id;type:uuid;primaryKey"`
	SenderID       string     `gorm:"column:sender_id"`
	RecipientID    string     `gorm:"column:recipient_id"`
	ConversationID string     `gorm:"column:conversation_id"`
	Text           string     `gorm:"column:text"`
	Deleted        bool       `gorm:"column:deleted"`
	Status         string     `gorm:"column:status"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (messageModel) TableName() string { return "messages" }

type conversationRow struct {
	UserID        string    `gorm:"column:user_id"`
	LastMessageAt time.Time `gorm:"column:last_message_at"`
}

func fromDomainMessage(m domain.Message) messageModel {
	return messageModel{
		MessageID:      m.ID,
		SenderID:       string(m.SenderID),
		RecipientID:    string(m.RecipientID),
		ConversationID: string(m.ConversationID),
		Text:           m.Text,
		Deleted:        m.Deleted,
		Status:         string(m.Status),
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toDomainMessage(row messageModel) domain.Message {
	return domain.Message{
		ID:             row.MessageID,
		SenderID:       domain.UserID(row.SenderID),
		RecipientID:    domain.UserID(row.RecipientID),
		ConversationID: domain.ConversationID(row.ConversationID),
		Text:           row.Text,
		Deleted:        row.Deleted,
		Status:         domain.MessageStatus(row.Status),
		ReadAt:         row.ReadAt,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}
