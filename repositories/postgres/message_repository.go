package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	row := fromDomainMessage(message)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Message{}, err
	}
	return toDomainMessage(row), nil
}

func (r *MessageRepository) ConversationExists(ctx context.Context, conv domain.ConversationID) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM messages WHERE conversation_id = ?)", string(conv)).
		Scan(&exists).Error
	return exists, err
}

func (r *MessageRepository) FindPaginated(ctx context.Context, a, b domain.UserID, skip, limit int) ([]domain.Message, int, error) {
	scope := r.db.WithContext(ctx).Model(&messageModel{}).
		Where("conversation_id = ?", string(domain.NewConversationID(a, b))).
		Where("deleted = ?", false)

	var total int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []messageModel
	err := scope.Session(&gorm.Session{}).
		Order("created_at DESC").Order("message_id DESC").
		Offset(skip).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(rows, func(row messageModel, _ int) domain.Message { return toDomainMessage(row) }), int(total), nil
}

func (r *MessageRepository) RecentConversations(ctx context.Context, userID domain.UserID) ([]domain.ConversationSummary, error) {
	var rows []conversationRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT CASE WHEN sender_id = @user THEN recipient_id ELSE sender_id END AS user_id,
		       MAX(created_at) AS last_message_at
		FROM messages
		WHERE (sender_id = @user OR recipient_id = @user) AND deleted = FALSE
		GROUP BY 1
		ORDER BY last_message_at DESC`,
		map[string]any{"user": string(userID)}).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row conversationRow, _ int) domain.ConversationSummary {
		return domain.ConversationSummary{UserID: domain.UserID(row.UserID), LastMessageAt: row.LastMessageAt.UTC()}
	}), nil
}

func (r *MessageRepository) MarkConversationRead(ctx context.Context, reader, other domain.UserID, at time.Time) (int, error) {
	result := r.db.WithContext(ctx).Model(&messageModel{}).
		Where("conversation_id = ?", string(domain.NewConversationID(reader, other))).
		Where("recipient_id = ?", string(reader)).
		Where("status = ?", string(domain.StatusUnread)).
		Where("deleted = ?", false).
		Updates(map[string]any{"status": string(domain.StatusRead), "read_at": at, "updated_at": at})
	return int(result.RowsAffected), result.Error
}

func (r *MessageRepository) SoftDelete(ctx context.Context, messageID uuid.UUID, requester domain.UserID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row messageModel
		err := tx.Where("message_id = ?", messageID).Where("deleted = ?", false).Take(&row).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		if domain.UserID(row.SenderID) != requester {
			return errors.ErrForbidden
		}
		return tx.Model(&messageModel{}).
			Where("message_id = ?", messageID).
			Updates(map[string]any{"deleted": true, "updated_at": at}).Error
	})
}
