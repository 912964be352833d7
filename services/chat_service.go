package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/domain/chat"
	"folio-chat/errors"

	"github.com/google/uuid"
)

// ChatService is the request/response side of messaging: history, the
// conversation list, read status and deletion. Real-time delivery lives in runtime.
type ChatService struct {
	log        *slog.Logger
	repository contract.MessageRepository
	now        func() time.Time
}

func NewChatService(log *slog.Logger, repository contract.MessageRepository) *ChatService {
	return &ChatService{
		log:        log,
		repository: repository,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GetMessages returns one page of the conversation between User1 and User2, newest first.
// Either user may be first, both orders address the same conversation.
func (s *ChatService) GetMessages(ctx context.Context, cmd chat.GetMessagesCommand) (domain.PaginatedMessages, error) {
	if err := cmd.Validate(); err != nil {
		return domain.PaginatedMessages{}, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	messages, total, err := s.repository.FindPaginated(ctx, cmd.User1, cmd.User2, cmd.Page.Skip(), cmd.Page.Limit)
	if err != nil {
		return domain.PaginatedMessages{}, fmt.Errorf("find messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return domain.PaginatedMessages{Data: messages, Pagination: domain.NewPagination(total, cmd.Page)}, nil
}

func (s *ChatService) RecentConversations(ctx context.Context, userID domain.UserID) ([]domain.ConversationSummary, error) {
	summaries, err := s.repository.RecentConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recent conversations of %s: %w", userID, err)
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	return summaries, nil
}

// MarkRead marks every message other sent to reader as read.
func (s *ChatService) MarkRead(ctx context.Context, reader, other domain.UserID) (int, error) {
	if reader == other {
		return 0, errors.ErrSelfMessage
	}
	updated, err := s.repository.MarkConversationRead(ctx, reader, other, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	s.log.Debug("Conversation marked as read", "reader", reader, "other", other, "updated", updated)
	return updated, nil
}

// DeleteMessage soft-deletes a message. Only its sender may do so.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID uuid.UUID, requester domain.UserID) error {
	if err := s.repository.SoftDelete(ctx, messageID, requester, s.now()); err != nil {
		return err
	}
	s.log.Info(fmt.Sprintf("Message %s deleted by %s", messageID, requester))
	return nil
}
