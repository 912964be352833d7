package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"folio-chat/domain"
	"folio-chat/domain/chat"
	"folio-chat/errors"
	"folio-chat/mocks"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChatService_GetMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockMessageRepository(ctrl)
	svc := NewChatService(logs.GetLoggerFromLevel(slog.LevelDebug), mockRepo)
	ctx := context.Background()

	t.Run("should compute pagination from the total", func(t *testing.T) {
		req := require.New(t)
		page := domain.Page{Number: 2, Limit: 10}
		messages := []domain.Message{domain.NewMessage("alice", "bob", "hi", time.Now())}

		mockRepo.EXPECT().
			FindPaginated(gomock.Any(), domain.UserID("bob"), domain.UserID("alice"), 10, 10).
			Return(messages, 25, nil).
			Times(1)

		result, err := svc.GetMessages(ctx, chat.GetMessagesCommand{User1: "bob", User2: "alice", Page: page})

		req.NoError(err)
		req.Equal(messages, result.Data)
		req.Equal(domain.Pagination{Total: 25, Page: 2, Pages: 3, Limit: 10, HasNextPage: true, HasPrevPage: true}, result.Pagination)
	})

	t.Run("should return an empty page rather than null", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().FindPaginated(gomock.Any(), gomock.Any(), gomock.Any(), 0, 20).Return(nil, 0, nil)

		result, err := svc.GetMessages(ctx, chat.GetMessagesCommand{User1: "a", User2: "b", Page: domain.Page{Number: 1, Limit: 20}})

		req.NoError(err)
		req.NotNil(result.Data)
		req.Empty(result.Data)
		req.False(result.Pagination.HasNextPage)
	})

	t.Run("should reject a missing participant without querying", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().FindPaginated(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.GetMessages(ctx, chat.GetMessagesCommand{User1: "a"})

		req.ErrorIs(err, errors.ErrInvalidPayload)
	})
}

func TestChatService_MarkRead_And_Delete(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockMessageRepository(ctrl)
	svc := NewChatService(logs.GetLoggerFromLevel(slog.LevelDebug), mockRepo)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	mockRepo.EXPECT().MarkConversationRead(gomock.Any(), domain.UserID("alice"), domain.UserID("bob"), fixed).Return(3, nil)
	n, err := svc.MarkRead(ctx, "alice", "bob")
	req.NoError(err)
	req.Equal(3, n)

	_, err = svc.MarkRead(ctx, "alice", "alice")
	req.ErrorIs(err, errors.ErrSelfMessage)

	id := uuid.New()
	mockRepo.EXPECT().SoftDelete(gomock.Any(), id, domain.UserID("bob"), fixed).Return(errors.ErrForbidden)
	req.ErrorIs(svc.DeleteMessage(ctx, id, "bob"), errors.ErrForbidden)

	mockRepo.EXPECT().RecentConversations(gomock.Any(), domain.UserID("alice")).Return(nil, fmt.Errorf("io"))
	_, err = svc.RecentConversations(ctx, "alice")
	req.Error(err)
}
