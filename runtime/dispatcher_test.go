package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"folio-chat/domain"
	"folio-chat/domain/chat"
	"folio-chat/domain/event"
	"folio-chat/errors"
	"folio-chat/mocks"
	"folio-chat/registry"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func echoCreate(_ context.Context, m domain.Message) (domain.Message, error) {
	return m, nil
}

func TestDispatcher_Send_Reaches_Every_Device_Of_Both_Users(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	h := newHarness(t, repo, false)
	ctx := context.Background()

	// Given alice on two devices and bob on three
	a1 := h.connect(t, "a1", "alice")
	a2 := h.connect(t, "a2", "alice")
	b1 := h.connect(t, "b1", "bob")
	b2 := h.connect(t, "b2", "bob")
	b3 := h.connect(t, "b3", "bob")

	repo.EXPECT().ConversationExists(gomock.Any(), domain.ConversationID("alice_bob")).Return(false, nil).Times(1)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate).Times(1)

	// When alice sends from a1
	msg, err := h.dispatcher.Send(ctx, "a1", chat.SendMessageCommand{To: "bob", Text: "hi"})
	req.NoError(err)

	// Then every connection receives the message exactly once
	for _, sink := range []*recordingSink{a1, a2, b1, b2, b3} {
		received := sink.named(event.ReceiveMessageName)
		req.Len(received, 1)
		req.Equal(event.NewReceiveMessage(msg), received[0])
	}
	req.Equal(domain.ConversationID("alice_bob"), msg.ConversationID)
	req.Equal(domain.StatusUnread, msg.Status)

	// And both sides revalidate their conversation list, pointing at the peer
	for _, sink := range []*recordingSink{b1, b2, b3} {
		req.Equal([]event.Event{event.RevalidateConversations{With: "alice"}}, sink.named(event.RevalidateConversationsName))
	}
	for _, sink := range []*recordingSink{a1, a2} {
		req.Equal([]event.Event{event.RevalidateConversations{With: "bob"}}, sink.named(event.RevalidateConversationsName))
	}
}

func TestDispatcher_Send_Revalidates_Only_On_First_Message(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	h := newHarness(t, repo, false)
	ctx := context.Background()

	a := h.connect(t, "a1", "alice")
	b := h.connect(t, "b1", "bob")

	gomock.InOrder(
		repo.EXPECT().ConversationExists(gomock.Any(), gomock.Any()).Return(false, nil),
		repo.EXPECT().ConversationExists(gomock.Any(), gomock.Any()).Return(true, nil),
	)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate).Times(2)

	// When two messages are exchanged in both directions
	_, err := h.dispatcher.Send(ctx, "a1", chat.SendMessageCommand{To: "bob", Text: "first"})
	req.NoError(err)
	_, err = h.dispatcher.Send(ctx, "b1", chat.SendMessageCommand{To: "alice", Text: "second"})
	req.NoError(err)

	// Then only the first produced a revalidation
	req.Len(a.named(event.RevalidateConversationsName), 1)
	req.Len(b.named(event.RevalidateConversationsName), 1)
	req.Len(a.named(event.ReceiveMessageName), 2)
	req.Len(b.named(event.ReceiveMessageName), 2)
}

func TestDispatcher_Send_Rate_Limit_Window(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	h := newHarness(t, repo, false)
	ctx := context.Background()

	a := h.connect(t, "a1", "alice")
	h.connect(t, "b1", "bob")

	repo.EXPECT().ConversationExists(gomock.Any(), gomock.Any()).Return(true, nil).Times(DefaultRateLimitMax + 1)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate).Times(DefaultRateLimitMax + 1)

	// Given five sends inside one window
	for i := range DefaultRateLimitMax {
		h.dispatcher.HandleSend(ctx, "a1", chat.SendMessageCommand{To: "bob", Text: fmt.Sprintf("msg %d", i)})
	}
	req.Empty(a.named(event.ErrorName))

	// When a sixth is attempted
	h.dispatcher.HandleSend(ctx, "a1", chat.SendMessageCommand{To: "bob", Text: "one too many"})

	// Then it is rejected with RATE_LIMITED and never persisted
	errs := a.named(event.ErrorName)
	req.Len(errs, 1)
	req.Equal(event.Error{Code: errors.CodeRateLimited, Message: errors.ErrRateLimited.Error()}, errs[0])
	req.Len(a.named(event.ReceiveMessageName), DefaultRateLimitMax)

	// And the next window admits sends again
	h.advance(DefaultRateLimitWindow)
	h.dispatcher.HandleSend(ctx, "a1", chat.SendMessageCommand{To: "bob", Text: "back"})
	req.Len(a.named(event.ErrorName), 1)
	req.Len(a.named(event.ReceiveMessageName), DefaultRateLimitMax+1)
}

func TestDispatcher_Send_Rejections_Never_Reach_Persistence(t *testing.T) {
	tests := []struct {
		name    string
		origin  domain.ConnectionID
		cmd     chat.SendMessageCommand
		wantErr error
		message string
	}{
		{name: "self message", origin: "a1", cmd: chat.SendMessageCommand{To: "alice", Text: "me"},
			wantErr: errors.ErrSelfMessage, message: errors.ErrSelfMessage.Error()},
		{name: "unregistered socket", origin: "anon", cmd: chat.SendMessageCommand{To: "bob", Text: "hi"},
			wantErr: errors.ErrNotRegistered, message: errors.ErrNotRegistered.Error()},
		{name: "missing text", origin: "a1", cmd: chat.SendMessageCommand{To: "bob"},
			wantErr: errors.ErrInvalidPayload, message: errors.ErrInvalidPayload.Error()},
		{name: "missing recipient", origin: "a1", cmd: chat.SendMessageCommand{Text: "hi"},
			wantErr: errors.ErrInvalidPayload, message: errors.ErrInvalidPayload.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			// No expectation: any repository call fails the test
			repo := mocks.NewMockMessageRepository(ctrl)
			h := newHarness(t, repo, false)
			ctx := context.Background()

			h.connect(t, "a1", "alice")
			anon := h.connect(t, "anon", "")

			_, err := h.dispatcher.Send(ctx, tt.origin, tt.cmd)
			req.ErrorIs(err, tt.wantErr)

			h.dispatcher.HandleSend(ctx, tt.origin, tt.cmd)
			sink, _ := h.hub.Sink(tt.origin)
			errs := sink.(*recordingSink).named(event.ErrorName)
			req.Len(errs, 1)
			req.Equal(event.Error{Code: errors.CodeMessageFailed, Message: tt.message}, errs[0])
			if tt.origin != "anon" {
				req.Empty(anon.received())
			}
		})
	}
}

func TestDispatcher_Send_Too_Long(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	h := newHarness(t, repo, false)
	h.dispatcher.maxMessageLength = 5
	h.connect(t, "a1", "alice")

	_, err := h.dispatcher.Send(context.Background(), "a1", chat.SendMessageCommand{To: "bob", Text: "longer than five"})
	req.ErrorIs(err, errors.ErrMessageTooLong)
}

func TestDispatcher_Send_Persistence_Failure_Emits_Nothing_To_Recipient(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	h := newHarness(t, repo, false)
	ctx := context.Background()

	a := h.connect(t, "a1", "alice")
	b := h.connect(t, "b1", "bob")

	repo.EXPECT().ConversationExists(gomock.Any(), gomock.Any()).Return(false, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.Message{}, fmt.Errorf("disk full"))

	// When the store rejects the message
	h.dispatcher.HandleSend(ctx, "a1", chat.SendMessageCommand{To: "bob", Text: "hi"})

	// Then the sender gets a generic failure and bob sees nothing
	req.Equal([]event.Event{event.Error{Code: errors.CodeMessageFailed, Message: "Failed to send message"}}, a.received())
	req.Empty(b.received())
}

func TestDispatcher_Send_Before_Recipient_Registers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	h := newHarness(t, repo, false)
	ctx := context.Background()

	a := h.connect(t, "a1", "alice")

	var stored []domain.Message
	repo.EXPECT().ConversationExists(gomock.Any(), gomock.Any()).Return(false, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
		stored = append(stored, m)
		return m, nil
	})

	// When alice writes to bob who has no connection
	_, err := h.dispatcher.Send(ctx, "a1", chat.SendMessageCommand{To: "bob", Text: "are you there?"})
	req.NoError(err)

	// Then the message is persisted and echoed to alice only
	req.Len(stored, 1)
	req.Len(a.named(event.ReceiveMessageName), 1)

	// And bob registering later receives nothing in real time
	b := h.connect(t, "b1", "bob")
	req.Empty(b.received())
}

func TestDispatcher_Send_Skips_Stale_Members(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	h := newHarness(t, repo, false)
	ctx := context.Background()

	h.connect(t, "a1", "alice")
	b := h.connect(t, "b1", "bob")
	// A member left behind by a crashed instance, with no reverse mapping
	req.NoError(h.registry.SetAdd(ctx, registry.UserSocketsKey("bob"), "ghost"))

	repo.EXPECT().ConversationExists(gomock.Any(), gomock.Any()).Return(true, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate)

	_, err := h.dispatcher.Send(ctx, "a1", chat.SendMessageCommand{To: "bob", Text: "hi"})
	req.NoError(err)
	req.Len(b.named(event.ReceiveMessageName), 1)
}

func TestDispatcher_Send_Fails_Closed_When_Registry_Unavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	reg := mocks.NewMockSharedRegistry(ctrl)
	repo := mocks.NewMockMessageRepository(ctrl)
	emitter := mocks.NewMockEmitter(ctrl)
	limiter := NewRateLimiter(reg, time.Second, 5)
	dispatcher := NewDispatcher(log, reg, limiter, repo, emitter, nil, 0, nil)

	reg.EXPECT().Get(gomock.Any(), registry.SocketKey("a1")).Return("alice", true, nil)
	reg.EXPECT().IncrWithExpiry(gomock.Any(), registry.RateLimitKey("alice"), time.Second).
		Return(int64(0), errors.ErrRegistryUnavailable)

	// Then the only side effect is the error reported to the origin
	emitter.EXPECT().Emit(gomock.Any(), domain.ConnectionID("a1"),
		event.Error{Code: errors.CodeMessageFailed, Message: "Failed to send message"}).Return(nil)

	dispatcher.HandleSend(context.Background(), "a1", chat.SendMessageCommand{To: "bob", Text: "hi"})
}

type maskCensor struct{}

func (maskCensor) Censor(string) string { return "***" }

func TestDispatcher_Send_Censors_Before_Persisting(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	h := newHarness(t, repo, false)
	h.dispatcher.censor = maskCensor{}
	b := h.connect(t, "b1", "bob")
	h.connect(t, "a1", "alice")

	repo.EXPECT().ConversationExists(gomock.Any(), gomock.Any()).Return(true, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
		req.Equal("***", m.Text)
		return m, nil
	})

	_, err := h.dispatcher.Send(context.Background(), "a1", chat.SendMessageCommand{To: "bob", Text: "rude"})
	req.NoError(err)
	req.Equal("***", b.named(event.ReceiveMessageName)[0].(event.ReceiveMessage).Text)
}
