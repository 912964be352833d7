package pubsub_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"folio-chat/domain/event"
	"folio-chat/infrastructure/pubsub"
	"folio-chat/mocks"
	"folio-chat/runtime"
	"folio-chat/sink"

	"github.com/alicebob/miniredis/v2"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type instance struct {
	hub     *runtime.Hub
	emitter *pubsub.RedisEmitter
	relay   *pubsub.Relay
}

func newInstance(log *slog.Logger, client redis.UniversalClient) instance {
	hub := runtime.NewHub()
	local := runtime.NewLocalEmitter(log, hub, time.Second, nil)
	return instance{
		hub:     hub,
		emitter: pubsub.NewRedisEmitter(log, client, "", local),
		relay:   pubsub.NewRelay(log, client, "", local),
	}
}

func TestRedisEmitter_Reaches_Connection_On_Another_Instance(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// Given two instances sharing one Redis, bob attached to the second
	first, second := newInstance(log, client), newInstance(log, client)
	bob := sink.NewConnectionSink(4)
	second.hub.Attach("b1", bob)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- second.relay.Run(ctx) }()
	req.Eventually(func() bool {
		return mr.PubSubNumSub(pubsub.DefaultChannel)[pubsub.DefaultChannel] == 1
	}, time.Second, 10*time.Millisecond)

	// When the first instance emits to bob
	evt := event.ReceiveMessage{ID: "m1", Text: "hi", Sender: "alice", Recipient: "bob", ConversationID: "alice_bob"}
	req.NoError(first.emitter.Emit(ctx, "b1", evt))

	// Then the second instance delivers it
	select {
	case got := <-bob.Events:
		req.Equal(evt, got)
	case <-time.After(time.Second):
		req.Fail("relayed event never arrived")
	}

	cancel()
	req.NoError(<-done)
}

func TestRedisEmitter_Local_Connection_Skips_Redis(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	local := mocks.NewMockLocalDeliverer(ctrl)
	// A client pointing nowhere proves nothing is published
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	emitter := pubsub.NewRedisEmitter(log, client, "", local)

	evt := event.RevalidateConversations{With: "alice"}
	local.EXPECT().Deliver(gomock.Any(), gomock.Any(), evt).Return(true, nil)

	req.NoError(emitter.Emit(context.Background(), "a1", evt))
}

func TestDecode_Rejects_Garbage(t *testing.T) {
	req := require.New(t)

	_, _, err := pubsub.Decode([]byte("not json"))
	req.Error(err)

	payload, err := pubsub.Encode("c1", event.Error{Code: "RATE_LIMITED", Message: "slow down"})
	req.NoError(err)
	connID, evt, err := pubsub.Decode(payload)
	req.NoError(err)
	req.EqualValues("c1", connID)
	req.Equal(event.Error{Code: "RATE_LIMITED", Message: "slow down"}, evt)
}
