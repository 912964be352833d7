package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"folio-chat/domain"
	"folio-chat/domain/chat"
	"folio-chat/domain/event"
	"folio-chat/errors"
	"folio-chat/runtime"
	"folio-chat/sink"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 16384

	disconnectTimeout = 5 * time.Second
)

// Client is one upgraded connection. The read loop handles intents in arrival
// order, the write loop is the only writer on the socket.
type Client struct {
	log         *slog.Logger
	id          domain.ConnectionID
	sessionUser domain.UserID
	conn        *websocket.Conn
	sink        *sink.ConnectionSink
	lifecycle   *runtime.LifecycleManager
	dispatcher  *runtime.Dispatcher
}

func newClient(log *slog.Logger, conn *websocket.Conn, sessionUser domain.UserID, bufferSize int,
	lifecycle *runtime.LifecycleManager, dispatcher *runtime.Dispatcher) *Client {
	id := domain.NewConnectionID()
	return &Client{
		log:         log.With("conn_id", id),
		id:          id,
		sessionUser: sessionUser,
		conn:        conn,
		sink:        sink.NewConnectionSink(bufferSize),
		lifecycle:   lifecycle,
		dispatcher:  dispatcher,
	}
}

// ReadPump blocks until the peer goes away, then runs disconnect cleanup.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
		defer cancel()
		c.lifecycle.Disconnect(cleanupCtx, c.id)
		c.sink.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("WebSocket read error", "error", err)
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.log.Warn("Failed to unmarshal frame", "error", err)
			continue
		}
		c.handle(ctx, frame)
	}
}

func (c *Client) handle(ctx context.Context, frame Frame) {
	switch frame.Event {
	case RegisterEvent:
		cmd, err := decodeRegister(frame.Data)
		if err != nil {
			c.reply(ctx, event.Error{Code: errors.CodeRegisterFailed, Message: errors.ErrInvalidPayload.Error()})
			return
		}
		_ = c.lifecycle.Register(ctx, c.id, c.sessionUser, cmd)
	case SendMessageEvent:
		// A malformed payload leaves the command empty and fails validation
		var cmd chat.SendMessageCommand
		if len(frame.Data) > 0 {
			_ = json.Unmarshal(frame.Data, &cmd)
		}
		c.dispatcher.HandleSend(ctx, c.id, cmd)
	default:
		c.log.Warn("Unknown event", "event", frame.Event)
	}
}

func (c *Client) reply(ctx context.Context, evt event.Event) {
	if err := c.sink.Consume(ctx, evt); err != nil {
		c.log.Warn("Failed to reply", "event", evt.Name(), "error", err)
	}
}

// WritePump drains the sink until it is closed and keeps the peer alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.sink.Events:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := encodeFrame(evt)
			if err != nil {
				c.log.Error("Failed to marshal event", "event", evt.Name(), "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
