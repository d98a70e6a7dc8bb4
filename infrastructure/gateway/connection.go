package gateway

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection is one accepted websocket.
// Pushed events are queued on a bounded buffer drained by a single
// writer goroutine, gorilla connections support one concurrent writer.
type Connection struct {
	id        string
	ws        *websocket.Conn
	log       *slog.Logger
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeWait time.Duration
	pingEvery time.Duration
}

func newConnection(ws *websocket.Conn, log *slog.Logger, bufferSize int, writeWait, pingEvery time.Duration) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:        id,
		ws:        ws,
		log:       log.With("connection_id", id),
		send:      make(chan []byte, bufferSize),
		done:      make(chan struct{}),
		writeWait: writeWait,
		pingEvery: pingEvery,
	}
}

func (c *Connection) ID() string { return c.id }

// Consume queues the event for the writer.
// It fails fast once the connection is closed and gives up with
// ErrSlowConsumer when the buffer stays full until ctx is done.
func (c *Connection) Consume(ctx context.Context, e event.DomainEvent) error {
	payload, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", errors.ErrSlowConsumer, ctx.Err())
	}
}

// Close asks the writer to send a close frame and release the socket.
// It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump is the only goroutine writing to the socket.
// It also sends the pings that keep the peer's read deadline alive.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer ticker.Stop()
	defer func() {
		c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.writeWait))
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed, closing connection", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.log.Debug("Ping failed, closing connection", "error", err)
				return
			}
		}
	}
}
