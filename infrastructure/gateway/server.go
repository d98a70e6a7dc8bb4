package gateway

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Config struct {
	SendBufferSize int
	MaxFrameSize   int64
	WriteWait      time.Duration
	PongWait       time.Duration
	// AllowedOrigin empty accepts any origin.
	AllowedOrigin string
}

// Server upgrades HTTP requests to websockets and runs one read loop per
// connection. The transport owns every Connection: it reports the close
// to the orchestrator, which purges the registry entry.
type Server struct {
	log          *slog.Logger
	orchestrator contract.IOrchestrator
	cfg          Config
	upgrader     websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*Connection
}

func NewServer(log *slog.Logger, orchestrator contract.IOrchestrator, cfg Config) *Server {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 64
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = 64 * 1024
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	s := &Server{
		log:          log,
		orchestrator: orchestrator,
		cfg:          cfg,
		conns:        make(map[string]*Connection),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.AllowedOrigin == "" || r.Header.Get("Origin") == cfg.AllowedOrigin
		},
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	// Pings go out well before the peer would miss its read deadline.
	conn := newConnection(ws, s.log, s.cfg.SendBufferSize, s.cfg.WriteWait, s.cfg.PongWait*9/10)
	s.track(conn)
	go conn.writePump()
	defer func() {
		s.orchestrator.Disconnect(conn)
		conn.Close()
		s.untrack(conn)
	}()

	s.log.Debug("Connection accepted", "connection_id", conn.ID(), "remote", r.RemoteAddr)
	s.readLoop(r.Context(), conn)
}

// readLoop returns when the peer goes away or stops answering pings.
func (s *Server) readLoop(ctx context.Context, conn *Connection) {
	ws := conn.ws
	ws.SetReadLimit(s.cfg.MaxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Connection lost", "connection_id", conn.ID(), "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.handle(ctx, conn, data)
	}
}

func (s *Server) handle(ctx context.Context, conn *Connection, data []byte) {
	cmd, name, err := DecodeCommand(data)
	if err == nil {
		err = s.orchestrator.Dispatch(ctx, conn, cmd)
	}
	if err == nil {
		return
	}

	s.log.Debug("Command rejected", "connection_id", conn.ID(), "event", name, "error", err)
	pushCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteWait)
	defer cancel()
	if err = conn.Consume(pushCtx, event.CommandRejected{Event: name, Reason: err.Error()}); err != nil {
		s.log.Debug("Failed to reply error", "connection_id", conn.ID(), "error", err)
	}
}

// CloseAll closes every live connection. Hijacked connections are not
// tracked by http.Server.Shutdown.
func (s *Server) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
}

func (s *Server) track(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.ID()] = conn
}

func (s *Server) untrack(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn.ID())
}
