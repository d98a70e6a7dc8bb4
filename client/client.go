package main

import (
	"bufio"
	"chat-relay/domain/event"
	"chat-relay/infrastructure/gateway"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=ws://localhost:5000/ws"`
	UserID        string `env:"CHAT_USER_ID,required=true"`
	PeerID        string `env:"CHAT_PEER_ID,required=true"`
	Colours       bool   `env:"CHAT_COLOURS,default=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run registers as CHAT_USER_ID, sends every stdin line to CHAT_PEER_ID
// and acknowledges incoming messages as delivered then read.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerAddress, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = ws.Close()
	}()

	c := &client{ws: ws, log: log, config: config}
	if err = c.send("register", config.UserID); err != nil {
		return exitRuntime, err
	}
	log.Info("Connected, type a line to send it (Ctrl+C to quit)",
		"server", config.ServerAddress, "user", config.UserID, "peer", config.PeerID)

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop() }()
	go c.inputLoop()

	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
		_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return exitOK, nil
	case err = <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("read error: %w", err)
	}
}

type client struct {
	ws     *websocket.Conn
	log    *slog.Logger
	config Config
	mu     sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteMessage(messageType, data)
}

func (c *client) send(name string, data any) error {
	frame, err := gateway.NewFrame(name, data)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, frame)
}

func (c *client) inputLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		err := c.send("private_message", gateway.PrivateMessagePayload{
			SenderID:    c.config.UserID,
			RecipientID: c.config.PeerID,
			Text:        text,
		})
		if err != nil {
			c.log.Error("Failed to send message", "error", err)
			return
		}
	}
}

func (c *client) readLoop() error {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		var frame gateway.Frame
		if err = json.Unmarshal(raw, &frame); err != nil {
			c.log.Warn("Malformed frame", "error", err)
			continue
		}
		c.render(frame)
	}
}

func (c *client) render(frame gateway.Frame) {
	switch event.Name(frame.Event) {
	case event.NewMessageName:
		var m gateway.MessagePayload
		if json.Unmarshal(frame.Data, &m) != nil {
			return
		}
		line := fmt.Sprintf("[%s] %s: %s", m.Timestamp.Local().Format(time.TimeOnly), m.SenderID, m.Text)
		if m.SenderID == c.config.UserID {
			c.print(color.FgGray, line+" "+ticks(m))
			return
		}
		c.print(color.FgGreen, line)
		ref := gateway.MessageRefPayload{MessageID: m.ID.String()}
		_ = c.send("mark_as_delivered", ref)
		_ = c.send("mark_as_read", ref)
	case event.TypingName:
		var p gateway.TypingPayload
		if json.Unmarshal(frame.Data, &p) == nil {
			c.print(color.FgYellow, p.From+" is typing...")
		}
	case event.OnlineUsersName:
		var users []string
		if json.Unmarshal(frame.Data, &users) == nil {
			c.print(color.FgCyan, "online: "+strings.Join(users, ", "))
		}
	case event.MessageDeliveredName, event.MessageReadName:
		var p gateway.MessageRefPayload
		if json.Unmarshal(frame.Data, &p) == nil {
			c.print(color.FgGray, fmt.Sprintf("%s %s", strings.TrimPrefix(frame.Event, "message_"), p.MessageID))
		}
	case event.FriendRequestName, event.FriendRequestAcceptedName:
		var p gateway.SocialPayload
		if json.Unmarshal(frame.Data, &p) == nil {
			c.print(color.FgMagenta, fmt.Sprintf("%s from %s", frame.Event, p.FromUsername))
		}
	case event.CommandRejectedName:
		var p gateway.ErrorPayload
		if json.Unmarshal(frame.Data, &p) == nil {
			c.print(color.FgRed, fmt.Sprintf("rejected %s: %s", p.Event, p.Message))
		}
	default:
		c.log.Debug("Ignoring frame", "event", frame.Event)
	}
}

func (c *client) print(colour color.Color, line string) {
	if c.config.Colours {
		line = colour.Render(line)
	}
	fmt.Println(line)
}

func ticks(m gateway.MessagePayload) string {
	switch {
	case m.Read:
		return "✓✓ read"
	case m.Delivered:
		return "✓✓"
	default:
		return "✓"
	}
}
