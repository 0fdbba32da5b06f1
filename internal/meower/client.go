package meower

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/floofteam/meowvolt/internal/config"
)

const (
	authTimeout  = 15 * time.Second
	pingInterval = 30 * time.Second
	redialDelay  = 5 * time.Second
)

// ErrNotConnected is returned by Send when the socket is down.
var ErrNotConnected = errors.New("meower: not connected")

// Client is a CloudLink websocket client bound to one Meower account.
type Client struct {
	cfg        config.MeowerConfig
	logger     *slog.Logger
	httpClient *http.Client

	mu     sync.Mutex
	conn   *websocket.Conn
	authCh chan error

	handlerMu sync.RWMutex
	handlers  []func(Post)

	profileMu sync.Mutex
	profiles  map[string]string

	cancel context.CancelFunc
}

// NewClient creates a Meower client; Connect must be called before Send.
func NewClient(log *slog.Logger, cfg config.MeowerConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		logger:     log.With(slog.String("adapter", "meower")),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		profiles:   map[string]string{},
	}
}

// Username returns the bridge's own Meower username.
func (c *Client) Username() string {
	return c.cfg.Username
}

// OnPost registers a handler for inbound posts. Handlers run on the read
// loop goroutine and must not block on network I/O.
func (c *Client) OnPost(fn func(Post)) {
	if fn == nil {
		return
	}
	c.handlerMu.Lock()
	c.handlers = append(c.handlers, fn)
	c.handlerMu.Unlock()
}

// Connect dials the server and authenticates. The first connection failure
// is returned to the caller; afterwards the client redials on its own until
// ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := c.connectOnce(runCtx); err != nil {
		cancel()
		return err
	}
	go c.run(runCtx)
	return nil
}

// Close tears the connection down and stops the redial loop.
func (c *Client) Close(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// Send posts text to a Meower chat ("home" or a group chat id). The send is
// broadcast-style: there is no delivery receipt.
func (c *Client) Send(ctx context.Context, chat, text string) error {
	chat = strings.TrimSpace(chat)
	if chat == "" {
		chat = HomeChat
	}
	var inner packet
	if chat == HomeChat {
		val, _ := json.Marshal(text)
		inner = packet{Cmd: "post_home", Val: val}
	} else {
		val, _ := json.Marshal(map[string]string{"chatid": chat, "p": text})
		inner = packet{Cmd: "post_chat", Val: val}
	}
	return c.writeDirect(inner)
}

func (c *Client) connectOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.Server, nil)
	if err != nil {
		return fmt.Errorf("dial meower: %w", err)
	}

	authCh := make(chan error, 1)
	c.mu.Lock()
	c.conn = conn
	c.authCh = authCh
	c.mu.Unlock()

	go c.readLoop(ctx, conn)

	if err := c.authenticate(); err != nil {
		_ = conn.Close()
		return err
	}

	select {
	case err := <-authCh:
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("meower login: %w", err)
		}
	case <-time.After(authTimeout):
		_ = conn.Close()
		return errors.New("meower login: timed out")
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	}

	c.logger.Info("connected", slog.String("username", c.cfg.Username))
	return nil
}

func (c *Client) authenticate() error {
	val, _ := json.Marshal(map[string]string{
		"username": c.cfg.Username,
		"pw":       c.cfg.Password,
	})
	inner, _ := json.Marshal(packet{Cmd: "authpswd", Val: val})
	return c.write(packet{Cmd: "direct", Val: inner, Listener: "login"})
}

// run keeps the connection alive: ping ticker plus redial-on-drop.
func (c *Client) run(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.write(packet{Cmd: "ping", Val: json.RawMessage(`""`)}); err != nil {
				c.logger.Warn("ping failed, redialing", slog.Any("error", err))
				c.redial(ctx)
			}
		}
	}
}

func (c *Client) redial(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}
		if err := c.connectOnce(ctx); err != nil {
			c.logger.Error("reconnect failed", slog.Any("error", err))
			continue
		}
		return
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var pkt packet
		if err := conn.ReadJSON(&pkt); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("read loop ended", slog.Any("error", err))
			}
			return
		}
		switch pkt.Cmd {
		case "statuscode":
			c.handleStatus(pkt)
		case "direct":
			if post, ok := parsePost(pkt.Val); ok {
				c.dispatch(post)
			}
		}
	}
}

func (c *Client) handleStatus(pkt packet) {
	if pkt.Listener != "login" {
		return
	}
	var status string
	_ = json.Unmarshal(pkt.Val, &status)

	c.mu.Lock()
	authCh := c.authCh
	c.authCh = nil
	c.mu.Unlock()
	if authCh == nil {
		return
	}
	// CloudLink success statuses are "I:100 | OK".
	if strings.HasPrefix(status, "I:100") {
		authCh <- nil
	} else {
		authCh <- fmt.Errorf("rejected with status %q", status)
	}
}

func (c *Client) dispatch(post Post) {
	c.handlerMu.RLock()
	handlers := c.handlers
	c.handlerMu.RUnlock()
	for _, fn := range handlers {
		fn(post)
	}
}

func (c *Client) writeDirect(inner packet) error {
	val, err := json.Marshal(inner)
	if err != nil {
		return err
	}
	return c.write(packet{Cmd: "direct", Val: val})
}

func (c *Client) write(pkt packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(pkt)
}
