package revolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

const (
	gatewayAuthTimeout = 15 * time.Second
	gatewayPing        = 30 * time.Second
	gatewayRedial      = 5 * time.Second
)

// Connect resolves the bot identity, opens the event gateway, and
// authenticates. The first failure is returned synchronously; afterwards
// the client redials on its own until ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.fetchSelf(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	if err := c.openGateway(runCtx); err != nil {
		cancel()
		return err
	}
	go c.keepAlive(runCtx)

	c.logger.Info("connected", slog.String("bot_user", c.botUser.ID))
	return nil
}

// Close stops the gateway and the redial loop.
func (c *Client) Close(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) openGateway(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.WSURL, nil)
	if err != nil {
		return fmt.Errorf("dial revolt gateway: %w", err)
	}

	auth, _ := json.Marshal(map[string]string{
		"type":  "Authenticate",
		"token": c.cfg.Token,
	})
	if err := conn.WriteMessage(websocket.TextMessage, auth); err != nil {
		_ = conn.Close()
		return fmt.Errorf("authenticate: %w", err)
	}

	if err := c.awaitAuthenticated(conn); err != nil {
		_ = conn.Close()
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	go c.readLoop(ctx, conn)
	return nil
}

// awaitAuthenticated consumes frames until the gateway confirms or rejects
// the token.
func (c *Client) awaitAuthenticated(conn *websocket.Conn) error {
	deadline := time.Now().Add(gatewayAuthTimeout)
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for {
		var event gatewayEvent
		if err := conn.ReadJSON(&event); err != nil {
			return fmt.Errorf("await authentication: %w", err)
		}
		switch event.Type {
		case "Authenticated":
			return nil
		case "Error", "NotFound":
			return fmt.Errorf("gateway rejected token: %s", event.Error)
		}
	}
}

func (c *Client) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(gatewayPing)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping, _ := json.Marshal(map[string]any{"type": "Ping", "data": 0})
			if err := c.writeFrame(ping); err != nil {
				c.logger.Warn("gateway ping failed, redialing", slog.Any("error", err))
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
		case <-time.After(gatewayRedial):
		}
		if err := c.openGateway(ctx); err != nil {
			c.logger.Error("gateway reconnect failed", slog.Any("error", err))
			continue
		}
		return
	}
}

func (c *Client) writeFrame(payload []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var event gatewayEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("gateway read loop ended", slog.Any("error", err))
			}
			return
		}
		switch event.Type {
		case "Message":
			c.dispatch(event.Message)
		case "Pong", "Ready", "MessageUpdate", "MessageDelete":
			// Not relayed.
		}
	}
}
