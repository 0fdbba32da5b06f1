package revolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/floofteam/meowvolt/internal/config"
)

// Client talks to the Revolt API as a bot. One client serves both the REST
// surface and the event gateway.
type Client struct {
	cfg        config.RevoltConfig
	logger     *slog.Logger
	httpClient *http.Client

	botUser user

	handlerMu sync.RWMutex
	handlers  []func(Message)

	userMu sync.Mutex
	users  map[string]user

	connMu sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// errNotFound marks 404 replies from the REST API.
var errNotFound = errors.New("revolt: not found")

// NewClient creates a Revolt client; Connect must be called before use.
func NewClient(log *slog.Logger, cfg config.RevoltConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		logger:     log.With(slog.String("adapter", "revolt")),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		users:      map[string]user{},
	}
}

// BotUserID returns the bot's own user id, known after Connect.
func (c *Client) BotUserID() string {
	return c.botUser.ID
}

// OnMessage registers a handler for inbound messages. Handlers run on the
// gateway read loop and must not block on network I/O.
func (c *Client) OnMessage(fn func(Message)) {
	if fn == nil {
		return
	}
	c.handlerMu.Lock()
	c.handlers = append(c.handlers, fn)
	c.handlerMu.Unlock()
}

// SendMasquerade sends text to a channel displayed as the given name and
// avatar, returning the created message.
func (c *Client) SendMasquerade(ctx context.Context, channelID, text, name, avatar string) (Message, error) {
	return c.sendMessage(ctx, channelID, sendRequest{
		Content: text,
		Masquerade: &Masquerade{
			Name:   name,
			Avatar: avatar,
		},
	})
}

// SendText sends text to a channel as the bot itself.
func (c *Client) SendText(ctx context.Context, channelID, text string) error {
	_, err := c.sendMessage(ctx, channelID, sendRequest{Content: text})
	return err
}

// React adds a unicode reaction to a message.
func (c *Client) React(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s",
		url.PathEscape(channelID), url.PathEscape(messageID), url.PathEscape(emoji))
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

// FetchChannel resolves a channel id. Only text channels are valid relay
// targets; any other type resolves to ErrNotTextChannel.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (Channel, error) {
	var ch Channel
	err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID), nil, &ch)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return Channel{}, ErrChannelNotFound
		}
		return Channel{}, err
	}
	if ch.Type != "TextChannel" {
		return Channel{}, ErrNotTextChannel
	}
	return ch, nil
}

// IsBot reports whether a user is an automated account. Lookups are cached
// for the life of the client.
func (c *Client) IsBot(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}
	if userID == c.botUser.ID {
		return true, nil
	}

	c.userMu.Lock()
	cached, ok := c.users[userID]
	c.userMu.Unlock()
	if ok {
		return cached.Bot != nil, nil
	}

	var u user
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &u); err != nil {
		return false, err
	}
	c.userMu.Lock()
	c.users[userID] = u
	c.userMu.Unlock()
	return u.Bot != nil, nil
}

// Mention returns the bot's mention form as it appears in message content.
func (c *Client) Mention() string {
	return "<@" + c.botUser.ID + ">"
}

func (c *Client) fetchSelf(ctx context.Context) error {
	var u user
	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &u); err != nil {
		return fmt.Errorf("fetch bot identity: %w", err)
	}
	c.botUser = u
	return nil
}

func (c *Client) sendMessage(ctx context.Context, channelID string, req sendRequest) (Message, error) {
	if strings.TrimSpace(channelID) == "" {
		return Message{}, fmt.Errorf("channel id is required")
	}
	var msg Message
	err := c.do(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/messages", req, &msg)
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Bot-Token", c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) dispatch(msg Message) {
	c.handlerMu.RLock()
	handlers := c.handlers
	c.handlerMu.RUnlock()
	for _, fn := range handlers {
		fn(msg)
	}
}
