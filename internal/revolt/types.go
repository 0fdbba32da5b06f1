// Package revolt implements a minimal Revolt bot client: the event
// gateway plus the REST calls the bridge needs (masquerade sends,
// reactions, channel lookups).
package revolt

import "errors"

// Errors returned by channel resolution and sends.
var (
	ErrChannelNotFound = errors.New("revolt: channel not found")
	ErrNotTextChannel  = errors.New("revolt: not a text channel")
	ErrNotConnected    = errors.New("revolt: not connected")
)

// Message is a Revolt message, inbound or just created.
type Message struct {
	ID        string `json:"_id"`
	ChannelID string `json:"channel"`
	AuthorID  string `json:"author"`
	Content   string `json:"content"`
}

// Channel is the subset of channel metadata the bridge cares about.
type Channel struct {
	ID   string `json:"_id"`
	Type string `json:"channel_type"`
}

// Masquerade overrides the displayed author of an outbound message.
type Masquerade struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type sendRequest struct {
	Content    string      `json:"content"`
	Masquerade *Masquerade `json:"masquerade,omitempty"`
}

// user is the subset of user metadata used for bot detection.
type user struct {
	ID  string `json:"_id"`
	Bot *struct {
		Owner string `json:"owner"`
	} `json:"bot,omitempty"`
}

// gatewayEvent is the envelope of every websocket frame.
type gatewayEvent struct {
	Type string `json:"type"`
	// Message fields are inlined on Message events.
	Message
	Error string `json:"error,omitempty"`
}
