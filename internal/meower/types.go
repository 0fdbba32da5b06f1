// Package meower implements a minimal CloudLink client for the Meower
// chat network: password login, post delivery, and home/chat sends.
package meower

import (
	"encoding/json"
	"strings"
)

// HomeChat is the identifier of the global home timeline.
const HomeChat = "home"

// Post is an inbound Meower post delivered to registered handlers.
type Post struct {
	ID       string
	Username string
	// Chat is the post origin: "home" or a group chat id.
	Chat string
	Text string
}

// packet is the CloudLink framing: every payload rides in cmd/val pairs,
// with an optional listener echo for request correlation.
type packet struct {
	Cmd      string          `json:"cmd"`
	Val      json.RawMessage `json:"val,omitempty"`
	Listener string          `json:"listener,omitempty"`
}

// postPayload is the server representation of a post inside a direct packet.
type postPayload struct {
	PostID     string `json:"post_id"`
	PostOrigin string `json:"post_origin"`
	Username   string `json:"u"`
	Text       string `json:"p"`
	Type       int    `json:"type"`
}

// parsePost decodes a direct packet value into a Post. The second return
// is false for non-post direct traffic (status codes, profile pushes).
func parsePost(raw json.RawMessage) (Post, bool) {
	var payload postPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Post{}, false
	}
	if strings.TrimSpace(payload.Username) == "" || payload.Text == "" {
		return Post{}, false
	}
	origin := strings.TrimSpace(payload.PostOrigin)
	if origin == "" {
		origin = HomeChat
	}
	return Post{
		ID:       payload.PostID,
		Username: payload.Username,
		Chat:     origin,
		Text:     payload.Text,
	}, true
}
