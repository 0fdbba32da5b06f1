// Package bridge implements the relay engine: event classification,
// identity-link handshakes, chat mapping commands, and message dispatch
// between Meower and Revolt.
package bridge

import (
	"strings"

	"github.com/floofteam/meowvolt/internal/meower"
	"github.com/floofteam/meowvolt/internal/revolt"
)

// Source identifies which platform an event arrived from.
type Source string

const (
	SourceMeower Source = "meower"
	SourceRevolt Source = "revolt"
)

// Envelope is the normalized view of an inbound message used for routing.
// It is built exactly once per event; self/bot flags are never re-derived
// downstream.
type Envelope struct {
	Source Source
	// Channel is the Meower chat name or the Revolt channel id.
	Channel string
	// Username is the Meower author (Meower events only).
	Username string
	// UserID is the Revolt author id (Revolt events only).
	UserID string
	// MessageID is the Revolt message id, used for reaction side effects.
	MessageID string
	Text      string
	IsSelf    bool
	IsBot     bool
}

// Kind is the classification of an inbound event.
type Kind int

const (
	// KindIgnore covers own messages, bot messages, and empty content.
	KindIgnore Kind = iota
	// KindRelay is an ordinary relayable message.
	KindRelay
	// KindCommand is a linking or mapping command.
	KindCommand
)

// Classification is the classifier output: a kind, the envelope, and the
// parsed command when Kind is KindCommand.
type Classification struct {
	Kind     Kind
	Envelope Envelope
	Command  Command
}

// ClassifyMeowerPost classifies a Meower post. selfUsername is the
// bridge's own account, whose posts are dropped to prevent relay loops.
func ClassifyMeowerPost(post meower.Post, selfUsername string) Classification {
	env := Envelope{
		Source:   SourceMeower,
		Channel:  post.Chat,
		Username: post.Username,
		Text:     post.Text,
		IsSelf:   post.Username == selfUsername,
	}
	if env.IsSelf {
		return Classification{Kind: KindIgnore, Envelope: env}
	}
	if cmd, ok := parseMeowerCommand(post.Text, selfUsername, post.Username, post.Chat); ok {
		return Classification{Kind: KindCommand, Envelope: env, Command: cmd}
	}
	if strings.TrimSpace(post.Text) == "" {
		return Classification{Kind: KindIgnore, Envelope: env}
	}
	return Classification{Kind: KindRelay, Envelope: env}
}

// ClassifyRevoltMessage classifies a Revolt message. botUserID is the
// bridge's own bot account; isBot marks other automated authors.
func ClassifyRevoltMessage(msg revolt.Message, botUserID string, isBot bool) Classification {
	env := Envelope{
		Source:    SourceRevolt,
		Channel:   msg.ChannelID,
		UserID:    msg.AuthorID,
		MessageID: msg.ID,
		Text:      msg.Content,
		IsSelf:    msg.AuthorID == botUserID,
		IsBot:     isBot,
	}
	if env.IsSelf || env.IsBot {
		return Classification{Kind: KindIgnore, Envelope: env}
	}
	if cmd, ok := parseRevoltCommand(msg.Content, "<@"+botUserID+">", msg.AuthorID, msg.ChannelID); ok {
		return Classification{Kind: KindCommand, Envelope: env, Command: cmd}
	}
	if strings.TrimSpace(msg.Content) == "" {
		return Classification{Kind: KindIgnore, Envelope: env}
	}
	return Classification{Kind: KindRelay, Envelope: env}
}
