package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/floofteam/meowvolt/internal/store"
)

// handleCommand mutates the pending registry and the stores and emits
// confirmation or rejection replies on the platform the command came from.
func (s *Service) handleCommand(ctx context.Context, log *slog.Logger, cls Classification) {
	switch cmd := cls.Command.(type) {
	case LinkBeginCommand:
		s.handleLinkBegin(ctx, log, cmd)
	case LinkCompleteCommand:
		s.handleLinkComplete(ctx, log, cmd)
	case ChannelMapCommand:
		s.handleChannelMap(ctx, log, cmd)
	case UnrecognizedCommand:
		s.handleUnrecognized(ctx, log, cls.Envelope)
	}
}

func (s *Service) handleLinkBegin(ctx context.Context, log *slog.Logger, cmd LinkBeginCommand) {
	s.pending.Begin(cmd.MeowerUsername, cmd.RevoltUserID, cmd.OriginChannel)
	log.Info("link handshake started",
		slog.String("meower_username", cmd.MeowerUsername),
		slog.String("revolt_user", cmd.RevoltUserID))

	reply := fmt.Sprintf("Please send \"@%s link %s\" to livechat on Meower to finish linking",
		s.meower.Username(), cmd.MeowerUsername)
	s.replyRevolt(ctx, log, cmd.OriginChannel, reply)
}

func (s *Service) handleLinkComplete(ctx context.Context, log *slog.Logger, cmd LinkCompleteCommand) {
	entry, err := s.pending.Complete(cmd.ClaimedUsername, cmd.ActingUsername)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotPending):
			s.replyMeower(ctx, log, cmd.OriginChat, cmd.ActingUsername, "You are not linking a revolt account")
		case errors.Is(err, ErrIdentityMismatch):
			s.replyMeower(ctx, log, cmd.OriginChat, cmd.ActingUsername, "You are not linking your revolt account")
		default:
			log.Error("handshake completion failed", slog.Any("error", err))
		}
		return
	}

	avatar := ""
	if pfp, err := s.meower.ProfilePicture(ctx, cmd.ActingUsername); err != nil {
		log.Warn("profile lookup failed", slog.String("username", cmd.ActingUsername), slog.Any("error", err))
	} else {
		avatar = pfp
	}

	err = s.links.Insert(ctx, store.Link{
		MeowerUsername: entry.MeowerUsername,
		RevoltUserID:   entry.RevoltUserID,
		Avatar:         avatar,
	})
	if err != nil {
		// Racing completions land here; the loser gets a generic failure.
		if !errors.Is(err, store.ErrDuplicateLink) {
			log.Error("link insert failed", slog.Any("error", err))
		}
		s.replyMeower(ctx, log, cmd.OriginChat, cmd.ActingUsername, "Failed to link your revolt account")
		return
	}

	log.Info("identity link completed",
		slog.String("meower_username", entry.MeowerUsername),
		slog.String("revolt_user", entry.RevoltUserID))
	s.replyMeower(ctx, log, cmd.OriginChat, cmd.ActingUsername, "Successfully linked your revolt account")
}

func (s *Service) handleChannelMap(ctx context.Context, log *slog.Logger, cmd ChannelMapCommand) {
	if !s.chatAllowed(cmd.MeowerChat) {
		reply := fmt.Sprintf("You can only link this channel to %s", strings.Join(s.allowedChats, ","))
		s.replyRevolt(ctx, log, cmd.RevoltChannel, reply)
		return
	}

	err := s.chats.Insert(ctx, store.ChatMap{
		MeowerChat:    cmd.MeowerChat,
		RevoltChannel: cmd.RevoltChannel,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateChat) {
			s.replyRevolt(ctx, log, cmd.RevoltChannel, "This channel is already linked")
			return
		}
		log.Error("chat map insert failed", slog.Any("error", err))
		s.replyRevolt(ctx, log, cmd.RevoltChannel, "Failed to link this channel")
		return
	}

	log.Info("chat map created",
		slog.String("meower_chat", cmd.MeowerChat),
		slog.String("revolt_chat", cmd.RevoltChannel))
	s.replyRevolt(ctx, log, cmd.RevoltChannel, fmt.Sprintf("Successfully linked this channel to %s", cmd.MeowerChat))
}

func (s *Service) handleUnrecognized(ctx context.Context, log *slog.Logger, env Envelope) {
	if env.Source != SourceRevolt {
		return
	}
	s.replyRevolt(ctx, log, env.Channel, "Unknown command. Try: account <meower username> | link <chat>")
}

func (s *Service) chatAllowed(chat string) bool {
	for _, allowed := range s.allowedChats {
		if chat == allowed {
			return true
		}
	}
	return false
}

func (s *Service) replyRevolt(ctx context.Context, log *slog.Logger, channelID, text string) {
	if err := s.revolt.SendText(ctx, channelID, text); err != nil {
		log.Error("revolt reply failed", slog.String("channel", channelID), slog.Any("error", err))
	}
}

func (s *Service) replyMeower(ctx context.Context, log *slog.Logger, chat, username, text string) {
	if err := s.meower.Send(ctx, chat, fmt.Sprintf("@%s %s", username, text)); err != nil {
		log.Error("meower reply failed", slog.String("chat", chat), slog.Any("error", err))
	}
}
