package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/floofteam/meowvolt/internal/revolt"
	"github.com/floofteam/meowvolt/internal/store"
)

// relayFromMeower fans a Meower post out to every Revolt channel mapped to
// its source chat, masquerading as the posting user. Per-destination
// failures are reported to the ops chat and never abort sibling sends.
func (s *Service) relayFromMeower(ctx context.Context, log *slog.Logger, env Envelope) {
	maps, err := s.chats.FindByMeowerChat(ctx, env.Channel)
	if err != nil {
		log.Error("chat map lookup failed", slog.String("chat", env.Channel), slog.Any("error", err))
		return
	}
	if len(maps) == 0 {
		// Expected steady state for unmapped chats.
		log.Debug("unmapped meower chat", slog.String("chat", env.Channel))
		return
	}

	avatar := ""
	if pfp, err := s.meower.ProfilePicture(ctx, env.Username); err != nil {
		log.Warn("profile lookup failed", slog.String("username", env.Username), slog.Any("error", err))
	} else {
		avatar = s.avatarURL(pfp)
	}

	failures := s.fanOut(ctx, maps, "", env.Text, env.Username, avatar)
	for _, failure := range failures {
		log.Error("relay to revolt failed",
			slog.String("revolt_chat", failure.channelID),
			slog.Any("error", failure.err))
		s.reportOps(ctx, log, "Failed to send message to revolt channel")
	}
}

// relayFromRevolt forwards a Revolt message to its mapped Meower chat and
// then to every sibling Revolt channel of the same chat, excluding the
// origin so a message never echoes back to where it came from.
func (s *Service) relayFromRevolt(ctx context.Context, log *slog.Logger, env Envelope) {
	origin, err := s.chats.FindByRevoltChannel(ctx, env.Channel)
	if err != nil {
		if isExpectedMiss(err) {
			log.Debug("unmapped revolt channel", slog.String("channel", env.Channel))
		} else {
			log.Error("chat map lookup failed", slog.String("channel", env.Channel), slog.Any("error", err))
		}
		return
	}

	link, err := s.links.FindByRevoltUserID(ctx, env.UserID)
	if err != nil {
		if isExpectedMiss(err) {
			// Unlinked sender: visible failure marker, message dropped.
			if reactErr := s.revolt.React(ctx, env.Channel, env.MessageID, reactionUnlinked); reactErr != nil {
				log.Error("failure reaction failed", slog.Any("error", reactErr))
			}
		} else {
			log.Error("link lookup failed", slog.String("user", env.UserID), slog.Any("error", err))
		}
		return
	}

	// The Meower forward is confirmed before the success marker goes on.
	text := fmt.Sprintf("%s: %s", link.MeowerUsername, env.Text)
	if err := s.meower.Send(ctx, origin.MeowerChat, text); err != nil {
		log.Error("relay to meower failed", slog.String("chat", origin.MeowerChat), slog.Any("error", err))
		return
	}
	if err := s.revolt.React(ctx, env.Channel, env.MessageID, reactionRelayed); err != nil {
		log.Warn("success reaction failed", slog.Any("error", err))
	}

	siblings, err := s.chats.FindByMeowerChat(ctx, origin.MeowerChat)
	if err != nil {
		log.Error("sibling lookup failed", slog.String("chat", origin.MeowerChat), slog.Any("error", err))
		return
	}

	failures := s.fanOutResolving(ctx, siblings, env.Channel, env.Text, env.UserID)
	for _, failure := range failures {
		log.Error("sibling relay failed",
			slog.String("revolt_chat", failure.channelID),
			slog.Any("error", failure.err))
	}
}

type fanOutFailure struct {
	channelID string
	err       error
}

// fanOut sends text to every destination except excludeChannel, all
// branches concurrent, masquerading as name/avatar. It joins the branches
// and returns the collected failures.
func (s *Service) fanOut(ctx context.Context, dests []store.ChatMap, excludeChannel, text, name, avatar string) []fanOutFailure {
	return s.eachDest(dests, excludeChannel, func(channelID string) error {
		return s.sendMasqueraded(ctx, channelID, text, name, avatar)
	})
}

// fanOutResolving is fanOut with per-destination identity resolution: each
// branch looks the sender's link up independently.
func (s *Service) fanOutResolving(ctx context.Context, dests []store.ChatMap, excludeChannel, text, revoltUserID string) []fanOutFailure {
	return s.eachDest(dests, excludeChannel, func(channelID string) error {
		link, err := s.links.FindByRevoltUserID(ctx, revoltUserID)
		if err != nil {
			if isExpectedMiss(err) {
				return nil
			}
			return fmt.Errorf("resolve sender: %w", err)
		}
		return s.sendMasqueraded(ctx, channelID, text, link.MeowerUsername, s.avatarURL(link.Avatar))
	})
}

func (s *Service) eachDest(dests []store.ChatMap, excludeChannel string, send func(channelID string) error) []fanOutFailure {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []fanOutFailure
	)
	for _, dest := range dests {
		if dest.RevoltChannel == excludeChannel {
			continue
		}
		wg.Add(1)
		go func(channelID string) {
			defer wg.Done()
			if err := send(channelID); err != nil {
				mu.Lock()
				failures = append(failures, fanOutFailure{channelID: channelID, err: err})
				mu.Unlock()
			}
		}(dest.RevoltChannel)
	}
	wg.Wait()
	return failures
}

// sendMasqueraded delivers one message to one Revolt channel. Non-text or
// vanished channels are skipped silently, matching the resolve-then-send
// contract.
func (s *Service) sendMasqueraded(ctx context.Context, channelID, text, name, avatar string) error {
	if _, err := s.revolt.FetchChannel(ctx, channelID); err != nil {
		if errors.Is(err, revolt.ErrNotTextChannel) || errors.Is(err, revolt.ErrChannelNotFound) {
			return nil
		}
		return fmt.Errorf("resolve channel: %w", err)
	}
	if _, err := s.revolt.SendMasquerade(ctx, channelID, text, name, avatar); err != nil {
		return err
	}
	return nil
}
