package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/floofteam/meowvolt/internal/config"
	"github.com/floofteam/meowvolt/internal/meower"
	"github.com/floofteam/meowvolt/internal/revolt"
	"github.com/floofteam/meowvolt/internal/store"
)

// Reaction markers applied to Revolt messages after relay attempts.
const (
	reactionRelayed  = "✅" // white check mark
	reactionUnlinked = "❌" // cross mark
)

// MeowerClient is the Meower capability surface the bridge consumes.
type MeowerClient interface {
	Username() string
	Send(ctx context.Context, chat, text string) error
	ProfilePicture(ctx context.Context, username string) (string, error)
}

// RevoltClient is the Revolt capability surface the bridge consumes.
type RevoltClient interface {
	BotUserID() string
	SendMasquerade(ctx context.Context, channelID, text, name, avatar string) (revolt.Message, error)
	SendText(ctx context.Context, channelID, text string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
	FetchChannel(ctx context.Context, channelID string) (revolt.Channel, error)
	IsBot(ctx context.Context, userID string) (bool, error)
}

// LinkStore is the identity-link persistence contract.
type LinkStore interface {
	FindByMeowerUsername(ctx context.Context, username string) (store.Link, error)
	FindByRevoltUserID(ctx context.Context, userID string) (store.Link, error)
	Insert(ctx context.Context, link store.Link) error
}

// ChatStore is the chat-map persistence contract.
type ChatStore interface {
	FindByMeowerChat(ctx context.Context, chat string) ([]store.ChatMap, error)
	FindByRevoltChannel(ctx context.Context, channelID string) (store.ChatMap, error)
	Insert(ctx context.Context, m store.ChatMap) error
}

// Service routes classified events to the relay dispatcher and the
// command handler. One instance owns the pending registry.
type Service struct {
	logger       *slog.Logger
	meower       MeowerClient
	revolt       RevoltClient
	links        LinkStore
	chats        ChatStore
	pending      *PendingRegistry
	allowedChats []string
	opsChat      string
	avatarBase   string

	mu      sync.Mutex
	runCtx  context.Context
	stopped bool
	wg      sync.WaitGroup
}

// NewService creates the relay engine. The pending registry is owned by
// the service and shared with nothing else.
func NewService(log *slog.Logger, mc MeowerClient, rc RevoltClient, links LinkStore, chats ChatStore, cfg config.BridgeConfig, opsChat string) *Service {
	if log == nil {
		log = slog.Default()
	}
	allowed := make([]string, 0, len(cfg.AllowedChats))
	for _, chat := range cfg.AllowedChats {
		if trimmed := strings.TrimSpace(chat); trimmed != "" {
			allowed = append(allowed, trimmed)
		}
	}
	return &Service{
		logger:       log.With(slog.String("component", "bridge")),
		meower:       mc,
		revolt:       rc,
		links:        links,
		chats:        chats,
		pending:      NewPendingRegistry(cfg.PendingTTLDuration()),
		allowedChats: allowed,
		opsChat:      opsChat,
		avatarBase:   cfg.AvatarBase,
	}
}

// Start records the run context used by event goroutines. Gateways call
// HandleMeowerPost / HandleRevoltMessage afterwards.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.stopped = false
	s.mu.Unlock()
}

// Shutdown stops accepting events and waits for in-flight fan-outs, up to
// the grace ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}

// PendingCount reports live handshakes (ops surface).
func (s *Service) PendingCount() int {
	return s.pending.Len()
}

// HandleMeowerPost is the Meower gateway callback. Classification and all
// side effects run off the listening path.
func (s *Service) HandleMeowerPost(post meower.Post) {
	s.spawn(func(ctx context.Context, log *slog.Logger) {
		cls := ClassifyMeowerPost(post, s.meower.Username())
		switch cls.Kind {
		case KindCommand:
			s.handleCommand(ctx, log, cls)
		case KindRelay:
			s.relayFromMeower(ctx, log, cls.Envelope)
		case KindIgnore:
		}
	})
}

// HandleRevoltMessage is the Revolt gateway callback.
func (s *Service) HandleRevoltMessage(msg revolt.Message) {
	s.spawn(func(ctx context.Context, log *slog.Logger) {
		isBot, err := s.revolt.IsBot(ctx, msg.AuthorID)
		if err != nil {
			// Unknown author flag: treat as human, the self check still holds.
			log.Warn("bot lookup failed", slog.String("author", msg.AuthorID), slog.Any("error", err))
		}
		cls := ClassifyRevoltMessage(msg, s.revolt.BotUserID(), isBot)
		switch cls.Kind {
		case KindCommand:
			s.handleCommand(ctx, log, cls)
		case KindRelay:
			s.relayFromRevolt(ctx, log, cls.Envelope)
		case KindIgnore:
		}
	})
}

// spawn runs fn on its own goroutine with an event-scoped logger carrying
// a correlation id, so one inbound event never blocks a gateway read loop.
func (s *Service) spawn(fn func(ctx context.Context, log *slog.Logger)) {
	s.mu.Lock()
	ctx := s.runCtx
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	log := s.logger.With(slog.String("event_id", uuid.NewString()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx, log)
	}()
}

func (s *Service) avatarURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	return strings.TrimRight(s.avatarBase, "/") + "/" + ref + ".svg"
}

// reportOps posts a failure note to the Meower ops chat; a failure of the
// report itself is only logged.
func (s *Service) reportOps(ctx context.Context, log *slog.Logger, text string) {
	if err := s.meower.Send(ctx, s.opsChat, text); err != nil {
		log.Error("ops report failed", slog.Any("error", err))
	}
}

func isExpectedMiss(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
