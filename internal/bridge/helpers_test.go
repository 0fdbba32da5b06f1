package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/floofteam/meowvolt/internal/config"
	"github.com/floofteam/meowvolt/internal/revolt"
	"github.com/floofteam/meowvolt/internal/store"
)

const testBotUserID = "BOT00000000000000000000000"

type meowerSend struct {
	Chat string
	Text string
}

type fakeMeower struct {
	mu       sync.Mutex
	username string
	sends    []meowerSend
	sendErr  map[string]error
	pfp      string
	pfpErr   error
}

func newFakeMeower() *fakeMeower {
	return &fakeMeower{
		username: "bridgebot",
		sendErr:  map[string]error{},
		pfp:      "123",
	}
}

func (f *fakeMeower) Username() string { return f.username }

func (f *fakeMeower) Send(ctx context.Context, chat, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[chat]; err != nil {
		return err
	}
	f.sends = append(f.sends, meowerSend{Chat: chat, Text: text})
	return nil
}

func (f *fakeMeower) ProfilePicture(ctx context.Context, username string) (string, error) {
	if f.pfpErr != nil {
		return "", f.pfpErr
	}
	return f.pfp, nil
}

func (f *fakeMeower) sent() []meowerSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]meowerSend(nil), f.sends...)
}

type masqueradeSend struct {
	Channel string
	Text    string
	Name    string
	Avatar  string
}

type reaction struct {
	Channel   string
	MessageID string
	Emoji     string
}

type fakeRevolt struct {
	mu          sync.Mutex
	botID       string
	masquerades []masqueradeSend
	texts       []meowerSend // Chat reused as channel id
	reactions   []reaction
	channelType map[string]string
	sendErr     map[string]error
	reactErr    error
}

func newFakeRevolt() *fakeRevolt {
	return &fakeRevolt{
		botID:       testBotUserID,
		channelType: map[string]string{},
		sendErr:     map[string]error{},
	}
}

func (f *fakeRevolt) BotUserID() string { return f.botID }

func (f *fakeRevolt) SendMasquerade(ctx context.Context, channelID, text, name, avatar string) (revolt.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[channelID]; err != nil {
		return revolt.Message{}, err
	}
	f.masquerades = append(f.masquerades, masqueradeSend{
		Channel: channelID,
		Text:    text,
		Name:    name,
		Avatar:  avatar,
	})
	return revolt.Message{ID: fmt.Sprintf("msg-%d", len(f.masquerades)), ChannelID: channelID}, nil
}

func (f *fakeRevolt) SendText(ctx context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[channelID]; err != nil {
		return err
	}
	f.texts = append(f.texts, meowerSend{Chat: channelID, Text: text})
	return nil
}

func (f *fakeRevolt) React(ctx context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactErr != nil {
		return f.reactErr
	}
	f.reactions = append(f.reactions, reaction{Channel: channelID, MessageID: messageID, Emoji: emoji})
	return nil
}

func (f *fakeRevolt) FetchChannel(ctx context.Context, channelID string) (revolt.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channelType, ok := f.channelType[channelID]
	if !ok {
		channelType = "TextChannel"
	}
	if channelType != "TextChannel" {
		return revolt.Channel{}, revolt.ErrNotTextChannel
	}
	return revolt.Channel{ID: channelID, Type: channelType}, nil
}

func (f *fakeRevolt) IsBot(ctx context.Context, userID string) (bool, error) {
	return false, nil
}

func (f *fakeRevolt) sentMasquerades() []masqueradeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]masqueradeSend(nil), f.masquerades...)
}

func (f *fakeRevolt) sentTexts() []meowerSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]meowerSend(nil), f.texts...)
}

func (f *fakeRevolt) sentReactions() []reaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reaction(nil), f.reactions...)
}

type fakeLinks struct {
	mu    sync.Mutex
	items []store.Link
}

func (f *fakeLinks) FindByMeowerUsername(ctx context.Context, username string) (store.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.items {
		if link.MeowerUsername == username {
			return link, nil
		}
	}
	return store.Link{}, store.ErrNotFound
}

func (f *fakeLinks) FindByRevoltUserID(ctx context.Context, userID string) (store.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.items {
		if link.RevoltUserID == userID {
			return link, nil
		}
	}
	return store.Link{}, store.ErrNotFound
}

func (f *fakeLinks) Insert(ctx context.Context, link store.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.MeowerUsername == link.MeowerUsername || existing.RevoltUserID == link.RevoltUserID {
			return store.ErrDuplicateLink
		}
	}
	f.items = append(f.items, link)
	return nil
}

func (f *fakeLinks) all() []store.Link {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Link(nil), f.items...)
}

type fakeChats struct {
	mu    sync.Mutex
	items []store.ChatMap
}

func (f *fakeChats) FindByMeowerChat(ctx context.Context, chat string) ([]store.ChatMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var maps []store.ChatMap
	for _, m := range f.items {
		if m.MeowerChat == chat {
			maps = append(maps, m)
		}
	}
	return maps, nil
}

func (f *fakeChats) FindByRevoltChannel(ctx context.Context, channelID string) (store.ChatMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.items {
		if m.RevoltChannel == channelID {
			return m, nil
		}
	}
	return store.ChatMap{}, store.ErrNotFound
}

func (f *fakeChats) Insert(ctx context.Context, m store.ChatMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.RevoltChannel == m.RevoltChannel {
			return store.ErrDuplicateChat
		}
	}
	f.items = append(f.items, m)
	return nil
}

func (f *fakeChats) all() []store.ChatMap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.ChatMap(nil), f.items...)
}

func newTestService(mc *fakeMeower, rc *fakeRevolt, links *fakeLinks, chats *fakeChats) *Service {
	svc := NewService(nil, mc, rc, links, chats, config.BridgeConfig{
		AllowedChats: []string{"livechat", "home"},
		AvatarBase:   "https://assets.meower.org/PFP/",
	}, "home")
	svc.Start(context.Background())
	return svc
}
