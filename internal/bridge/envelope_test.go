package bridge

import (
	"testing"

	"github.com/floofteam/meowvolt/internal/meower"
	"github.com/floofteam/meowvolt/internal/revolt"
)

func TestClassifyMeowerPost(t *testing.T) {
	tests := []struct {
		name string
		post meower.Post
		want Kind
	}{
		{
			name: "own post is dropped",
			post: meower.Post{Username: "bridgebot", Chat: "livechat", Text: "alice: hi"},
			want: KindIgnore,
		},
		{
			name: "empty content is dropped",
			post: meower.Post{Username: "alice", Chat: "livechat", Text: "   "},
			want: KindIgnore,
		},
		{
			name: "link completion command",
			post: meower.Post{Username: "alice", Chat: "livechat", Text: "@bridgebot link alice"},
			want: KindCommand,
		},
		{
			name: "ordinary post relays",
			post: meower.Post{Username: "alice", Chat: "livechat", Text: "hello"},
			want: KindRelay,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMeowerPost(tt.post, "bridgebot")
			if got.Kind != tt.want {
				t.Errorf("ClassifyMeowerPost() kind = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyMeowerPostSelfFlagComputedOnce(t *testing.T) {
	cls := ClassifyMeowerPost(meower.Post{Username: "bridgebot", Chat: "home", Text: "hi"}, "bridgebot")
	if !cls.Envelope.IsSelf {
		t.Error("expected IsSelf on own post")
	}
}

func TestClassifyRevoltMessage(t *testing.T) {
	mention := "<@" + testBotUserID + ">"
	tests := []struct {
		name  string
		msg   revolt.Message
		isBot bool
		want  Kind
	}{
		{
			name: "own message is dropped",
			msg:  revolt.Message{ID: "m1", ChannelID: "chan1", AuthorID: testBotUserID, Content: "hi"},
			want: KindIgnore,
		},
		{
			name:  "bot message is dropped",
			msg:   revolt.Message{ID: "m1", ChannelID: "chan1", AuthorID: "somebot", Content: "hi"},
			isBot: true,
			want:  KindIgnore,
		},
		{
			name: "empty content is dropped",
			msg:  revolt.Message{ID: "m1", ChannelID: "chan1", AuthorID: "user1", Content: ""},
			want: KindIgnore,
		},
		{
			name: "account command",
			msg:  revolt.Message{ID: "m1", ChannelID: "chan1", AuthorID: "user1", Content: mention + " account alice"},
			want: KindCommand,
		},
		{
			name: "ordinary message relays",
			msg:  revolt.Message{ID: "m1", ChannelID: "chan1", AuthorID: "user1", Content: "hello"},
			want: KindRelay,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyRevoltMessage(tt.msg, testBotUserID, tt.isBot)
			if got.Kind != tt.want {
				t.Errorf("ClassifyRevoltMessage() kind = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyRevoltMessageEnvelope(t *testing.T) {
	msg := revolt.Message{ID: "m9", ChannelID: "chan2", AuthorID: "user7", Content: "hey"}
	cls := ClassifyRevoltMessage(msg, testBotUserID, false)
	env := cls.Envelope
	if env.Source != SourceRevolt || env.Channel != "chan2" || env.UserID != "user7" || env.MessageID != "m9" {
		t.Errorf("unexpected envelope: %#v", env)
	}
}
