package bridge

import (
	"reflect"
	"testing"
)

func TestParseMeowerCommand(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   Command
		wantOK bool
	}{
		{
			name: "not addressed to bridge",
			text: "hello world",
		},
		{
			name: "addressed to someone else",
			text: "@otherbot link alice",
		},
		{
			name:   "link completion",
			text:   "@bridgebot link alice",
			want:   LinkCompleteCommand{ClaimedUsername: "alice", ActingUsername: "alice", OriginChat: "livechat"},
			wantOK: true,
		},
		{
			name:   "link with extra whitespace",
			text:   "  @bridgebot   link   alice  ",
			want:   LinkCompleteCommand{ClaimedUsername: "alice", ActingUsername: "alice", OriginChat: "livechat"},
			wantOK: true,
		},
		{
			name:   "mention without subcommand",
			text:   "@bridgebot",
			want:   UnrecognizedCommand{Raw: "@bridgebot"},
			wantOK: true,
		},
		{
			name:   "link without argument",
			text:   "@bridgebot link",
			want:   UnrecognizedCommand{Raw: "@bridgebot link"},
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseMeowerCommand(tt.text, "bridgebot", "alice", "livechat")
			if ok != tt.wantOK {
				t.Fatalf("parseMeowerCommand() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseMeowerCommand() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseRevoltCommand(t *testing.T) {
	mention := "<@" + testBotUserID + ">"
	tests := []struct {
		name   string
		text   string
		want   Command
		wantOK bool
	}{
		{
			name: "plain message",
			text: "just chatting",
		},
		{
			name:   "account subcommand",
			text:   mention + " account alice",
			want:   LinkBeginCommand{MeowerUsername: "alice", RevoltUserID: "user1", OriginChannel: "chan1"},
			wantOK: true,
		},
		{
			name:   "link subcommand",
			text:   mention + " link livechat",
			want:   ChannelMapCommand{MeowerChat: "livechat", RevoltChannel: "chan1"},
			wantOK: true,
		},
		{
			name:   "unknown subcommand",
			text:   mention + " frobnicate",
			want:   UnrecognizedCommand{Raw: mention + " frobnicate"},
			wantOK: true,
		},
		{
			name:   "account without argument",
			text:   mention + " account",
			want:   UnrecognizedCommand{Raw: mention + " account"},
			wantOK: true,
		},
		{
			name:   "bare mention",
			text:   mention,
			want:   UnrecognizedCommand{Raw: mention},
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRevoltCommand(tt.text, mention, "user1", "chan1")
			if ok != tt.wantOK {
				t.Fatalf("parseRevoltCommand() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseRevoltCommand() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
