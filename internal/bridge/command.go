package bridge

import "strings"

// Command is a typed linking or mapping command parsed from message text.
// Parsing is separate from dispatch: the grammar lives here, the side
// effects in the command handler.
type Command interface {
	isCommand()
}

// LinkBeginCommand starts an identity-link handshake from Revolt.
type LinkBeginCommand struct {
	// MeowerUsername is the identity the Revolt user claims to own.
	MeowerUsername string
	RevoltUserID   string
	OriginChannel  string
}

// LinkCompleteCommand finishes a handshake from Meower.
type LinkCompleteCommand struct {
	// ClaimedUsername is the pending-entry key named in the command.
	ClaimedUsername string
	// ActingUsername is the author actually issuing the command.
	ActingUsername string
	// OriginChat is where the confirmation reply goes.
	OriginChat string
}

// ChannelMapCommand maps the issuing Revolt channel onto a Meower chat.
type ChannelMapCommand struct {
	MeowerChat    string
	RevoltChannel string
}

// UnrecognizedCommand is a bridge mention with an unknown subcommand.
type UnrecognizedCommand struct {
	Raw string
}

func (LinkBeginCommand) isCommand()    {}
func (LinkCompleteCommand) isCommand() {}
func (ChannelMapCommand) isCommand()   {}
func (UnrecognizedCommand) isCommand() {}

// parseMeowerCommand recognizes "@<self> link <username>" posts. The
// second return is false for anything that is not addressed to the bridge.
func parseMeowerCommand(text, selfUsername, author, chat string) (Command, bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 || tokens[0] != "@"+selfUsername {
		return nil, false
	}
	if len(tokens) >= 3 && tokens[1] == "link" {
		return LinkCompleteCommand{
			ClaimedUsername: tokens[2],
			ActingUsername:  author,
			OriginChat:      chat,
		}, true
	}
	return UnrecognizedCommand{Raw: text}, true
}

// parseRevoltCommand recognizes "<@BOT> account <username>" and
// "<@BOT> link <chat>" messages.
func parseRevoltCommand(text, mention, authorID, channelID string) (Command, bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 || tokens[0] != mention {
		return nil, false
	}
	if len(tokens) < 2 {
		return UnrecognizedCommand{Raw: text}, true
	}
	switch tokens[1] {
	case "account":
		if len(tokens) < 3 {
			return UnrecognizedCommand{Raw: text}, true
		}
		return LinkBeginCommand{
			MeowerUsername: tokens[2],
			RevoltUserID:   authorID,
			OriginChannel:  channelID,
		}, true
	case "link":
		if len(tokens) < 3 {
			return UnrecognizedCommand{Raw: text}, true
		}
		return ChannelMapCommand{
			MeowerChat:    tokens[2],
			RevoltChannel: channelID,
		}, true
	}
	return UnrecognizedCommand{Raw: text}, true
}

func tokenize(text string) []string {
	return strings.Fields(strings.TrimSpace(text))
}
