package irc

import (
	"strings"
	"time"

	"github.com/goshuirc/irc-go/ircmsg"
	"github.com/goshuirc/irc-go/ircutils"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/event"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

// RawEvent represents an incoming raw IRC Line that needs to be handled
type RawEvent struct {
	event.BaseEvent
	Line ircmsg.IrcMessage
	Time time.Time
}

// EventType implements event.Event
func (r *RawEvent) EventType() string { return "raw" }

// CommandIs returns whether or not the command on the Line contained in the RawEvent matches any of the passed command
// names
func (r *RawEvent) CommandIs(names ...string) bool {
	for _, n := range names {
		if n == r.Line.Command {
			return true
		}
	}
	return false
}

// NewRawEvent creates a RawEvent with the given name and Line
func NewRawEvent(name string, line ircmsg.IrcMessage, tme time.Time) *RawEvent {
	return &RawEvent{BaseEvent: event.BaseEvent{Name_: strings.ToUpper(name)}, Line: line, Time: tme}
}

// MessageEvent represents an IRC user message, both NOTICE and PRIVMSGs
type MessageEvent struct {
	*RawEvent
	IsNotice bool
	Source   ircutils.UserHost
	Channel  string
	Message  string
}

// EventType implements event.Event
func (m *MessageEvent) EventType() string { return "message" }

// NewMessageEvent creates a MessageEvent with the given data.
func NewMessageEvent(name string, line ircmsg.IrcMessage, tme time.Time) *MessageEvent {
	return &MessageEvent{
		NewRawEvent(name, line, tme),
		line.Command == "NOTICE",
		ircutils.ParseUserhost(line.Prefix),
		util.IdxOrEmpty(line.Params, 0),
		util.IdxOrEmpty(line.Params, 1),
	}
}

// NickEvent represents an IRC NICK command
type NickEvent struct {
	*RawEvent
	Source  ircutils.UserHost
	NewNick string
}

// EventType implements event.Event
func (n *NickEvent) EventType() string { return "nick" }

// NewNickEvent creates a NickEvent from the given data
func NewNickEvent(name string, line ircmsg.IrcMessage, tme time.Time) *NickEvent {
	return &NickEvent{
		RawEvent: NewRawEvent(name, line, tme),
		Source:   ircutils.ParseUserhost(line.Prefix),
		NewNick:  util.IdxOrEmpty(line.Params, 0),
	}
}

// KickEvent represents a channel KICK
type KickEvent struct {
	*RawEvent
	Source     ircutils.UserHost
	Channel    string
	KickedNick string
	Message    string
}

// EventType implements event.Event
func (k *KickEvent) EventType() string { return "kick" }

// NewKickEvent creates a KickEvent from the given data
func NewKickEvent(name string, line ircmsg.IrcMessage, tme time.Time) *KickEvent {
	return &KickEvent{
		RawEvent:   NewRawEvent(name, line, tme),
		Source:     ircutils.ParseUserhost(line.Prefix),
		Channel:    util.IdxOrEmpty(line.Params, 0),
		KickedNick: util.IdxOrEmpty(line.Params, 1),
		Message:    util.IdxOrEmpty(line.Params, 2),
	}
}
