package irc

import (
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/irc/ctcp"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/event"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

// HookMessage hooks on messages to a channel. IRC formatting and control characters are stripped from the message
func (i *IRC) HookMessage(f func(source, channel, message string, isAction bool)) {
	i.ParsedEvents.Attach("MSG", func(e event.Event) {
		messageEvent := e.(*MessageEvent)
		if e.IsCancelled() || messageEvent.IsNotice || !util.IsChannel(messageEvent.Channel) {
			return
		}
		act := false
		msg := messageEvent.Message
		if out, err := ctcp.Parse(messageEvent.Message); err == nil {
			if out.Command != "ACTION" {
				return
			}
			msg = out.Arg
			act = true
		}
		f(util.UserHost2Canonical(messageEvent.Source), messageEvent.Channel, util.StripAll(msg), act)
	}, event.PriNorm)
}

// HookPrivateMessage hooks on messages to us directly
func (i *IRC) HookPrivateMessage(f func(source, channel, message string)) {
	i.ParsedEvents.Attach("MSG", func(e event.Event) {
		msg := e.(*MessageEvent)
		if e.IsCancelled() || msg.IsNotice || util.IsChannel(msg.Channel) || ctcp.IsCTCP(msg.Message) {
			return
		}
		f(util.UserHost2Canonical(msg.Source), msg.Channel, util.StripAll(msg.Message))
	}, event.PriNorm)
}

// HookKick hooks on a user being kicked from a channel
func (i *IRC) HookKick(f func(source, channel, target, message string)) {
	i.ParsedEvents.Attach("KICK", func(e event.Event) {
		kick := e.(*KickEvent)
		f(util.UserHost2Canonical(kick.Source), kick.Channel, kick.KickedNick, util.StripAll(kick.Message))
	}, event.PriNorm)
}
