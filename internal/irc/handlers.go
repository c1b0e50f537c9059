package irc

import (
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/irc/ctcp"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/version"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/event"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

func (i *IRC) handleNickInUse(e event.Event) {
	rawEvent := event2RawEvent(e)
	if rawEvent == nil || len(rawEvent.Line.Params) < 2 {
		i.log.Warn("Got an invalid 433 event")
		return
	}

	newNick := rawEvent.Line.Params[1] + "_"
	i.log.Infof("nick %q is in use, trying %q", rawEvent.Line.Params[1], newNick)

	if _, err := i.writeLine("NICK", newNick); err != nil {
		i.log.Warnf("Error while updating nick: %s", err)
	}

	i.runtimeNick.Set(newNick)
}

func (i *IRC) onNick(e event.Event) {
	nick, ok := e.(*NickEvent)
	if !ok || nick.Source.Nick != i.runtimeNick.Get() {
		return
	}

	i.runtimeNick.Set(nick.NewNick)
}

// onCTCP answers CTCP requests sent directly to us, and cancels them so that they are not seen as messages
func (i *IRC) onCTCP(e event.Event) {
	msg, ok := e.(*MessageEvent)
	if !ok || msg.IsNotice || util.IsChannel(msg.Channel) {
		return
	}

	parsed, err := ctcp.Parse(msg.Message)
	if err != nil {
		return
	}

	switch parsed.Command {
	case "VERSION":
		i.SendNotice(msg.Source.Nick, ctcp.CTCP{Command: "VERSION", Arg: version.CTCPVersion()}.String())
	case "PING":
		i.SendNotice(msg.Source.Nick, parsed.String())
	case "ACTION":
		return
	default:
		i.log.Debugf("ignoring CTCP %s from %s", parsed.Command, msg.Source.Nick)
	}

	msg.SetCancelled(true)
}
