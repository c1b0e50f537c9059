package command

import (
	"strings"

	"github.com/goshuirc/irc-go/ircutils"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

// Data represents all the data available for a command call
type Data struct {
	FromTerminal bool
	Args         []string
	OriginalArgs string
	Source       ircutils.UserHost
	Target       string
	Manager      *Manager
}

// CheckPerms verifies that the admin level of the source user is at or above the requiredLevel
func (d *Data) CheckPerms(requiredLevel int) bool {
	return d.Manager.CheckAdmin(d, requiredLevel)
}

// SendNotice sends an IRC notice to the given target with the given message
func (d *Data) SendNotice(target, msg string) {
	d.Manager.messenger.SendNotice(target, msg)
}

// SendSourceNotice is a shortcut to SendNotice that sets the target of the notice to the nick of the command source
func (d *Data) SendSourceNotice(msg string) {
	d.SendNotice(d.Source.Nick, msg)
}

// SendPrivmsg sends an IRC privmsg to the given target
func (d *Data) SendPrivmsg(target, msg string) {
	d.Manager.messenger.SendMessage(target, msg)
}

// SendTargetMessage is a shortcut to SendPrivmsg that sets the target for the message to the target of the Data object
func (d *Data) SendTargetMessage(msg string) {
	d.SendPrivmsg(d.Target, msg)
}

// ReplyTarget returns where replies to this command should go: the channel it was sent in, or the nick of the source
// for private messages
func (d *Data) ReplyTarget() string {
	if util.IsChannel(d.Target) {
		return d.Target
	}
	return d.Source.Nick
}

// ReturnMessage sends a message back to wherever the command came from. Commands from the terminal are logged
func (d *Data) ReturnMessage(msg string) {
	if d.FromTerminal {
		d.Manager.Logger.Info(msg)
		return
	}
	d.SendPrivmsg(d.ReplyTarget(), msg)
}

// ReturnNotice sends a notice to the source of the command. Commands from the terminal are logged
func (d *Data) ReturnNotice(msg string) {
	if d.FromTerminal {
		d.Manager.Logger.Info(msg)
		return
	}
	d.SendSourceNotice(msg)
}

// Replier returns a function that sends messages to the same place ReturnMessage does. It remains valid after the
// command returns
func (d *Data) Replier() func(string) {
	fromTerm, target, m := d.FromTerminal, d.ReplyTarget(), d.Manager
	return func(msg string) {
		if fromTerm {
			m.Logger.Info(msg)
			return
		}
		m.messenger.SendMessage(target, msg)
	}
}

// String returns the arguments on the Data joined with spaces
func (d *Data) String() string {
	return strings.Join(d.Args, " ")
}

// SourceMask returns the source of the command as nick!user@host
func (d *Data) SourceMask() string {
	return util.UserHost2Canonical(d.Source)
}
