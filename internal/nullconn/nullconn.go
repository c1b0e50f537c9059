// Package nullconn holds a null connection that satisfies interfaces.Bot
package nullconn

import (
	"fmt"
	"sync"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/interfaces"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/mutexTypes"
)

// MaxSent is the number of sent lines a NullConn keeps
const MaxSent = 100

// New creates a new NullConn for use with a bot
func New(l *log.Logger) *NullConn {
	return &NullConn{log: l, disconChan: make(chan struct{})}
}

// NullConn is an implementation of interfaces.Bot that sends nothing anywhere. Everything it would send is logged
// and the last MaxSent lines are kept, which makes it useful for running the bot from the terminal only, and for tests
type NullConn struct {
	log        *log.Logger
	mu         sync.Mutex
	disconChan chan struct{}
	sent       []string
	sentCount  int
	channels   mutexTypes.StringSlice
}

// Connect does nothing but log
func (n *NullConn) Connect() error {
	n.log.Info("connect requested")
	n.mu.Lock()
	select {
	case <-n.disconChan:
		n.disconChan = make(chan struct{})
	default:
	}
	n.mu.Unlock()
	return nil
}

// Disconnect makes Run return. It is safe to call more than once
func (n *NullConn) Disconnect(msg string) {
	n.log.Infof("Disconnect requested with message: %s", msg)
	n.mu.Lock()
	defer n.mu.Unlock()
	select {
	case <-n.disconChan:
	default:
		close(n.disconChan)
	}
}

// Run blocks until Disconnect is called
func (n *NullConn) Run() error {
	n.log.Info("Run requested")
	n.mu.Lock()
	c := n.disconChan
	n.mu.Unlock()
	<-c
	return nil
}

func (n *NullConn) record(kind, target, msg string) {
	line := fmt.Sprintf("%s %s: %s", kind, target, msg)
	n.log.Info(line)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.sentCount++
	if len(n.sent) == MaxSent {
		copy(n.sent, n.sent[1:])
		n.sent = n.sent[:MaxSent-1]
	}
	n.sent = append(n.sent, line)
}

// SendAdminMessage logs the given message
func (n *NullConn) SendAdminMessage(msg string) { n.record("ADMIN", "*", msg) }

// SendMessage logs a message to the given target
func (n *NullConn) SendMessage(target, msg string) { n.record("PRIVMSG", target, msg) }

// SendNotice logs a notice to the given target
func (n *NullConn) SendNotice(target, msg string) { n.record("NOTICE", target, msg) }

// Sent returns the last MaxSent lines sent through the NullConn, oldest first, in the form "KIND target: message"
func (n *NullConn) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

func (n *NullConn) sentLines() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sentCount
}

func (n *NullConn) HookMessage(func(source, channel, message string, isAction bool)) {}
func (n *NullConn) HookPrivateMessage(func(source, channel, message string))        {}
func (n *NullConn) HookKick(func(source, channel, target, message string))          {}

// AdminMasks returns nothing. The terminal is the only admin of a NullConn
func (n *NullConn) AdminMasks() map[string]int { return nil }

// Nick returns the name commands from the terminal are run as
func (n *NullConn) Nick() string { return "console" }

// JoinChannel records the channel as joined
func (n *NullConn) JoinChannel(name string) {
	if !n.channels.Contains(name) {
		n.channels.Append(name)
	}
	n.log.Infof("join channel requested: %s", name)
}

// Reload does nothing, a NullConn has no config
func (n *NullConn) Reload(interfaces.Unmarshaler) error {
	n.log.Info("reload requested")
	return nil
}

// StaticCommandPrefixes returns no prefixes
func (n *NullConn) StaticCommandPrefixes() []string { return nil }

// HumanReadableSource returns source unchanged
func (n *NullConn) HumanReadableSource(source string) string { return source }

// Status returns the status of the NullConn
func (n *NullConn) Status() string {
	return fmt.Sprintf("null connection; %d lines sent, channels: %v", n.sentLines(), n.channels.Get())
}

// SendRaw logs the line
func (n *NullConn) SendRaw(line string) { n.record("RAW", "*", line) }

func (n *NullConn) String() string { return "null connection" }
