// Package irc implements an IRC client that satisfies interfaces.Bot
package irc

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/goshuirc/irc-go/ircmsg"
	"github.com/goshuirc/irc-go/ircutils"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/interfaces"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/event"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/mutexTypes"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

const (
	pingInterval = time.Second * 15
	maxLag       = time.Second * 60
)

// Admin holds a mask level pair, for use in commands
type Admin struct {
	Mask  string `toml:"mask"`
	Level int    `toml:"level"`
}

// Conf holds the configuration for an IRC instance
type Conf struct {
	DontVerifyCerts bool   `toml:"dont_verify_certs"`
	SSL             bool   `toml:"ssl"`
	CmdPfx          string `toml:"command_prefix"`

	Host          string   `toml:"host"`
	Port          string   `toml:"port"`
	HostPasswd    string   `toml:"host_password"`
	Admins        []Admin  `toml:"admins"`
	AdminChannels []string `toml:"admin_channels"`
	Channels      []string `toml:"channels"`

	Nick  string `toml:"nick"`
	Ident string `toml:"ident"`
	Gecos string `toml:"gecos"`

	Authenticate bool   `toml:"authenticate"`
	SASL         bool   `toml:"use_sasl"`
	AuthUser     string `toml:"auth_user"`
	AuthPasswd   string `toml:"auth_password"`
}

func (c *Conf) setDefaults() {
	if c.Port == "" {
		if c.SSL {
			c.Port = "6697"
		} else {
			c.Port = "6667"
		}
	}

	if c.Ident == "" {
		c.Ident = c.Nick
	}

	if c.Gecos == "" {
		c.Gecos = c.Nick
	}

	if c.CmdPfx == "" {
		c.CmdPfx = "!"
	}
}

func (c *Conf) validate() error {
	switch {
	case c.Host == "":
		return errors.New("no host specified")
	case c.Nick == "":
		return errors.New("no nick specified")
	case strings.ContainsAny(c.Nick, " !@"):
		return fmt.Errorf("invalid nick %q", c.Nick)
	}

	for _, a := range c.Admins {
		if a.Mask == "" || a.Level < 1 {
			return fmt.Errorf("invalid admin %q with level %d: masks must be set and levels must be at least 1", a.Mask, a.Level)
		}
	}
	return nil
}

// IRC Represents a connection to an IRC server
type IRC struct {
	confMutex         sync.RWMutex
	conf              *Conf
	channels          mutexTypes.StringSlice
	Connected         mutexTypes.Bool
	StopRequested     mutexTypes.Bool
	runtimeNick       mutexTypes.String
	socket            net.Conn
	socketDoneChan    chan struct{} // closed when the read loop exits
	writeMutex        sync.Mutex
	lag               mutexTypes.Duration
	lastPong          mutexTypes.Time
	pingCount         int
	log               *log.Logger
	RawEvents         *event.Manager
	ParsedEvents      *event.Manager
	capabilityManager *capabilityManager
	dial              func(network, address string) (net.Conn, error)
}

// New creates a new IRC instance ready for use
func New(conf interfaces.Unmarshaler, logger *log.Logger) (*IRC, error) {
	out := &IRC{
		log:          logger,
		RawEvents:    new(event.Manager),
		ParsedEvents: new(event.Manager),
	}

	if err := out.Reload(conf); err != nil {
		return nil, err
	}

	out.setupParsers()
	out.capabilityManager = newCapabilityManager(out)
	out.capabilityManager.supportCap("userhost-in-names")
	out.capabilityManager.supportCap("server-time")

	c := out.Conf()
	if c.SSL && c.SASL {
		out.capabilityManager.supportCap("sasl")
	} else if c.SASL {
		out.log.Warn("SASL disabled as the connection is not SSL")
	}

	return out, nil
}

// Conf returns the current config of the IRC instance
func (i *IRC) Conf() *Conf {
	i.confMutex.RLock()
	defer i.confMutex.RUnlock()
	return i.conf
}

func (i *IRC) setupParsers() {
	i.RawEvents.Attach("PRIVMSG", i.dispatchMessage, event.PriHighest)
	i.RawEvents.Attach("NOTICE", i.dispatchMessage, event.PriHighest)
	i.RawEvents.Attach("KICK", i.dispatchKick, event.PriHighest)
	i.RawEvents.Attach("NICK", i.dispatchNick, event.PriHighest)
	i.RawEvents.Attach("PONG", i.pongHandler, event.PriHighest)
	i.RawEvents.Attach("433", i.handleNickInUse, event.PriHighest)
	i.ParsedEvents.Attach("NICK", i.onNick, event.PriHighest)
	i.ParsedEvents.Attach("MSG", i.onCTCP, event.PriHighest)
}

// ErrNotConnected returned from Write when the IRC instance is not connected to a server
var ErrNotConnected = errors.New("cannot send a message when not connected")

func (i *IRC) write(toSend []byte) (int, error) {
	if !i.Connected.Get() {
		return 0, ErrNotConnected
	}
	if !bytes.HasSuffix(toSend, []byte{'\r', '\n'}) {
		toSend = append(toSend, '\r', '\n')
	}
	i.log.Debug("<< ", string(toSend))
	i.writeMutex.Lock()
	defer i.writeMutex.Unlock()
	return i.socket.Write(toSend)
}

func (i *IRC) writeLine(command string, args ...string) (int, error) {
	l := util.MakeSimpleIRCLine(command, args...)
	lBytes, err := l.LineBytes()
	if err != nil {
		return -1, err
	}
	return i.write(lBytes)
}

func (i *IRC) openSocket(c *Conf) (net.Conn, error) {
	target := net.JoinHostPort(c.Host, c.Port)
	switch {
	case i.dial != nil:
		return i.dial("tcp", target)
	case c.SSL:
		return tls.Dial("tcp", target, &tls.Config{InsecureSkipVerify: c.DontVerifyCerts}) //nolint:gosec // its configurable
	default:
		return net.Dial("tcp", target)
	}
}

// Connect connects to IRC and does the required negotiation for registering on the network and any capabilities
// that have been requested
func (i *IRC) Connect() error {
	c := i.Conf()
	s, err := i.openSocket(c)
	if err != nil {
		return fmt.Errorf("could not open socket: %w", err)
	}

	i.socket = s
	i.socketDoneChan = make(chan struct{})
	i.StopRequested.Set(false)
	i.lastPong.Set(time.Time{})
	i.runtimeNick.Set(c.Nick)
	i.Connected.Set(true)

	welcome, welcomeID := i.RawEvents.WaitForChanWithID("001")
	defer i.RawEvents.Detach(welcomeID)
	go i.readLoop(s, i.socketDoneChan)

	if c.HostPasswd != "" {
		if _, err := i.writeLine("PASS", c.HostPasswd); err != nil {
			return err
		}
	}

	i.capabilityManager.negotiateCaps()
	if _, err := i.writeLine("USER", c.Ident, "*", "*", c.Gecos); err != nil {
		return err
	}
	if _, err := i.writeLine("NICK", c.Nick); err != nil {
		return err
	}

	select {
	case <-welcome:
	case <-i.socketDoneChan:
		return errors.New("connection closed during registration")
	}

	if !i.capabilityManager.capEnabled("sasl") && c.Authenticate {
		i.SendMessage("NickServ", fmt.Sprintf("IDENTIFY %s %s", c.AuthUser, c.AuthPasswd))
	}

	for _, name := range i.channels.Get() {
		_, _ = i.writeLine("JOIN", name)
	}
	go i.pingLoop(i.socketDoneChan)

	return nil
}

// Disconnect disconnects the bot from IRC either with the given message, or the message "Disconnecting" when none is passed
func (i *IRC) Disconnect(msg string) {
	if msg == "" {
		msg = "Disconnecting"
	}
	i.StopRequested.Set(true)
	_, _ = i.writeLine("QUIT", msg)
	go func() {
		time.Sleep(time.Millisecond * 30)
		if i.Connected.Get() {
			_ = i.socket.Close()
		}
	}()
}

// Run connects the bot and blocks until it disconnects
func (i *IRC) Run() error {
	if err := i.Connect(); err != nil {
		i.Connected.Set(false)
		return err
	}
	defer i.Connected.Set(false)

	errorLine, errorID := i.RawEvents.WaitForChanWithID("ERROR")
	defer i.RawEvents.Detach(errorID)

	select {
	case e := <-errorLine:
		if !i.StopRequested.Get() {
			return fmt.Errorf("IRC server sent us an ERROR line: %s", event2RawEvent(e).Line.Params)
		}
		<-i.socketDoneChan
	case <-i.socketDoneChan:
		if !i.StopRequested.Get() {
			return errors.New("IRC socket closed")
		}
	}
	return nil
}

func (i *IRC) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		i.pingCount++
		msg := fmt.Sprintf("%s %d", time.Now().Format(time.RFC3339Nano), i.pingCount)
		if _, err := i.writeLine("PING", msg); err != nil {
			i.log.Warnf("could not send PING, closing connection: %s", err)
			_ = i.socket.Close()
			return
		}
		i.checkLag()
	}
}

func (i *IRC) pongHandler(e event.Event) {
	rawEvent := event2RawEvent(e)
	if rawEvent == nil || len(rawEvent.Line.Params) == 0 {
		i.log.Warnf("Got an invalid PONG")
		return
	}
	ts := strings.SplitN(util.ReverseIdx(rawEvent.Line.Params, -1), " ", 2)[0]
	thyme, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		i.log.Debugf("could not parse time for PONG: %s", err)
		return
	}

	i.lag.Set(time.Since(thyme))
	i.lastPong.Set(time.Now())
}

func (i *IRC) checkLag() {
	lp := i.lastPong.Get()
	if !lp.IsZero() && time.Since(lp) > maxLag {
		i.Disconnect(fmt.Sprintf("No ping response in %s", time.Since(lp).Round(time.Second)))
	}
}

func (i *IRC) readLoop(sock net.Conn, done chan struct{}) {
	defer close(done)
	s := bufio.NewScanner(sock)
	for s.Scan() {
		str := s.Text()
		i.log.Debug(">> ", str)
		line, err := ircmsg.ParseLine(str)
		if err != nil {
			i.log.Warnf("Discarding invalid Line %q: %s", str, err)
			continue
		}

		if line.Command == "PING" {
			if _, err := i.writeLine("PONG", line.Params...); err != nil {
				i.log.Warnf("could not send PONG: %s", err)
			}
		}
		i.handleLine(line)
	}
	i.Connected.Set(false)
	i.log.Info("IRC socket closed")
}

func (i *IRC) handleLine(line ircmsg.IrcMessage) {
	t := time.Now()
	if i.capabilityManager.capEnabled("server-time") && line.HasTag("time") {
		_, timeFromServer := line.GetTag("time")
		serverTime, err := time.Parse(time.RFC3339, timeFromServer)
		if err != nil {
			i.log.Warnf("server offered server-time %q which does not fit RFC 3339 format: %s", timeFromServer, err)
		} else {
			t = serverTime
		}
	}

	i.RawEvents.Dispatch(NewRawEvent(line.Command, line, t))
	i.RawEvents.Dispatch(NewRawEvent("*", line, t))
}

func nickOrOriginal(toParse string) string {
	parsed := ircutils.ParseUserhost(toParse)
	if parsed.Nick != "" {
		return parsed.Nick
	}
	return toParse
}

func (i *IRC) sendLines(command, target, message string) {
	for _, m := range strings.Split(message, "\n") {
		if m == "" {
			continue
		}
		if _, err := i.writeLine(command, nickOrOriginal(target), m); err != nil {
			i.log.Warnf("could not send %s %q to target %q: %s", command, m, target, err)
		}
	}
}

// SendMessage sends a message to the given target
func (i *IRC) SendMessage(target, message string) {
	i.sendLines("PRIVMSG", target, message)
}

// SendNotice sends a notice to the given target
func (i *IRC) SendNotice(target, message string) {
	i.sendLines("NOTICE", target, message)
}

// SendRaw sends the given line to the server without modification
func (i *IRC) SendRaw(line string) {
	if _, err := i.write([]byte(line)); err != nil {
		i.log.Warnf("could not send raw line %q: %s", line, err)
	}
}

// AdminMasks returns the configured admin masks and their levels. A mask listed more than once keeps its highest
// level
func (i *IRC) AdminMasks() map[string]int {
	out := make(map[string]int)
	for _, a := range i.Conf().Admins {
		if a.Level > out[a.Mask] {
			out[a.Mask] = a.Level
		}
	}
	return out
}

// Nick returns the nick currently in use on the server, or the configured one before registration
func (i *IRC) Nick() string {
	if nick := i.runtimeNick.Get(); nick != "" {
		return nick
	}
	return i.Conf().Nick
}

// SendAdminMessage sends the given message to all AdminChannels defined on the bot
func (i *IRC) SendAdminMessage(msg string) {
	for _, c := range i.Conf().AdminChannels {
		i.SendMessage(c, msg)
	}
}

// JoinChannel joins the bot to the named channel and adds it to the channel list for later autojoins. A channel
// that is already on the list is joined again, which rejoins it after a kick
func (i *IRC) JoinChannel(name string) {
	if i.Connected.Get() {
		_, _ = i.writeLine("JOIN", name)
	}

	if !i.channels.Contains(name) {
		i.channels.Append(name)
	}
}

func (i *IRC) String() string {
	c := i.Conf()
	return fmt.Sprintf(
		"IRC conn; Host: %s, Port: %s, Connected: %t, Lag: %dms",
		c.Host,
		c.Port,
		i.Connected.Get(),
		i.lag.Get().Milliseconds(),
	)
}

// Reload parses and reloads the config on the IRC instance
func (i *IRC) Reload(conf interfaces.Unmarshaler) error {
	newConf := new(Conf)
	if err := conf.Unmarshal(newConf); err != nil {
		return fmt.Errorf("could not parse config: %w", err)
	}

	newConf.setDefaults()
	if err := newConf.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if newConf.DontVerifyCerts {
		i.log.Warn("IRC instance configured without certificate verification. This is susceptible to MITM attacks")
	}

	old := i.Conf()
	i.confMutex.Lock()
	i.conf = newConf
	i.confMutex.Unlock()

	if old != nil && old.Nick != newConf.Nick && i.Connected.Get() {
		_, _ = i.writeLine("NICK", newConf.Nick)
	}

	for _, c := range newConf.Channels {
		i.JoinChannel(c)
	}

	for _, c := range newConf.AdminChannels {
		i.JoinChannel(c)
	}

	return nil
}

// StaticCommandPrefixes returns the valid command prefixes for the IRC instance.
// Specifically, the configured one, and the current nick followed by a colon or comma
func (i *IRC) StaticCommandPrefixes() []string {
	nick := i.Nick()
	return []string{i.Conf().CmdPfx, nick + ": ", nick + ", "}
}

// HumanReadableSource takes an IRC userhost and returns just the nick
func (i *IRC) HumanReadableSource(source string) string {
	if out := ircutils.ParseUserhost(source).Nick; out != "" {
		return out
	}

	return source
}

// Status returns a short status line about the connection
func (i *IRC) Status() string {
	return fmt.Sprintf("IRC: Connected: %t Lag: %s", i.Connected.Get(), i.lag.Get().Round(time.Millisecond))
}
