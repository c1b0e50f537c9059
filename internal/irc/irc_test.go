package irc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goshuirc/irc-go/ircmsg"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/interfaces"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/event"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
)

var _ interfaces.Bot = (*IRC)(nil)

type stubConf Conf

func (s stubConf) Unmarshal(v interface{}) error {
	c, ok := v.(*Conf)
	if !ok {
		return errors.New("stubConf can only unmarshal into *Conf")
	}
	*c = Conf(s)
	return nil
}

type badConf struct{}

func (badConf) Unmarshal(interface{}) error { return errors.New("nope") }

func newTestIRC(t *testing.T, conf stubConf) *IRC {
	t.Helper()
	i, err := New(conf, log.New(0, io.Discard, "test", log.TRACE))
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %s", err)
	}
	return i
}

func parse(t *testing.T, line string) ircmsg.IrcMessage {
	t.Helper()
	out, err := ircmsg.ParseLine(line)
	if err != nil {
		t.Fatalf("could not parse %q: %s", line, err)
	}
	return out
}

func TestConf_setDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Conf
		want Conf
	}{
		{
			name: "plain",
			in:   Conf{Nick: "jenkins"},
			want: Conf{Nick: "jenkins", Ident: "jenkins", Gecos: "jenkins", Port: "6667", CmdPfx: "!"},
		},
		{
			name: "ssl",
			in:   Conf{Nick: "jenkins", SSL: true, Gecos: "Jenkins bot"},
			want: Conf{Nick: "jenkins", SSL: true, Ident: "jenkins", Gecos: "Jenkins bot", Port: "6697", CmdPfx: "!"},
		},
		{
			name: "nothing to do",
			in:   Conf{Nick: "a", Ident: "b", Gecos: "c", Port: "1", CmdPfx: "~"},
			want: Conf{Nick: "a", Ident: "b", Gecos: "c", Port: "1", CmdPfx: "~"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.setDefaults()
			if !reflect.DeepEqual(tt.in, tt.want) {
				t.Errorf("setDefaults() = %+v, want %+v", tt.in, tt.want)
			}
		})
	}
}

func TestConf_validate(t *testing.T) {
	tests := []struct {
		name    string
		conf    Conf
		wantErr bool
	}{
		{"valid", Conf{Host: "irc.example.com", Nick: "jenkins"}, false},
		{"no host", Conf{Nick: "jenkins"}, true},
		{"no nick", Conf{Host: "irc.example.com"}, true},
		{"bad nick", Conf{Host: "irc.example.com", Nick: "jen kins"}, true},
		{"admin", Conf{Host: "irc.example.com", Nick: "jenkins", Admins: []Admin{{"*!*@example.com", 1}}}, false},
		{"admin level zero", Conf{Host: "irc.example.com", Nick: "jenkins", Admins: []Admin{{"*!*@example.com", 0}}}, true},
		{"admin without mask", Conf{Host: "irc.example.com", Nick: "jenkins", Admins: []Admin{{"", 2}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.conf.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, err := New(badConf{}, log.New(0, io.Discard, "", 0)); err == nil {
		t.Error("New() with an unparseable config did not error")
	}

	if _, err := New(stubConf{Nick: "jenkins"}, log.New(0, io.Discard, "", 0)); err == nil {
		t.Error("New() with an invalid config did not error")
	}

	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins", SASL: true})
	if i.capabilityManager.getCapByName("sasl") != nil {
		t.Error("sasl was supported on a non-SSL connection")
	}

	i = newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins", SASL: true, SSL: true})
	if c := i.capabilityManager.getCapByName("sasl"); c == nil || !c.supported {
		t.Error("sasl was not supported on an SSL connection")
	}
}

func TestIRC_Reload(t *testing.T) {
	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins", Channels: []string{"#ci"}})
	err := i.Reload(stubConf{
		Host:          "irc.example.com",
		Nick:          "jenkins2",
		Channels:      []string{"#ci", "#builds"},
		AdminChannels: []string{"#admin"},
	})
	if err != nil {
		t.Fatalf("Reload() returned an unexpected error: %s", err)
	}

	if i.Conf().Nick != "jenkins2" {
		t.Errorf("Reload() did not update the config")
	}

	want := []string{"#ci", "#builds", "#admin"}
	if got := i.channels.Get(); !reflect.DeepEqual(got, want) {
		t.Errorf("Reload() channels = %v, want %v", got, want)
	}

	if err := i.Reload(stubConf{Nick: "nohost"}); err == nil {
		t.Error("Reload() with an invalid config did not error")
	}
	if i.Conf().Nick != "jenkins2" {
		t.Error("a failed Reload() replaced the config")
	}
}

func TestIRC_AdminMasks(t *testing.T) {
	i := newTestIRC(t, stubConf{
		Host: "irc.example.com",
		Nick: "jenkins",
		Admins: []Admin{
			{Mask: "*!*@example.com", Level: 1},
			{Mask: "boss!*@example.com", Level: 3},
			{Mask: "*!*@example.com", Level: 2},
		},
	})
	want := map[string]int{"*!*@example.com": 2, "boss!*@example.com": 3}
	if got := i.AdminMasks(); !reflect.DeepEqual(got, want) {
		t.Errorf("AdminMasks() = %v, want %v", got, want)
	}
}

func TestIRC_Nick(t *testing.T) {
	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins"})
	if got := i.Nick(); got != "jenkins" {
		t.Errorf("Nick() before registration = %q, want %q", got, "jenkins")
	}
	i.runtimeNick.Set("jenkins_")
	if got := i.Nick(); got != "jenkins_" {
		t.Errorf("Nick() = %q, want %q", got, "jenkins_")
	}
}

func TestIRC_StaticCommandPrefixes(t *testing.T) {
	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins", CmdPfx: "~"})
	want := []string{"~", "jenkins: ", "jenkins, "}
	if got := i.StaticCommandPrefixes(); !reflect.DeepEqual(got, want) {
		t.Errorf("StaticCommandPrefixes() = %v, want %v", got, want)
	}

	i.runtimeNick.Set("jenkins_")
	want = []string{"~", "jenkins_: ", "jenkins_, "}
	if got := i.StaticCommandPrefixes(); !reflect.DeepEqual(got, want) {
		t.Errorf("StaticCommandPrefixes() after nick change = %v, want %v", got, want)
	}
}

func TestIRC_HumanReadableSource(t *testing.T) {
	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins"})
	if got := i.HumanReadableSource("nick!user@host"); got != "nick" {
		t.Errorf("HumanReadableSource() = %q, want %q", got, "nick")
	}
}

func TestIRC_Hooks(t *testing.T) {
	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins"})
	var got []string
	i.HookMessage(func(source, channel, message string, isAction bool) {
		got = append(got, fmt.Sprintf("msg %s %s %s %t", source, channel, message, isAction))
	})
	i.HookPrivateMessage(func(source, channel, message string) {
		got = append(got, fmt.Sprintf("priv %s %s %s", source, channel, message))
	})
	i.HookKick(func(source, channel, target, message string) {
		got = append(got, "kick "+source+" "+channel+" "+target+" "+message)
	})

	lines := []string{
		":a!b@c PRIVMSG #ci :\x02hello\x02 there",
		":a!b@c PRIVMSG #ci :\x01ACTION waves\x01",
		":a!b@c PRIVMSG #ci :\x01PING 1\x01",
		":a!b@c PRIVMSG jenkins :secret",
		":a!b@c PRIVMSG jenkins :\x01VERSION\x01",
		":a!b@c NOTICE #ci :not for us",
		":a!b@c JOIN #ci",
		":a!b@c PART #ci :gone",
		":a!b@c QUIT :bye",
		":a!b@c KICK #ci d :\x02out\x02",
		":a!b@c NICK e",
	}
	for _, l := range lines {
		i.handleLine(parse(t, l))
	}

	want := []string{
		"msg a!b@c #ci hello there false",
		"msg a!b@c #ci waves true",
		"priv a!b@c jenkins secret",
		"kick a!b@c #ci d out",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hooks saw:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestIRC_onNick(t *testing.T) {
	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins"})
	i.runtimeNick.Set("jenkins")
	i.handleLine(parse(t, ":other!u@h NICK someone"))
	if got := i.runtimeNick.Get(); got != "jenkins" {
		t.Errorf("a nick change for another user changed ours to %q", got)
	}
	i.handleLine(parse(t, ":jenkins!u@h NICK jenkins2"))
	if got := i.runtimeNick.Get(); got != "jenkins2" {
		t.Errorf("runtime nick = %q, want %q", got, "jenkins2")
	}
}

func TestIRC_pongHandler(t *testing.T) {
	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins"})
	sent := time.Now().Add(-time.Second)
	i.handleLine(parse(t, fmt.Sprintf(":srv PONG srv :%s 1", sent.Format(time.RFC3339Nano))))
	if lag := i.lag.Get(); lag < time.Second {
		t.Errorf("lag = %s, want at least 1s", lag)
	}
	if i.lastPong.Get().IsZero() {
		t.Error("lastPong was not set")
	}
}

func TestIRC_serverTime(t *testing.T) {
	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins"})
	i.capabilityManager.setEnabled("server-time", true)
	var got time.Time
	i.ParsedEvents.Attach("MSG", func(e event.Event) { got = e.(*MessageEvent).Time }, event.PriNorm)
	i.handleLine(parse(t, "@time=2019-01-02T03:04:05.000Z :a!b@c PRIVMSG #ci :hi"))
	want := time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("message time = %s, want %s", got, want)
	}
}

func fakeServer(ln net.Listener, lines chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	s := bufio.NewScanner(conn)
	for s.Scan() {
		line := s.Text()
		lines <- line
		switch {
		case strings.HasPrefix(line, "CAP LS"):
			_, _ = fmt.Fprint(conn, ":srv CAP * LS :server-time multi-prefix\r\n")
		case strings.HasPrefix(line, "CAP REQ"):
			_, _ = fmt.Fprint(conn, ":srv CAP * ACK :server-time\r\n")
		case strings.HasPrefix(line, "NICK"):
			_, _ = fmt.Fprint(conn, ":srv 001 jenkins :Welcome\r\n")
		case strings.HasPrefix(line, "QUIT"):
			_, _ = fmt.Fprint(conn, "ERROR :Closing link\r\n")
			return
		}
	}
}

// droppingServer registers the client and then closes the socket without an ERROR line
func droppingServer(ln net.Listener, lines chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	s := bufio.NewScanner(conn)
	for s.Scan() {
		line := s.Text()
		lines <- line
		switch {
		case strings.HasPrefix(line, "CAP LS"):
			_, _ = fmt.Fprint(conn, ":srv CAP * LS :\r\n")
		case strings.HasPrefix(line, "NICK"):
			_, _ = fmt.Fprint(conn, ":srv 001 jenkins :Welcome\r\n")
		case strings.HasPrefix(line, "JOIN"):
			return
		}
	}
}

func waitForLine(t *testing.T, lines <-chan string, prefix string) {
	t.Helper()
	timeout := time.After(time.Second * 5)
	for {
		select {
		case l := <-lines:
			if strings.HasPrefix(l, prefix) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for a line starting with %q", prefix)
		}
	}
}

func TestIRC_Run(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not listen: %s", err)
	}
	defer ln.Close()

	lines := make(chan string, 64)
	go fakeServer(ln, lines)

	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins", Channels: []string{"#ci"}})
	i.dial = func(network, _ string) (net.Conn, error) { return net.Dial(network, ln.Addr().String()) }

	runErr := make(chan error, 1)
	go func() { runErr <- i.Run() }()

	waitForLine(t, lines, "CAP LS")
	waitForLine(t, lines, "CAP REQ")
	waitForLine(t, lines, "CAP END")
	waitForLine(t, lines, "USER jenkins")
	waitForLine(t, lines, "NICK jenkins")
	waitForLine(t, lines, "JOIN #ci")

	if !i.capabilityManager.capEnabled("server-time") {
		t.Error("server-time was not enabled after negotiation")
	}
	if i.capabilityManager.capEnabled("multi-prefix") {
		t.Error("an unsupported capability was enabled")
	}

	i.JoinChannel("#ci")
	waitForLine(t, lines, "JOIN #ci")
	if got := i.channels.Get(); !reflect.DeepEqual(got, []string{"#ci"}) {
		t.Errorf("channels after a rejoin = %v, want [#ci]", got)
	}

	i.Disconnect("bye")
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run() returned an error after a requested disconnect: %s", err)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Run() did not return after Disconnect()")
	}

	if i.Connected.Get() {
		t.Error("still marked as connected after Run() returned")
	}
}

func TestIRC_Run_socketClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not listen: %s", err)
	}
	defer ln.Close()

	lines := make(chan string, 64)
	go droppingServer(ln, lines)

	i := newTestIRC(t, stubConf{Host: "irc.example.com", Nick: "jenkins", Channels: []string{"#ci"}})
	i.dial = func(network, _ string) (net.Conn, error) { return net.Dial(network, ln.Addr().String()) }

	runErr := make(chan error, 1)
	go func() { runErr <- i.Run() }()

	waitForLine(t, lines, "JOIN #ci")
	select {
	case err := <-runErr:
		if err == nil || !strings.Contains(err.Error(), "socket closed") {
			t.Errorf("Run() error = %v, want a closed socket error", err)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Run() did not return after the server closed the socket")
	}

	for _, name := range []string{"ERROR", "001"} {
		if n := i.RawEvents.HandlerCount(name); n != 0 {
			t.Errorf("%d %s waiters left attached after Run() returned", n, name)
		}
	}
}
