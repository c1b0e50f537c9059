package bot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/config/tomlconf"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/interfaces"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/jenkins"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/nullconn"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
)

const nullConfig = `
[connection]
type = "null"

[jenkins]
url = "http://ci.example.com"
`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

type downConnector struct{}

func (downConnector) Connect(context.Context, jenkins.Credentials) (jenkins.Server, error) {
	return nil, errors.New("jenkins is down")
}

func writeConfig(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func testManager(t *testing.T) (*Manager, *nullconn.NullConn, *syncBuffer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, nullConfig)

	conf, err := tomlconf.GetConfig(path)
	if err != nil {
		t.Fatalf("could not load config: %s", err)
	}

	out := new(syncBuffer)
	logger := log.New(0, out, "TEST", log.TRACE)
	m, err := newManager(conf, logger, nullconn.New(logger.Clone().SetPrefix("NULL")), downConnector{})
	if err != nil {
		t.Fatalf("newManager() error = %s", err)
	}
	t.Cleanup(m.Jenkins.Stop)

	return m, m.bot.(*nullconn.NullConn), out, path
}

func TestNewManager(t *testing.T) {
	m, _, _, _ := testManager(t)
	want := []string{"ci", "help", "jenkins", "raw", "reload", "status", "stop"}
	if got := m.Cmd.CommandNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("CommandNames() = %v, want %v", got, want)
	}
}

func TestNewManager_badConnection(t *testing.T) {
	conf := &tomlconf.Config{Connection: tomlconf.ConfigHolder{Type: "smoke signals"}}
	if _, err := NewManager(conf, log.New(0, new(syncBuffer), "", log.TRACE)); err == nil {
		t.Error("NewManager() with an unknown connection type did not error")
	}
}

func TestManager_ParseConsoleLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantLog  string
		wantSent string
	}{
		{"jenkins", "jenkins version", "[CMD] jenkins is down", ""},
		{"alias", "ci help", "[CMD] usage: jenkins [instance] <sub command> [args...]", ""},
		{"raw", "raw PRIVMSG #ci :hi there", "", "RAW *: PRIVMSG #ci :hi there"},
		{"raw no args", "raw", "[CMD] raw requires an argument", ""},
		{"status", "status", "[CMD] null connection; 0 lines sent", ""},
		{"unknown", "dance", `unknown command "dance"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, conn, out, _ := testManager(t)
			m.ParseConsoleLine(tt.line)
			if tt.wantLog != "" && !strings.Contains(out.String(), tt.wantLog) {
				t.Errorf("log does not contain %q:\n%s", tt.wantLog, out.String())
			}
			if tt.wantSent != "" {
				sent := conn.Sent()
				if len(sent) != 1 || sent[0] != tt.wantSent {
					t.Errorf("Sent() = %q, want [%q]", sent, tt.wantSent)
				}
			}
		})
	}
}

func TestManager_Status(t *testing.T) {
	m, _, _, _ := testManager(t)
	want := "null connection; 0 lines sent, channels: [] jenkins: 0 instances configured, 0 build watches active"
	if got := m.Status(); got != want {
		t.Errorf("Status() = %q, want %q", got, want)
	}
}

func TestManager_Reload(t *testing.T) {
	m, conn, out, path := testManager(t)
	writeConfig(t, path, nullConfig+`
[jenkins.instances.prod]
url = "https://prod-ci.example.com"
`)

	m.ParseConsoleLine("reload")
	if !strings.Contains(out.String(), "reload complete") {
		t.Fatalf("reload did not complete:\n%s", out.String())
	}
	if _, ok := m.Conf().Jenkins.Instances["prod"]; !ok {
		t.Errorf("reloaded config is missing instance prod: %+v", m.Conf().Jenkins)
	}
	if !strings.Contains(m.Status(), "jenkins: 1 instances configured") {
		t.Errorf("plugin config was not swapped: %q", m.Status())
	}

	writeConfig(t, path, `
[connection]
type = "irc"
	[connection.server]
	host = "irc.example.net"
	nick = "jenkins"
`)
	if err := m.Reload(); err == nil || !strings.Contains(err.Error(), "cannot change connection type") {
		t.Errorf("Reload() to a different connection type error = %v", err)
	}

	writeConfig(t, path, "[connection]\ntype = \"null\"\n[jenkins.instances.status]\nurl = \"http://x\"\n")
	m.ParseConsoleLine("reload")
	if !strings.Contains(out.String(), "reload failed") {
		t.Errorf("reload with a clashing instance name did not fail:\n%s", out.String())
	}
	sent := conn.Sent()
	if len(sent) == 0 || !strings.HasPrefix(sent[len(sent)-1], "ADMIN *: bot.Manager: ") {
		t.Errorf("failed reload was not sent to admins: %q", sent)
	}
	if _, ok := m.Conf().Jenkins.Instances["prod"]; !ok {
		t.Error("failed reload replaced the config")
	}
}

func runManager(t *testing.T, m *Manager) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- m.Run() }()
	return done
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %s", err)
		}
	case <-time.After(time.Second * 2):
		t.Fatal("Run() did not return after Stop")
	}
}

func TestManager_Stop(t *testing.T) {
	m, _, out, _ := testManager(t)
	done := runManager(t, m)

	m.ParseConsoleLine("stop going away")
	waitRun(t, done)

	select {
	case <-m.Done():
	default:
		t.Error("Done() was not closed by Stop")
	}
	if !strings.Contains(out.String(), "Disconnect requested with message: going away") {
		t.Errorf("stop message did not reach the connection:\n%s", out.String())
	}

	m.Stop("again")
}

type flakyConn struct {
	*nullconn.NullConn
	mu    sync.Mutex
	runs  int
	drops int
}

func (f *flakyConn) Run() error {
	f.mu.Lock()
	f.runs++
	drop := f.runs <= f.drops
	f.mu.Unlock()
	if drop {
		return errors.New("connection reset by peer")
	}
	return f.NullConn.Run()
}

func (f *flakyConn) Runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func TestManager_Run_reconnects(t *testing.T) {
	m, conn, _, _ := testManager(t)
	flaky := &flakyConn{NullConn: conn, drops: 2}
	m.bot = flaky
	m.reconnectDelay = time.Millisecond

	done := runManager(t, m)
	deadline := time.Now().Add(time.Second * 2)
	for flaky.Runs() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Run() only ran the connection %d times", flaky.Runs())
		}
		time.Sleep(time.Millisecond)
	}

	m.Stop("done")
	waitRun(t, done)
}

// chatConn is a NullConn with configured admins that exposes the hooks the Manager attaches
type chatConn struct {
	*nullconn.NullConn
	admins  map[string]int
	message func(source, channel, message string, isAction bool)
	kick    func(source, channel, target, message string)
	joined  []string
	reloads int
}

func (c *chatConn) AdminMasks() map[string]int { return c.admins }

func (c *chatConn) Nick() string { return "jenkins" }

func (c *chatConn) StaticCommandPrefixes() []string { return []string{"!"} }

func (c *chatConn) JoinChannel(name string) { c.joined = append(c.joined, name) }

func (c *chatConn) HookMessage(f func(string, string, string, bool)) { c.message = f }

func (c *chatConn) HookKick(f func(string, string, string, string)) { c.kick = f }

func (c *chatConn) Reload(conf interfaces.Unmarshaler) error {
	c.reloads++
	return c.NullConn.Reload(conf)
}

func testChatManager(t *testing.T, admins map[string]int) (*Manager, *chatConn) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, nullConfig)
	conf, err := tomlconf.GetConfig(path)
	if err != nil {
		t.Fatalf("could not load config: %s", err)
	}

	logger := log.New(0, new(syncBuffer), "TEST", log.TRACE)
	conn := &chatConn{NullConn: nullconn.New(logger), admins: admins}
	m, err := newManager(conf, logger, conn, downConnector{})
	if err != nil {
		t.Fatalf("newManager() error = %s", err)
	}
	t.Cleanup(m.Jenkins.Stop)
	return m, conn
}

func TestManager_admins(t *testing.T) {
	m, conn := testChatManager(t, map[string]int{"boss!*@example.com": ownerLevel})

	conn.message("boss!b@example.com", "#ci", "!raw PRIVMSG #ci :hi", false)
	conn.message("eve!e@example.net", "#ci", "!raw PRIVMSG #ci :bye", false)
	want := []string{"RAW *: PRIVMSG #ci :hi", "NOTICE eve: You are not permitted to use this command"}
	if got := conn.Sent(); !reflect.DeepEqual(got, want) {
		t.Errorf("Sent() = %q, want %q", got, want)
	}

	conn.admins = map[string]int{"eve!*@example.net": ownerLevel}
	if err := m.reload(m.Conf()); err != nil {
		t.Fatalf("reload() error = %s", err)
	}
	if got := m.Cmd.AdminLevel("boss!b@example.com"); got != 0 {
		t.Errorf("admin removed from the config still has level %d after a reload", got)
	}
	if got := m.Cmd.AdminLevel("eve!e@example.net"); got != ownerLevel {
		t.Errorf("admin added to the config has level %d after a reload, want %d", got, ownerLevel)
	}
}

func TestManager_onKick(t *testing.T) {
	_, conn := testChatManager(t, nil)

	conn.kick("op!o@example.com", "#ci", "someone", "out")
	conn.kick("op!o@example.com", "#ci", "Jenkins", "out")
	if want := []string{"#ci"}; !reflect.DeepEqual(conn.joined, want) {
		t.Errorf("joined %v after kicks, want %v", conn.joined, want)
	}
}

func TestManager_reload_invalidJenkinsLeavesConnection(t *testing.T) {
	m, conn := testChatManager(t, nil)
	old := m.Conf()

	conf := *old
	conf.Jenkins.Instances = map[string]*tomlconf.Instance{"status": {URL: "http://x"}}
	if err := m.reload(&conf); err == nil || !strings.Contains(err.Error(), "same name as a sub command") {
		t.Fatalf("reload() with a clashing instance error = %v", err)
	}
	if conn.reloads != 0 {
		t.Errorf("connection was reloaded %d times by a rejected config", conn.reloads)
	}
	if m.Conf() != old {
		t.Error("rejected config replaced the one in use")
	}
}
