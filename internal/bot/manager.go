// Package bot ties a chat connection, the command manager and the jenkins plugin together
package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goshuirc/irc-go/ircutils"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/command"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/config/tomlconf"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/interfaces"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/irc"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/jenkins"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/nullconn"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/mutexTypes"
)

const defaultReconnectDelay = time.Second * 10

// consoleSource is the source given to commands run from the terminal
var consoleSource = ircutils.UserHost{Nick: "console"}

// Manager owns the chat connection and everything that responds to it
type Manager struct {
	confMutex sync.RWMutex
	rootConf  *tomlconf.Config

	bot     interfaces.Bot
	Cmd     *command.Manager
	Jenkins *jenkins.Plugin
	*log.Logger

	reconnectDelay time.Duration
	stopping       mutexTypes.Bool
	stopOnce       sync.Once
	stopChan       chan struct{}
}

// NewManager creates a Manager and the connection described by conf
func NewManager(conf *tomlconf.Config, logger *log.Logger) (*Manager, error) {
	b, err := newConnection(conf, logger)
	if err != nil {
		return nil, err
	}
	return newManager(conf, logger, b, nil)
}

func newManager(conf *tomlconf.Config, logger *log.Logger, b interfaces.Bot, connector jenkins.Connector) (*Manager, error) {
	var err error
	m := &Manager{
		rootConf:       conf,
		bot:            b,
		Logger:         logger.Clone().SetPrefix("BOT"),
		reconnectDelay: defaultReconnectDelay,
		stopChan:       make(chan struct{}),
	}

	m.Cmd = command.NewManager(logger.Clone().SetPrefix("CMD"), b, b.StaticCommandPrefixes()...)
	m.Jenkins, err = jenkins.New(logger.Clone().SetPrefix("JENKINS"), &conf.Jenkins, connector)
	if err != nil {
		return nil, fmt.Errorf("could not create jenkins plugin: %w", err)
	}

	if err := m.Jenkins.Register(m.Cmd); err != nil {
		return nil, fmt.Errorf("could not register jenkins command: %w", err)
	}

	m.loadAdmins()
	m.setupHooks()
	if err := m.setupCommands(); err != nil {
		return nil, err
	}

	return m, nil
}

func newConnection(conf *tomlconf.Config, logger *log.Logger) (interfaces.Bot, error) {
	switch strings.ToLower(conf.Connection.Type) {
	case "irc":
		i, err := irc.New(&conf.Connection, logger.Clone().SetPrefix("IRC"))
		if err != nil {
			return nil, fmt.Errorf("could not create IRC connection: %w", err)
		}
		return i, nil
	case "null":
		return nullconn.New(logger.Clone().SetPrefix("NULL")), nil
	default:
		return nil, fmt.Errorf("unknown connection type %q", conf.Connection.Type)
	}
}

func (m *Manager) setupHooks() {
	m.bot.HookMessage(func(source, channel, message string, _ bool) {
		m.Cmd.ParseLine(message, false, ircutils.ParseUserhost(source), channel)
	})

	m.bot.HookPrivateMessage(func(source, channel, message string) {
		m.Cmd.ParseLine(message, false, ircutils.ParseUserhost(source), channel)
	})

	m.bot.HookKick(m.onKick)
}

func (m *Manager) onKick(source, channel, target, message string) {
	if !strings.EqualFold(target, m.bot.Nick()) {
		return
	}

	m.Infof("kicked from %s by %s (%s), rejoining", channel, m.bot.HumanReadableSource(source), message)
	m.bot.JoinChannel(channel)
}

// loadAdmins replaces the admins on the command manager with those configured on the connection
func (m *Manager) loadAdmins() {
	m.Cmd.ClearAdmins()
	for mask, level := range m.bot.AdminMasks() {
		if err := m.Cmd.AddAdmin(mask, level); err != nil {
			m.Warnf("could not add admin %q: %s", mask, err)
		}
	}
}

// Conf returns the config currently in use
func (m *Manager) Conf() *tomlconf.Config {
	m.confMutex.RLock()
	defer m.confMutex.RUnlock()
	return m.rootConf
}

// Bot returns the connection the Manager runs
func (m *Manager) Bot() interfaces.Bot { return m.bot }

// Run runs the connection, reconnecting when it drops, until Stop is called
func (m *Manager) Run() error {
	for !m.stopping.Get() {
		err := m.bot.Run()
		if m.stopping.Get() {
			break
		}

		if err != nil {
			m.Warnf("error occurred while running bot %s: %s", m.bot, err)
		}

		m.Infof("disconnected. Reconnecting in %s", m.reconnectDelay)
		select {
		case <-time.After(m.reconnectDelay):
		case <-m.stopChan:
		}
	}
	return nil
}

// Stop disconnects the connection with the given message and stops all build watches. Run returns once the
// connection has closed
func (m *Manager) Stop(msg string) {
	m.stopOnce.Do(func() {
		m.Infof("stopping: %s", msg)
		m.stopping.Set(true)
		close(m.stopChan)
		m.Jenkins.Stop()
		m.bot.Disconnect(msg)
	})
}

// Done returns a channel that is closed when Stop is called
func (m *Manager) Done() <-chan struct{} { return m.stopChan }

// ParseConsoleLine runs a line typed at the terminal as a command, with full access
func (m *Manager) ParseConsoleLine(line string) {
	m.Cmd.ParseLine(line, true, consoleSource, "")
}

// Reload rereads the config file the Manager was started with and applies it
func (m *Manager) Reload() error {
	newConf, err := tomlconf.GetConfig(m.Conf().OriginalPath)
	if err != nil {
		return err
	}
	return m.reload(newConf)
}

func (m *Manager) reload(conf *tomlconf.Config) error {
	if old := m.Conf(); !strings.EqualFold(old.Connection.Type, conf.Connection.Type) {
		return fmt.Errorf(
			"cannot change connection type from %q to %q without a restart", old.Connection.Type, conf.Connection.Type,
		)
	}

	if err := m.Jenkins.CheckConfig(&conf.Jenkins); err != nil {
		return fmt.Errorf("invalid jenkins config: %w", err)
	}

	if err := m.bot.Reload(&conf.Connection); err != nil {
		return fmt.Errorf("could not reload connection: %w", err)
	}

	if err := m.Jenkins.UpdateConfig(&conf.Jenkins); err != nil {
		return fmt.Errorf("could not reload jenkins config: %w", err)
	}

	m.Cmd.SetPrefixes(m.bot.StaticCommandPrefixes()...)
	m.loadAdmins()

	m.confMutex.Lock()
	m.rootConf = conf
	m.confMutex.Unlock()
	return nil
}

// Status returns the status lines of the connection and the jenkins plugin
func (m *Manager) Status() string {
	return fmt.Sprintf("%s %s", m.bot.Status(), m.Jenkins.Status())
}

func (m *Manager) String() string {
	return fmt.Sprintf("bot.Manager at %p running %s", m, m.bot)
}

// Error logs the given error and sends it to the admin channels of the connection
func (m *Manager) Error(err error) {
	m.bot.SendAdminMessage("bot.Manager: " + err.Error())
	m.Logger.Warn(err)
}
