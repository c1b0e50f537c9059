// Package command implements a prefix based chat command system with mask based permissions
package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goshuirc/irc-go/ircutils"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/interfaces"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

const noAdmin = 0

// NewManager creates a Manager that sends its responses with the given messenger
func NewManager(logger *log.Logger, messenger interfaces.Messager, prefixes ...string) *Manager {
	m := &Manager{Logger: logger, messenger: messenger, commands: make(map[string]Command), commandPrefixes: prefixes}
	_ = m.AddCommand("help", noAdmin, m.helpImpl, "prints command help")
	return m
}

// Manager holds a set of commands and the admins allowed to run them, and dispatches lines to them
type Manager struct {
	adminMutex      sync.RWMutex
	admins          []Admin
	cmdMutex        sync.RWMutex
	commands        map[string]Command
	prefixMutex     sync.RWMutex
	commandPrefixes []string
	Logger          *log.Logger
	messenger       interfaces.Messager
}

func (m *Manager) helpImpl(data *Data) {
	var toSend string
	if len(data.Args) == 0 {
		toSend = fmt.Sprintf("Available commands are %s", strings.Join(m.CommandNames(), ", "))
	} else {
		cmd := m.getCommandByName(data.Args[0])
		if cmd == nil {
			data.ReturnNotice(fmt.Sprintf("unknown command %q", data.Args[0]))
			return
		}
		toSend = fmt.Sprintf("%s: %s", data.Args[0], cmd.Help())
	}
	data.ReturnNotice(toSend)
}

// CommandNames returns the sorted names of all commands on the Manager, aliases included
func (m *Manager) CommandNames() []string {
	m.cmdMutex.RLock()
	out := make([]string, 0, len(m.commands))
	for name := range m.commands {
		out = append(out, name)
	}
	m.cmdMutex.RUnlock()
	sort.Strings(out)
	return out
}

// SetPrefixes replaces all command prefixes on the Manager
func (m *Manager) SetPrefixes(prefixes ...string) {
	m.prefixMutex.Lock()
	m.commandPrefixes = append([]string(nil), prefixes...)
	m.prefixMutex.Unlock()
}

// AddCommand adds a callback based command to the Manager
func (m *Manager) AddCommand(name string, requiresAdmin int, callback Callback, help string) error {
	return m.Register(&SingleCommand{
		adminRequired: requiresAdmin,
		callback:      callback,
		help:          help,
		name:          strings.ToLower(name),
	})
}

// Register adds the given Command to the Manager under its name
func (m *Manager) Register(cmd Command) error {
	if err := validName(cmd.Name()); err != nil {
		return err
	}

	name := strings.ToLower(cmd.Name())
	m.cmdMutex.Lock()
	defer m.cmdMutex.Unlock()
	if _, exists := m.commands[name]; exists {
		return fmt.Errorf("command %q already exists", name)
	}

	m.Logger.Debugf("adding command %s: %v", name, cmd)
	m.commands[name] = cmd
	return nil
}

// AddAlias makes the existing command named target available under the name aliasName
func (m *Manager) AddAlias(target, aliasName string) error {
	cmd := m.getCommandByName(target)
	if cmd == nil {
		return fmt.Errorf("cannot alias %q to %q: command does not exist", aliasName, target)
	}
	return m.Register(&alias{name: strings.ToLower(aliasName), target: cmd})
}

func (m *Manager) getCommandByName(name string) Command {
	m.cmdMutex.RLock()
	defer m.cmdMutex.RUnlock()
	if c, ok := m.commands[strings.ToLower(name)]; ok {
		return c
	}
	return nil
}

// AddAdmin adds an admin mask with the given level to the Manager
func (m *Manager) AddAdmin(mask string, level int) error {
	if level <= 0 {
		return fmt.Errorf("admin level cannot be below 1 (0 is no access)")
	}
	m.adminMutex.Lock()
	defer m.adminMutex.Unlock()
	for _, v := range m.admins {
		if v.Mask == mask {
			return fmt.Errorf("admin with mask %q already exists", mask)
		}
	}
	m.admins = append(m.admins, Admin{level, mask})
	return nil
}

// ClearAdmins removes all admins added with AddAdmin
func (m *Manager) ClearAdmins() {
	m.adminMutex.Lock()
	m.admins = nil
	m.adminMutex.Unlock()
}

// AdminLevel returns the highest admin level the given mask has
func (m *Manager) AdminLevel(mask string) int {
	max := 0
	m.adminMutex.RLock()
	for _, admin := range m.admins {
		if admin.MatchesMask(mask) && admin.Level > max {
			max = admin.Level
		}
	}
	m.adminMutex.RUnlock()
	return max
}

const notAllowed = "You are not permitted to use this command"

// CheckAdmin checks whether the source of the given Data has at least requiredLevel access, notifying them if not
func (m *Manager) CheckAdmin(data *Data, requiredLevel int) bool {
	if data.FromTerminal || requiredLevel <= noAdmin {
		return true
	}
	if m.AdminLevel(data.SourceMask()) >= requiredLevel {
		return true
	}
	m.messenger.SendNotice(data.Source.Nick, notAllowed)
	return false
}

func (m *Manager) stripPrefix(line string) (string, bool) {
	m.prefixMutex.RLock()
	defer m.prefixMutex.RUnlock()
	for _, pfx := range m.commandPrefixes {
		if pfx != "" && len(line) >= len(pfx) && strings.EqualFold(line[:len(pfx)], pfx) {
			return line[len(pfx):], true
		}
	}
	return line, false
}

// ParseLine checks the given line for a command prefix and fires the command it names, if any. Lines from the
// terminal need no prefix
func (m *Manager) ParseLine(line string, fromTerminal bool, source ircutils.UserHost, target string) {
	if !fromTerminal {
		var ok bool
		if line, ok = m.stripPrefix(line); !ok {
			return
		}
	}

	lineSplit := util.CleanSplitOnSpace(line)
	if len(lineSplit) == 0 {
		return
	}

	cmdName := lineSplit[0]
	cmd := m.getCommandByName(cmdName)
	if cmd == nil {
		if fromTerminal {
			m.Logger.Infof("unknown command %q", cmdName)
		}
		return
	}

	m.Logger.Debugf("firing command %q (original line %q)", cmdName, line)
	data := &Data{
		FromTerminal: fromTerminal,
		Args:         lineSplit[1:],
		OriginalArgs: strings.TrimSpace(strings.TrimLeft(line, " ")[len(cmdName):]),
		Source:       source,
		Target:       target,
		Manager:      m,
	}
	m.fire(cmd, data)
}

func (m *Manager) fire(cmd Command, data *Data) {
	defer func() {
		if err := recover(); err != nil {
			m.Logger.Warnf("recovered a panic from command %q: %v", cmd.Name(), err)
			data.ReturnNotice(fmt.Sprintf("internal error while running %s", cmd.Name()))
		}
	}()
	cmd.Fire(data)
}

func (m *Manager) String() string {
	var admins []string
	m.adminMutex.RLock()
	for _, v := range m.admins {
		admins = append(admins, fmt.Sprintf("%s: %d", v.Mask, v.Level))
	}
	m.adminMutex.RUnlock()
	return fmt.Sprintf(
		"command.Manager containing commands: %s. and admins: %s",
		strings.Join(m.CommandNames(), ", "),
		strings.Join(admins, ", "),
	)
}
