package bot

import (
	"errors"
	"strings"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/command"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util/systemstats"
)

const ownerLevel = 3

func (m *Manager) setupCommands() error {
	const (
		statusHelp = "shows the status of the bot, the system it runs on, and any build watches"
		stopHelp   = "disconnects the bot and shuts it down"
		reloadHelp = "reloads the config file from disk and applies it to the running bot. " +
			"Changing the connection type requires a restart"
		rawHelp = "sends the arguments as a raw line to the chat server"
	)

	var errs []error
	errs = append(errs, m.Cmd.AddCommand("status", 0, m.statusCmd, statusHelp))
	errs = append(errs, m.Cmd.AddCommand("stop", ownerLevel, m.stopCmd, stopHelp))
	errs = append(errs, m.Cmd.AddCommand("reload", ownerLevel, m.reloadCmd, reloadHelp))
	errs = append(errs, m.Cmd.AddCommand("raw", ownerLevel, m.rawCmd, rawHelp))

	if err := errors.Join(errs...); err != nil {
		m.Warnf("init of static commands errored. THIS IS A BUG! REPORT IT!: %s", err)
		return err
	}

	return nil
}

func (m *Manager) statusCmd(data *command.Data) {
	data.ReturnMessage(systemstats.GetStats())
	data.ReturnMessage(m.Status())
}

func (m *Manager) stopCmd(data *command.Data) {
	msg := "Stop requested"
	if len(data.Args) > 0 {
		msg = strings.Join(data.Args, " ")
	}

	m.Stop(msg)
}

func (m *Manager) reloadCmd(data *command.Data) {
	data.ReturnMessage("reloading config")

	if err := m.Reload(); err != nil {
		m.Error(err)
		data.ReturnMessage("reload failed")
		return
	}

	data.ReturnMessage("reload complete")
}

func (m *Manager) rawCmd(data *command.Data) {
	if len(data.Args) == 0 {
		data.ReturnNotice("raw requires an argument")
		return
	}

	m.bot.SendRaw(data.OriginalArgs)
}
