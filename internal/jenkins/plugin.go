package jenkins

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/anmitsu/go-shlex"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/command"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/config/tomlconf"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
)

// Command names the plugin registers
const (
	CommandName  = "jenkins"
	CommandAlias = "ci"
)

type subCommand struct {
	name    string
	minArgs int
	admin   bool
	offline bool // runs without a connection to Jenkins
	help    []string
	handler handlerFunc
}

// Plugin is the jenkins chat command
type Plugin struct {
	log       *log.Logger
	connector Connector
	watcher   *Watcher

	confMutex sync.RWMutex
	conf      *tomlconf.Jenkins
	resolver  *Resolver

	subCommands map[string]*subCommand
}

// New creates a Plugin. A nil connector uses a GoJenkinsConnector
func New(logger *log.Logger, conf *tomlconf.Jenkins, connector Connector) (*Plugin, error) {
	p := &Plugin{
		log:       logger,
		connector: connector,
		watcher:   NewWatcher(logger.Clone().SetPrefix("WATCH"), watchConfig(conf)),
	}

	if p.connector == nil {
		p.connector = NewGoJenkinsConnector(logger, conf.RequestTimeout)
	}

	p.setupSubCommands()
	if err := p.UpdateConfig(conf); err != nil {
		return nil, err
	}
	return p, nil
}

func watchConfig(conf *tomlconf.Jenkins) WatchConfig {
	return WatchConfig{
		StartDelay:     conf.StartDelay,
		PollInterval:   conf.PollInterval,
		Timeout:        conf.WatchTimeout,
		RequestTimeout: conf.RequestTimeout,
		MaxErrors:      conf.MaxPollErrors,
	}
}

func (p *Plugin) setupSubCommands() {
	subs := []*subCommand{
		{name: "status", minArgs: 1, handler: handleStatus, help: []string{
			"status <job> [job...]: show the state and last build of the given jobs",
		}},
		{name: "jobs", handler: handleJobs, help: []string{
			"jobs [glob]: list jobs and their state, optionally only those matching glob (* and ? wildcards)",
		}},
		{name: "health", minArgs: 1, handler: handleHealth, help: []string{
			"health <job>: show the health report of a job",
		}},
		{name: "builds", minArgs: 1, handler: handleBuilds, help: []string{
			"builds <job> [selector]: show links to the last, last successful and last failed builds of a job",
			"selector is one of: " + strings.Join(selectorNames(), ", "),
		}},
		{name: "build", minArgs: 1, admin: true, handler: handleBuild, help: []string{
			"build <job> [key=value...]: trigger a build of a job with the given parameters",
			"the result is reported here when the build finishes",
		}},
		{name: "enable", minArgs: 1, admin: true, handler: handleEnable, help: []string{
			"enable <job>: enable a disabled job",
		}},
		{name: "disable", minArgs: 1, admin: true, handler: handleDisable, help: []string{
			"disable <job>: disable a job",
		}},
		{name: "version", handler: handleVersion, help: []string{
			"version: show the version of jenkins",
		}},
		{name: "help", offline: true, help: []string{
			"help [sub command]: list sub commands, or show help for one",
		}},
	}

	p.subCommands = make(map[string]*subCommand, len(subs))
	for _, s := range subs {
		p.subCommands[s.name] = s
	}
}

// SubCommandNames returns the sorted names of all sub commands
func (p *Plugin) SubCommandNames() []string {
	out := make([]string, 0, len(p.subCommands))
	for name := range p.subCommands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CheckConfig returns an error if conf cannot be used by the plugin
func (p *Plugin) CheckConfig(conf *tomlconf.Jenkins) error {
	for _, name := range conf.InstanceNames() {
		if _, exists := p.subCommands[name]; exists {
			return fmt.Errorf("jenkins instance %q has the same name as a sub command", name)
		}
	}
	return nil
}

// UpdateConfig replaces the config in use. Watches already running keep their settings
func (p *Plugin) UpdateConfig(conf *tomlconf.Jenkins) error {
	if err := p.CheckConfig(conf); err != nil {
		return err
	}

	p.confMutex.Lock()
	p.conf = conf
	p.resolver = NewResolver(conf)
	p.confMutex.Unlock()

	p.watcher.SetConfig(watchConfig(conf))
	if c, ok := p.connector.(*GoJenkinsConnector); ok {
		c.SetTimeout(conf.RequestTimeout)
	}
	return nil
}

func (p *Plugin) current() (*tomlconf.Jenkins, *Resolver) {
	p.confMutex.RLock()
	defer p.confMutex.RUnlock()
	return p.conf, p.resolver
}

// Register adds the jenkins command and its alias to the given Manager
func (p *Plugin) Register(m *command.Manager) error {
	if err := m.AddCommand(CommandName, 0, p.onCommand, "control jenkins. see "+CommandName+" help"); err != nil {
		return err
	}
	return m.AddAlias(CommandName, CommandAlias)
}

// Stop stops all build watches
func (p *Plugin) Stop() {
	p.watcher.Stop()
}

// ActiveWatches returns the number of builds currently being followed
func (p *Plugin) ActiveWatches() int { return p.watcher.Active() }

// Status returns a short status line for the plugin
func (p *Plugin) Status() string {
	conf, _ := p.current()
	return fmt.Sprintf("jenkins: %d instances configured, %d build watches active", len(conf.Instances), p.ActiveWatches())
}

func (p *Plugin) onCommand(data *command.Data) {
	args, err := shlex.Split(data.OriginalArgs, true)
	if err != nil {
		data.ReturnNotice("could not parse arguments: " + err.Error())
		return
	}

	for _, line := range p.dispatch(data, args) {
		data.ReturnMessage(line)
	}
}

func (p *Plugin) usage() []string {
	return []string{
		fmt.Sprintf("usage: %s [instance] <sub command> [args...]", CommandName),
		"sub commands: " + strings.Join(p.SubCommandNames(), ", "),
	}
}

func (p *Plugin) notACommand(kw string) string {
	return fmt.Sprintf("%s is not a command, valid ones are: %s", kw, strings.Join(p.SubCommandNames(), ", "))
}

func (p *Plugin) help(args []string) []string {
	if len(args) == 0 {
		return p.usage()
	}
	sub, ok := p.subCommands[strings.ToLower(args[0])]
	if !ok {
		return []string{p.notACommand(args[0])}
	}
	return sub.help
}

// dispatch runs the sub command named in args and returns the lines to send back
func (p *Plugin) dispatch(data *command.Data, args []string) (out []string) {
	conf, resolver := p.current()
	if len(args) == 0 {
		return p.usage()
	}

	instance := ""
	if _, isSub := p.subCommands[strings.ToLower(args[0])]; !isSub && resolver.HasInstance(args[0]) {
		instance, args = args[0], args[1:]
		if len(args) == 0 {
			return p.usage()
		}
	}

	kw := strings.ToLower(args[0])
	sub, ok := p.subCommands[kw]
	if !ok {
		return []string{p.notACommand(kw)}
	}

	args = args[1:]
	if len(args) < sub.minArgs {
		return []string{"need more arguments for sub command: " + kw}
	}

	if sub.admin && !data.CheckPerms(conf.AdminLevel) {
		return nil
	}

	if sub.offline {
		return p.help(args)
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Warnf("recovered a panic while running %q: %v", kw, r)
			out = append(out, "internal error while running "+kw)
		}
	}()

	creds, err := resolver.Resolve(data.Source.Nick, instance)
	if err != nil {
		return []string{err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.RequestTimeout)
	defer cancel()

	p.log.Debugf("running %q for %s as %s", kw, data.Source.Nick, creds)
	server, err := p.connector.Connect(ctx, creds)
	if err != nil {
		p.log.Warnf("could not connect to jenkins for %q: %s", kw, err)
		return []string{err.Error()}
	}

	lines, err := sub.handler(ctx, &invocation{
		server:   server,
		creds:    creds,
		args:     args,
		maxLines: conf.MaxLines,
		reply:    data.Replier(),
		watcher:  p.watcher,
	})
	if err != nil {
		p.log.Debugf("%q failed: %s", kw, err)
		lines = append(lines, err.Error())
	}
	return lines
}
