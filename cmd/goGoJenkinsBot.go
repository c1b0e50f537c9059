package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/bot"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/config/tomlconf"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/version"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
)

var (
	configPath = pflag.StringP("config", "c", "config.toml", "path to the config file")
	debug      = pflag.BoolP("debug", "d", false, "log at the DEBUG level, overriding the config")
	noConsole  = pflag.Bool("no-console", false, "do not start the interactive console")
)

func main() {
	pflag.Parse()

	var (
		out io.Writer = os.Stdout
		rl  *readline.Instance
	)

	if !*noConsole && term.IsTerminal(int(os.Stdin.Fd())) {
		var err error
		if rl, err = readline.New("> "); err != nil {
			fmt.Fprintf(os.Stderr, "could not start console: %s\n", err)
			os.Exit(1)
		}
		out = rl
	}

	l := log.New(log.FTimestamp, out, "MAIN", log.INFO)
	l.Infof("goGoJenkinsBot version %s starting", version.Version)

	conf, err := tomlconf.GetConfig(*configPath)
	if err != nil {
		l.Critf("could not read config file: %s", err)
	}

	level, _ := conf.Logging.MinLevel()
	if *debug {
		level = log.DEBUG
	}
	l.SetMinLevel(level)
	if conf.Logging.ShowFile {
		l.SetFlags(l.Flags() | log.FShowFile)
	}

	m, err := bot.NewManager(conf, l)
	if err != nil {
		l.Critf("could not create bot: %s", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigChan)

	var g errgroup.Group
	g.Go(m.Run)
	g.Go(func() error {
		select {
		case sig := <-sigChan:
			m.Stop(fmt.Sprintf("Caught Signal: %s", sig))
		case <-m.Done():
		}
		return nil
	})

	if rl != nil {
		// Readline blocks until the instance is closed, so it stays outside the group
		go runConsole(m, rl)
	}

	if err := g.Wait(); err != nil {
		l.Warnf("bot exited with an error: %s", err)
	}

	if rl != nil {
		_ = rl.Close()
	}
	l.Info("goodbye")
}

func runConsole(m *bot.Manager, rl *readline.Instance) {
	for {
		line, err := rl.Readline()
		if err != nil {
			m.Stop("console closed")
			return
		}

		if line = strings.TrimSpace(line); line != "" {
			m.ParseConsoleLine(line)
		}
	}
}
