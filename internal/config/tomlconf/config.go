// Package tomlconf loads and validates the bot's TOML configuration
package tomlconf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
)

// Config is the main config struct
type Config struct {
	OriginalPath string       `toml:"-"`
	Logging      Logging      `toml:"logging"`
	Connection   ConfigHolder `toml:"connection"`
	Jenkins      Jenkins      `toml:"jenkins"`
}

// Logging configures the bot's logger
type Logging struct {
	Level    string `toml:"level"`
	ShowFile bool   `toml:"show_file"`
}

// MinLevel returns the configured log level, defaulting to INFO
func (l *Logging) MinLevel() (int, error) {
	if l.Level == "" {
		return log.INFO, nil
	}
	return log.ParseLevel(l.Level)
}

// GetConfig fetches the config located at the given path
func GetConfig(path string) (*Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read or parse config file: %w", err)
	}

	out, err := makeConfig(tree)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	out.OriginalPath = path

	if err := out.Jenkins.loadCredentialsFile(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("unable to load credentials: %w", err)
	}

	if err := validateConfig(out); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return out, nil
}

// ParseConfig parses the config held in the given string. Relative paths in it are resolved against the working
// directory
func ParseConfig(data string) (*Config, error) {
	tree, err := toml.Load(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}

	out, err := makeConfig(tree)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := out.Jenkins.loadCredentialsFile("."); err != nil {
		return nil, fmt.Errorf("unable to load credentials: %w", err)
	}

	if err := validateConfig(out); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return out, nil
}

func makeConfig(tree *toml.Tree) (*Config, error) {
	out := new(Config)
	if err := decode(tree.ToMap(), out); err != nil {
		return nil, err
	}

	out.Jenkins.normalise()
	out.Jenkins.setDefaults()
	return out, nil
}

func validateConfig(inConf *Config) error {
	if _, err := inConf.Logging.MinLevel(); err != nil {
		return err
	}

	switch strings.ToLower(inConf.Connection.Type) {
	case "null":
	case "irc":
		if inConf.Connection.RealConf == nil {
			return fmt.Errorf("invalid config for connection type %q, missing config", inConf.Connection.Type)
		}

		for _, required := range []string{"host", "nick"} {
			if s, _ := inConf.Connection.RealConf[required].(string); s == "" {
				return fmt.Errorf("invalid config for connection type %q, missing %s", inConf.Connection.Type, required)
			}
		}
	default:
		return fmt.Errorf("invalid connection type %q, valid ones are: irc, null", inConf.Connection.Type)
	}

	return inConf.Jenkins.validate()
}
