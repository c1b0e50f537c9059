package jenkins

import (
	"errors"
	"fmt"
	"strings"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/config/tomlconf"
)

// Credentials are everything needed to talk to a Jenkins server as a given user. An empty Username means anonymous
// access
type Credentials struct {
	Instance   string
	URL        string
	Username   string
	Password   string
	BuildToken string
}

// Anonymous returns whether or not the credentials carry no user
func (c Credentials) Anonymous() bool { return c.Username == "" }

func (c Credentials) String() string {
	user := c.Username
	if c.Anonymous() {
		user = "<anonymous>"
	}
	if c.Instance == "" {
		return fmt.Sprintf("%s at %s", user, c.URL)
	}
	return fmt.Sprintf("%s at %s (%s)", user, c.URL, c.Instance)
}

var errNoURL = errors.New("no jenkins url is configured, cannot continue")

// Resolver picks the Jenkins server and credentials to use for a nick
type Resolver struct {
	conf *tomlconf.Jenkins
}

// NewResolver creates a Resolver over the given config. The config must not be modified afterwards
func NewResolver(conf *tomlconf.Jenkins) *Resolver {
	return &Resolver{conf: conf}
}

// HasInstance returns whether or not name is a configured instance
func (r *Resolver) HasInstance(name string) bool {
	_, ok := r.conf.Instances[strings.ToLower(name)]
	return ok
}

// pick returns the per-nick value if set, otherwise the fallback
func pick(perNick, fallback string) string {
	if perNick != "" {
		return perNick
	}
	return fallback
}

// Resolve returns the credentials nick should use for the named instance. An empty instance selects the default
// instance if one is configured, and the top level server otherwise
func (r *Resolver) Resolve(nick, instance string) (Credentials, error) {
	nick = strings.ToLower(nick)
	instance = strings.ToLower(instance)
	if instance == "" {
		instance = r.conf.DefaultInstance
	}

	if instance == "" {
		if r.conf.URL == "" {
			return Credentials{}, errNoURL
		}
		perNick := r.conf.Credentials[nick]
		return Credentials{
			URL:        r.conf.URL,
			Username:   pick(perNick.Username, r.conf.Username),
			Password:   pick(perNick.Token, r.conf.Password),
			BuildToken: r.conf.BuildToken,
		}, nil
	}

	inst, ok := r.conf.Instances[instance]
	if !ok {
		return Credentials{}, fmt.Errorf(
			"unknown jenkins instance %q, valid ones are: %s", instance, strings.Join(r.conf.InstanceNames(), ", "),
		)
	}

	if inst.URL == "" {
		return Credentials{}, fmt.Errorf("no url is configured for jenkins instance %q", instance)
	}

	perNick := inst.Credentials[nick]
	return Credentials{
		Instance:   instance,
		URL:        inst.URL,
		Username:   pick(perNick.Username, inst.Username),
		Password:   pick(perNick.Token, inst.Password),
		BuildToken: inst.BuildToken,
	}, nil
}
