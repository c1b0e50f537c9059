package tomlconf

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"
)

// Defaults for the Jenkins config
const (
	DefaultMaxLines       = 10
	DefaultRequestTimeout = 30 * time.Second
	DefaultStartDelay     = 5 * time.Second
	DefaultPollInterval   = 15 * time.Second
	DefaultWatchTimeout   = 2 * time.Hour
	DefaultMaxPollErrors  = 5
)

// ReservedInstanceNames are the jenkins sub commands. An instance with one of these names could never be addressed
var ReservedInstanceNames = []string{"build", "builds", "disable", "enable", "health", "help", "jobs", "status", "version"}

// NickCredentials holds the credentials a given nick uses against a Jenkins server
type NickCredentials struct {
	Username string `toml:"username" yaml:"username"`
	Token    string `toml:"token" yaml:"token"`
}

// Instance is a named Jenkins server. Instances do not inherit any credentials from the top level Jenkins config
type Instance struct {
	URL         string                     `toml:"url"`
	Username    string                     `toml:"username"`
	Password    string                     `toml:"password"`
	BuildToken  string                     `toml:"build_token"`
	Credentials map[string]NickCredentials `toml:"credentials"`
}

// Jenkins holds the config for talking to Jenkins
type Jenkins struct {
	URL             string `toml:"url"`
	Username        string `toml:"username"`
	Password        string `toml:"password"`
	BuildToken      string `toml:"build_token"`
	DefaultInstance string `toml:"default_instance"`
	CredentialsFile string `toml:"credentials_file"`

	AdminLevel     int           `toml:"admin_level"`
	MaxLines       int           `toml:"max_lines"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	StartDelay     time.Duration `toml:"start_delay"`
	PollInterval   time.Duration `toml:"poll_interval"`
	WatchTimeout   time.Duration `toml:"watch_timeout"`
	MaxPollErrors  int           `toml:"max_poll_errors"`

	Credentials map[string]NickCredentials `toml:"credentials"`
	Instances   map[string]*Instance       `toml:"instances"`
}

// InstanceNames returns the sorted names of all configured instances
func (j *Jenkins) InstanceNames() []string {
	out := make([]string, 0, len(j.Instances))
	for name := range j.Instances {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lowerKeys(in map[string]NickCredentials) map[string]NickCredentials {
	out := make(map[string]NickCredentials, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

// normalise lower cases nicks and instance names, as they are looked up case insensitively
func (j *Jenkins) normalise() {
	j.Credentials = lowerKeys(j.Credentials)
	j.DefaultInstance = strings.ToLower(j.DefaultInstance)

	instances := make(map[string]*Instance, len(j.Instances))
	for name, inst := range j.Instances {
		if inst == nil {
			inst = new(Instance)
		}
		inst.Credentials = lowerKeys(inst.Credentials)
		instances[strings.ToLower(name)] = inst
	}
	j.Instances = instances
}

func (j *Jenkins) setDefaults() {
	if j.MaxLines == 0 {
		j.MaxLines = DefaultMaxLines
	}
	if j.RequestTimeout == 0 {
		j.RequestTimeout = DefaultRequestTimeout
	}
	if j.StartDelay == 0 {
		j.StartDelay = DefaultStartDelay
	}
	if j.PollInterval == 0 {
		j.PollInterval = DefaultPollInterval
	}
	if j.WatchTimeout == 0 {
		j.WatchTimeout = DefaultWatchTimeout
	}
	if j.MaxPollErrors == 0 {
		j.MaxPollErrors = DefaultMaxPollErrors
	}
}

func checkURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	return nil
}

func (j *Jenkins) validate() error {
	var errs []error
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"request_timeout", j.RequestTimeout},
		{"start_delay", j.StartDelay},
		{"poll_interval", j.PollInterval},
		{"watch_timeout", j.WatchTimeout},
	}
	for _, d := range durations {
		if d.d < 0 {
			errs = append(errs, fmt.Errorf("jenkins.%s must be positive, got %s", d.name, d.d))
		}
	}

	if j.MaxLines < 0 {
		errs = append(errs, fmt.Errorf("jenkins.max_lines must be positive, got %d", j.MaxLines))
	}
	if j.MaxPollErrors < 0 {
		errs = append(errs, fmt.Errorf("jenkins.max_poll_errors must be positive, got %d", j.MaxPollErrors))
	}

	if err := checkURL(j.URL); err != nil {
		errs = append(errs, fmt.Errorf("jenkins.url: %w", err))
	}

	for _, name := range j.InstanceNames() {
		if strings.ContainsAny(name, " \t") {
			errs = append(errs, fmt.Errorf("jenkins instance name %q cannot contain spaces", name))
		}
		if slices.Contains(ReservedInstanceNames, name) {
			errs = append(errs, fmt.Errorf("jenkins instance %q has the same name as a sub command", name))
		}
		if err := checkURL(j.Instances[name].URL); err != nil {
			errs = append(errs, fmt.Errorf("jenkins.instances.%s.url: %w", name, err))
		}
	}

	if j.DefaultInstance != "" {
		if _, ok := j.Instances[j.DefaultInstance]; !ok {
			errs = append(errs, fmt.Errorf("jenkins.default_instance %q is not a configured instance", j.DefaultInstance))
		}
	}

	return errors.Join(errs...)
}
