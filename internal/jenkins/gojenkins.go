package jenkins

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"sync"
	"time"

	"github.com/anttikivi/semver"
	"github.com/bndr/gojenkins"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/mutexTypes"
)

// GoJenkinsConnector connects to Jenkins servers over their REST API
type GoJenkinsConnector struct {
	log     *log.Logger
	timeout mutexTypes.Duration
}

// NewGoJenkinsConnector creates a GoJenkinsConnector whose HTTP requests time out after timeout
func NewGoJenkinsConnector(logger *log.Logger, timeout time.Duration) *GoJenkinsConnector {
	out := &GoJenkinsConnector{log: logger}
	out.timeout.Set(timeout)
	return out
}

// SetTimeout changes the HTTP timeout used for new connections
func (g *GoJenkinsConnector) SetTimeout(timeout time.Duration) { g.timeout.Set(timeout) }

// Connect creates a client for the server in creds, and checks that it works with a single request
func (g *GoJenkinsConnector) Connect(ctx context.Context, creds Credentials) (Server, error) {
	client := &http.Client{Timeout: g.timeout.Get()}

	var j *gojenkins.Jenkins
	if creds.Anonymous() {
		j = gojenkins.CreateJenkins(client, creds.URL)
	} else {
		j = gojenkins.CreateJenkins(client, creds.URL, creds.Username, creds.Password)
	}

	if err := g.init(ctx, j); err != nil {
		g.log.Debugf("could not connect as %s: %s", creds, err)
		return nil, fmt.Errorf("could not connect to jenkins at %s: %w", creds.URL, err)
	}

	if _, err := semver.ParseLax(j.Version); err != nil {
		g.log.Warnf("jenkins at %s reported an unparseable version %q: %s", creds.URL, j.Version, err)
	}

	return &goJenkinsServer{j: j, url: creds.URL}, nil
}

// gojenkins replaces its package loggers on every Init
var initMutex sync.Mutex

// levelWriter adapts a log level function to an io.Writer
type levelWriter func(args ...interface{})

func (w levelWriter) Write(p []byte) (int, error) {
	w(string(p))
	return len(p), nil
}

func (g *GoJenkinsConnector) init(ctx context.Context, j *gojenkins.Jenkins) error {
	initMutex.Lock()
	defer initMutex.Unlock()
	_, err := j.Init(ctx)
	gojenkins.Info = stdlog.New(levelWriter(g.log.Debug), "", 0)
	gojenkins.Warning = stdlog.New(levelWriter(g.log.Warn), "", 0)
	gojenkins.Error = stdlog.New(levelWriter(g.log.Warn), "", 0)
	return err
}

type goJenkinsServer struct {
	j   *gojenkins.Jenkins
	url string
}

func (s *goJenkinsServer) Version() string { return s.j.Version }
func (s *goJenkinsServer) URL() string     { return s.url }

// gojenkins reports missing jobs as an error holding only the status code
func isNotFound(err error) bool { return err != nil && err.Error() == "404" }

func (s *goJenkinsServer) getJob(ctx context.Context, name string) (*gojenkins.Job, error) {
	job, err := s.j.GetJob(ctx, name)
	if isNotFound(err) {
		return nil, &JobNotFoundError{Name: name}
	}
	return job, err
}

func buildRef(b gojenkins.JobBuild) *BuildRef {
	if b.Number == 0 && b.URL == "" {
		return nil
	}
	return &BuildRef{Number: b.Number, URL: b.URL}
}

func (s *goJenkinsServer) JobInfo(ctx context.Context, name string) (*JobInfo, error) {
	job, err := s.getJob(ctx, name)
	if err != nil {
		return nil, err
	}

	raw := job.Raw
	out := &JobInfo{
		Name:                raw.Name,
		Color:               raw.Color,
		URL:                 raw.URL,
		NextBuildNumber:     raw.NextBuildNumber,
		LastBuild:           buildRef(raw.LastBuild),
		LastSuccessfulBuild: buildRef(raw.LastSuccessfulBuild),
		LastFailedBuild:     buildRef(raw.LastFailedBuild),
	}
	for _, h := range raw.HealthReport {
		out.Health = append(out.Health, HealthReport{Description: h.Description, Score: h.Score})
	}
	return out, nil
}

func (s *goJenkinsServer) Jobs(ctx context.Context) ([]JobSummary, error) {
	jobs, err := s.j.GetAllJobNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobSummary{Name: j.Name, Color: j.Color, URL: j.Url})
	}
	return out, nil
}

func (s *goJenkinsServer) JobExists(ctx context.Context, name string) (bool, error) {
	_, err := s.getJob(ctx, name)
	switch {
	case IsJobNotFound(err):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (s *goJenkinsServer) BuildJob(ctx context.Context, name string, params map[string]string) error {
	id, err := s.j.BuildJob(ctx, name, params)
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrAlreadyQueued
	}
	return nil
}

func (s *goJenkinsServer) BuildInfo(ctx context.Context, name string, number int64) (*BuildInfo, error) {
	build, err := s.j.GetBuild(ctx, name, number)
	if err != nil {
		return nil, fmt.Errorf("could not get build %s #%d: %w", name, number, err)
	}

	raw := build.Raw
	return &BuildInfo{
		Number:   raw.Number,
		URL:      raw.URL,
		Building: raw.Building,
		Result:   raw.Result,
		Started:  time.UnixMilli(raw.Timestamp),
	}, nil
}

func (s *goJenkinsServer) EnableJob(ctx context.Context, name string) error {
	job, err := s.getJob(ctx, name)
	if err != nil {
		return err
	}
	_, err = job.Enable(ctx)
	return err
}

func (s *goJenkinsServer) DisableJob(ctx context.Context, name string) error {
	job, err := s.getJob(ctx, name)
	if err != nil {
		return err
	}
	_, err = job.Disable(ctx)
	return err
}
