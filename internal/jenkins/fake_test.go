package jenkins

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type buildResult struct {
	info *BuildInfo
	err  error
}

// fakeServer is an in memory Server
type fakeServer struct {
	mu        sync.Mutex
	jobs      map[string]*JobInfo
	builds    map[string]*BuildInfo
	script    []buildResult // returned in order by BuildInfo when set
	calls     int
	triggered []map[string]string
	enabled   map[string]bool
	listErr   error
	buildErr  error
	panicOn   string
	version   string
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		jobs: map[string]*JobInfo{
			"app": {
				Name:                "app",
				Color:               "blue",
				URL:                 "http://ci/job/app/",
				NextBuildNumber:     13,
				Health:              []HealthReport{{Description: "Build stability: No recent builds failed.", Score: 100}},
				LastBuild:           &BuildRef{Number: 12, URL: "http://ci/job/app/12/"},
				LastSuccessfulBuild: &BuildRef{Number: 12, URL: "http://ci/job/app/12/"},
			},
			"lib": {Name: "lib", Color: "red_anime", URL: "http://ci/job/lib/", NextBuildNumber: 1},
			"my job": {Name: "my job", Color: "disabled", URL: "http://ci/job/my%20job/"},
		},
		builds:  map[string]*BuildInfo{},
		enabled: map[string]bool{},
		version: "2.401.3",
	}
}

func (f *fakeServer) checkPanic(name string) {
	if f.panicOn != "" && name == f.panicOn {
		panic("kaboom")
	}
}

func (f *fakeServer) JobInfo(_ context.Context, name string) (*JobInfo, error) {
	f.checkPanic(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.jobs[name]
	if !ok {
		return nil, &JobNotFoundError{Name: name}
	}
	out := *info
	return &out, nil
}

func (f *fakeServer) Jobs(context.Context) ([]JobSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []JobSummary
	for _, name := range []string{"app", "lib", "my job"} {
		if j, ok := f.jobs[name]; ok {
			out = append(out, JobSummary{Name: j.Name, Color: j.Color, URL: j.URL})
		}
	}
	return out, nil
}

func (f *fakeServer) JobExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[name]
	return ok, nil
}

func (f *fakeServer) BuildJob(_ context.Context, name string, params map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[name]; !ok {
		return &JobNotFoundError{Name: name}
	}
	if f.buildErr != nil {
		return f.buildErr
	}
	f.triggered = append(f.triggered, params)
	return nil
}

func (f *fakeServer) BuildInfo(_ context.Context, name string, number int64) (*BuildInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.script != nil {
		idx := f.calls
		if idx >= len(f.script) {
			idx = len(f.script) - 1
		}
		f.calls++
		return f.script[idx].info, f.script[idx].err
	}

	b, ok := f.builds[fmt.Sprintf("%s#%d", name, number)]
	if !ok {
		return nil, errors.New("404")
	}
	return b, nil
}

func (f *fakeServer) EnableJob(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled[name] = true
	return nil
}

func (f *fakeServer) DisableJob(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled[name] = false
	return nil
}

func (f *fakeServer) Version() string { return f.version }
func (f *fakeServer) URL() string     { return "http://ci/" }

func (f *fakeServer) triggeredBuilds() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.triggered...)
}

type fakeConnector struct {
	mu     sync.Mutex
	server *fakeServer
	err    error
	seen   []Credentials
}

func (c *fakeConnector) Connect(_ context.Context, creds Credentials) (Server, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, creds)
	if c.err != nil {
		return nil, c.err
	}
	return c.server, nil
}

func (c *fakeConnector) connections() []Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Credentials(nil), c.seen...)
}

type mockMessager struct {
	mu       sync.Mutex
	messages [][2]string
	notices  [][2]string
}

func (m *mockMessager) SendMessage(target, message string) {
	m.mu.Lock()
	m.messages = append(m.messages, [2]string{target, message})
	m.mu.Unlock()
}

func (m *mockMessager) SendNotice(target, message string) {
	m.mu.Lock()
	m.notices = append(m.notices, [2]string{target, message})
	m.mu.Unlock()
}

func (m *mockMessager) sent() (messages, notices [][2]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.messages...), append([][2]string(nil), m.notices...)
}

func (m *mockMessager) clear() {
	m.mu.Lock()
	m.messages, m.notices = nil, nil
	m.mu.Unlock()
}
