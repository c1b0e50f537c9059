// Package jenkins implements the jenkins chat command, which lets users query and control Jenkins servers
package jenkins

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BuildRef points at a single build of a job
type BuildRef struct {
	Number int64
	URL    string
}

// HealthReport is one entry in a job's health report
type HealthReport struct {
	Description string
	Score       int64
}

// JobSummary is the short form of a job returned when listing all jobs
type JobSummary struct {
	Name  string
	Color string
	URL   string
}

// JobInfo holds the details of a job that the handlers care about. Build references are nil when the job has no
// such build
type JobInfo struct {
	Name            string
	Color           string
	URL             string
	NextBuildNumber int64
	Health          []HealthReport

	LastBuild           *BuildRef
	LastSuccessfulBuild *BuildRef
	LastFailedBuild     *BuildRef
}

// BuildInfo is the state of a single build
type BuildInfo struct {
	Number   int64
	URL      string
	Building bool
	Result   string
	Started  time.Time
}

// Server is a connection to a single Jenkins server
type Server interface {
	JobInfo(ctx context.Context, name string) (*JobInfo, error)
	Jobs(ctx context.Context) ([]JobSummary, error)
	JobExists(ctx context.Context, name string) (bool, error)
	// BuildJob returns ErrAlreadyQueued when the job already has a build waiting, in which case nothing is triggered
	BuildJob(ctx context.Context, name string, params map[string]string) error
	BuildInfo(ctx context.Context, name string, number int64) (*BuildInfo, error)
	EnableJob(ctx context.Context, name string) error
	DisableJob(ctx context.Context, name string) error
	Version() string
	URL() string
}

// Connector creates Servers from resolved credentials
type Connector interface {
	Connect(ctx context.Context, creds Credentials) (Server, error)
}

// ErrAlreadyQueued is returned by Server.BuildJob when the job already has a build in the queue
var ErrAlreadyQueued = errors.New("a build is already queued")

// JobNotFoundError is returned by Server implementations when a job does not exist
type JobNotFoundError struct {
	Name string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("%s does not exist (or could not be found) in Jenkins", e.Name)
}

// IsJobNotFound returns whether or not err is, or wraps, a JobNotFoundError
func IsJobNotFound(err error) bool {
	var nf *JobNotFoundError
	return errors.As(err, &nf)
}
