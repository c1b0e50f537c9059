package jenkins

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

const statusConcurrency = 4

// invocation is a single run of a sub command
type invocation struct {
	server   Server
	creds    Credentials
	args     []string // without the sub command keyword
	maxLines int
	reply    func(string)
	watcher  *Watcher
}

type handlerFunc func(ctx context.Context, inv *invocation) ([]string, error)

// requireJob returns an error if the named job does not exist
func requireJob(ctx context.Context, server Server, name string) error {
	exists, err := server.JobExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return &JobNotFoundError{Name: name}
	}
	return nil
}

func handleStatus(ctx context.Context, inv *invocation) ([]string, error) {
	out := make([]string, len(inv.args))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(statusConcurrency)
	for i, job := range inv.args {
		g.Go(func() error {
			out[i] = jobStatus(ctx, inv.server, job)
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func jobStatus(ctx context.Context, server Server, job string) string {
	info, err := server.JobInfo(ctx, job)
	if err != nil {
		if IsJobNotFound(err) {
			return err.Error()
		}
		return fmt.Sprintf("%s: %s", job, err)
	}

	var started time.Time
	if info.LastBuild != nil {
		if build, err := server.BuildInfo(ctx, job, info.LastBuild.Number); err == nil {
			started = build.Started
		}
	}
	return statusLine(job, info, started)
}

func handleJobs(ctx context.Context, inv *invocation) ([]string, error) {
	jobs, err := inv.server.Jobs(ctx)
	if err != nil {
		return nil, err
	}

	if glob := util.IdxOrEmpty(inv.args, 0); glob != "" {
		re := util.GlobToFoldRegexp(glob)
		filtered := make([]JobSummary, 0, len(jobs))
		for _, j := range jobs {
			if re.MatchString(j.Name) {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}

	if len(jobs) == 0 {
		return []string{"no jobs found"}, nil
	}

	var out []string
	for i, j := range jobs {
		if inv.maxLines > 0 && i >= inv.maxLines {
			out = append(out, fmt.Sprintf("... and %d more", len(jobs)-i))
			break
		}
		out = append(out, fmt.Sprintf("%s (%s)", j.Name, jobState(j.Color)))
	}
	return out, nil
}

func handleHealth(ctx context.Context, inv *invocation) ([]string, error) {
	job := inv.args[0]
	info, err := inv.server.JobInfo(ctx, job)
	if err != nil {
		return nil, err
	}
	if len(info.Health) == 0 {
		return []string{"no health report available for " + job}, nil
	}
	return []string{info.Health[0].Description}, nil
}

const (
	keyLastBuild           = "lastBuild"
	keyLastSuccessfulBuild = "lastSuccessfulBuild"
	keyLastFailedBuild     = "lastFailedBuild"
)

var buildSelectors = map[string]string{
	"last":       keyLastBuild,
	"failed":     keyLastFailedBuild,
	"bad":        keyLastFailedBuild,
	"successful": keyLastSuccessfulBuild,
	"ok":         keyLastSuccessfulBuild,
	"good":       keyLastSuccessfulBuild,
	"pass":       keyLastSuccessfulBuild,
}

func selectorNames() []string {
	out := make([]string, 0, len(buildSelectors))
	for name := range buildSelectors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func buildByKey(info *JobInfo, key string) *BuildRef {
	switch key {
	case keyLastBuild:
		return info.LastBuild
	case keyLastSuccessfulBuild:
		return info.LastSuccessfulBuild
	case keyLastFailedBuild:
		return info.LastFailedBuild
	}
	return nil
}

func handleBuilds(ctx context.Context, inv *invocation) ([]string, error) {
	job := inv.args[0]
	keys := []string{keyLastBuild, keyLastSuccessfulBuild, keyLastFailedBuild}
	if len(inv.args) > 1 {
		key, ok := buildSelectors[strings.ToLower(inv.args[1])]
		if !ok {
			return nil, fmt.Errorf(
				"unknown build selector %q, valid ones are: %s", inv.args[1], strings.Join(selectorNames(), ", "),
			)
		}
		keys = []string{key}
	}

	if err := requireJob(ctx, inv.server, job); err != nil {
		return nil, err
	}

	info, err := inv.server.JobInfo(ctx, job)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		ref := buildByKey(info, key)
		if ref == nil {
			out = append(out, fmt.Sprintf("there are no %q recorded for this job", splitKey(key)))
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", splitKey(key), ref.URL))
	}
	return out, nil
}

// buildParams turns key=value arguments into build parameters. A bare key has an empty value
func buildParams(args []string) map[string]string {
	out := make(map[string]string, len(args))
	for _, a := range args {
		key, value, _ := strings.Cut(a, "=")
		out[key] = value
	}
	return out
}

func handleBuild(ctx context.Context, inv *invocation) ([]string, error) {
	job := inv.args[0]
	if err := requireJob(ctx, inv.server, job); err != nil {
		return nil, err
	}

	info, err := inv.server.JobInfo(ctx, job)
	if err != nil {
		return nil, err
	}

	params := buildParams(inv.args[1:])
	if inv.creds.BuildToken != "" {
		params["token"] = inv.creds.BuildToken
	}

	if err := inv.server.BuildJob(ctx, job, params); err != nil {
		if errors.Is(err, ErrAlreadyQueued) {
			return nil, fmt.Errorf("%s is already queued, no new build triggered", job)
		}
		return nil, fmt.Errorf("could not trigger %s: %w", job, err)
	}

	// sent here rather than returned, so that it always comes before anything from the watcher
	inv.reply(fmt.Sprintf("%s build #%d triggered, I'll report back when it finishes", job, info.NextBuildNumber))
	if inv.watcher != nil {
		inv.watcher.Watch(inv.server, job, info.NextBuildNumber, inv.reply)
	}
	return nil, nil
}

func handleEnable(ctx context.Context, inv *invocation) ([]string, error) {
	job := inv.args[0]
	if err := requireJob(ctx, inv.server, job); err != nil {
		return nil, err
	}
	if err := inv.server.EnableJob(ctx, job); err != nil {
		return nil, err
	}
	return []string{"enabled job: " + job}, nil
}

func handleDisable(ctx context.Context, inv *invocation) ([]string, error) {
	job := inv.args[0]
	if err := requireJob(ctx, inv.server, job); err != nil {
		return nil, err
	}
	if err := inv.server.DisableJob(ctx, job); err != nil {
		return nil, err
	}
	return []string{"disabled job: " + job}, nil
}

func handleVersion(_ context.Context, inv *invocation) ([]string, error) {
	version := inv.server.Version()
	if version == "" {
		return nil, errors.New("jenkins did not report its version")
	}
	return []string{fmt.Sprintf("Jenkins %s at %s", version, inv.server.URL())}, nil
}
