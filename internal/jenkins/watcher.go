package jenkins

import (
	"context"
	"fmt"
	"sync"
	"time"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/log"
)

// WatchConfig controls how a triggered build is followed
type WatchConfig struct {
	StartDelay     time.Duration // wait before the first lookup
	PollInterval   time.Duration // wait between lookups after the first
	Timeout        time.Duration // give up after this long
	RequestTimeout time.Duration // per lookup
	MaxErrors      int           // consecutive lookup failures tolerated once the build has started
}

// Watcher follows triggered builds and reports when they start and finish
type Watcher struct {
	log *log.Logger

	mu      sync.Mutex
	conf    WatchConfig
	watches map[int]*watch
	nextID  int
	stopped bool
	wg      sync.WaitGroup
}

type watch struct {
	id      int
	server  Server
	job     string
	number  int64
	reply   func(string)
	conf    WatchConfig
	created time.Time

	announced bool
	errors    int
	timer     *time.Timer
}

func (w *watch) String() string { return fmt.Sprintf("%s #%d", w.job, w.number) }

// NewWatcher creates a Watcher. The config can be changed later with SetConfig
func NewWatcher(logger *log.Logger, conf WatchConfig) *Watcher {
	return &Watcher{log: logger, conf: conf, watches: make(map[int]*watch)}
}

// SetConfig changes the config used for watches started after the call
func (w *Watcher) SetConfig(conf WatchConfig) {
	w.mu.Lock()
	w.conf = conf
	w.mu.Unlock()
}

// Watch starts following build number of job, sending progress to reply
func (w *Watcher) Watch(server Server, job string, number int64, reply func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	w.nextID++
	wt := &watch{
		id:      w.nextID,
		server:  server,
		job:     job,
		number:  number,
		reply:   reply,
		conf:    w.conf,
		created: time.Now(),
	}
	w.watches[wt.id] = wt
	w.log.Debugf("watching %s", wt)
	w.scheduleLocked(wt, wt.conf.StartDelay)
}

func (w *Watcher) scheduleLocked(wt *watch, d time.Duration) {
	wt.timer = time.AfterFunc(d, func() { w.tick(wt) })
}

func (w *Watcher) schedule(wt *watch, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.scheduleLocked(wt, d)
}

func (w *Watcher) remove(wt *watch) {
	w.mu.Lock()
	delete(w.watches, wt.id)
	w.mu.Unlock()
}

// Active returns the number of builds being watched
func (w *Watcher) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watches)
}

// Stop cancels all watches and waits for any running lookups to complete. Watch does nothing after Stop
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	for id, wt := range w.watches {
		if wt.timer != nil {
			wt.timer.Stop()
		}
		delete(w.watches, id)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) tick(wt *watch) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	if w.poll(wt) {
		w.schedule(wt, wt.conf.PollInterval)
		return
	}
	w.remove(wt)
}

// poll looks the build up once and returns whether or not it should be looked up again
func (w *Watcher) poll(wt *watch) bool {
	ctx, cancel := context.WithTimeout(context.Background(), wt.conf.RequestTimeout)
	defer cancel()

	info, err := wt.server.BuildInfo(ctx, wt.job, wt.number)
	elapsed := time.Since(wt.created)

	if !wt.announced {
		if err != nil {
			w.log.Debugf("%s has not started yet: %s", wt, err)
			if elapsed >= wt.conf.Timeout {
				wt.reply(fmt.Sprintf("stopped watching %s, it has not started after %s", wt, elapsed.Round(time.Second)))
				return false
			}
			return true
		}

		wt.announced = true
		wt.reply(fmt.Sprintf("%s build started at: %s", wt.job, info.URL))
	} else if err != nil {
		wt.errors++
		w.log.Warnf("could not poll %s (%d/%d): %s", wt, wt.errors, wt.conf.MaxErrors, err)
		if wt.errors > wt.conf.MaxErrors {
			wt.reply(fmt.Sprintf("lost track of %s: %s", wt, err))
			return false
		}
		return true
	}

	wt.errors = 0
	if !info.Building {
		wt.reply(finishedLine(wt.job, info))
		return false
	}

	if elapsed >= wt.conf.Timeout {
		wt.reply(fmt.Sprintf("stopped watching %s, it is still running after %s", wt, elapsed.Round(time.Second)))
		return false
	}

	return true
}
