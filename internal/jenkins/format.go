package jenkins

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goshuirc/irc-go/ircfmt"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

const buildingSuffix = "_anime"

var colourStates = map[string]string{
	"blue":     "passing",
	"red":      "failing",
	"yellow":   "unstable",
	"grey":     "not built",
	"notbuilt": "not built",
	"disabled": "disabled",
	"aborted":  "aborted",
}

// jobState turns the colour of a job's status ball into words
func jobState(colour string) string {
	base, building := strings.CutSuffix(colour, buildingSuffix)
	state, ok := colourStates[base]
	switch {
	case base == "":
		state = "unknown"
	case !ok:
		state = base
	}

	if building {
		return state + " (building)"
	}
	return state
}

var resultColours = map[string]string{
	"SUCCESS":  "green",
	"FAILURE":  "red",
	"UNSTABLE": "orange",
	"ABORTED":  "grey",
}

// colourResult returns the build result wrapped in IRC formatting
func colourResult(result string) string {
	if result == "" {
		result = "UNKNOWN"
	}
	colour, ok := resultColours[result]
	if !ok {
		return ircfmt.Unescape("$b" + result + "$r")
	}
	return ircfmt.Unescape(fmt.Sprintf("$c[%s]$b%s$r", colour, result))
}

// splitKey turns a Jenkins JSON key into words, lastSuccessfulBuild becomes "last Successful Build"
func splitKey(key string) string {
	return strings.Join(util.SplitCamel(key), " ")
}

func statusLine(job string, info *JobInfo, started time.Time) string {
	state := jobState(info.Color)
	if info.LastBuild == nil {
		return fmt.Sprintf("%s: %s, never built", job, state)
	}

	out := fmt.Sprintf("%s: %s, last build #%d %s", job, state, info.LastBuild.Number, info.LastBuild.URL)
	if !started.IsZero() {
		out += fmt.Sprintf(" (started %s)", humanize.Time(started))
	}
	return out
}

func finishedLine(job string, info *BuildInfo) string {
	return fmt.Sprintf("%s #%d finished: %s %s", job, info.Number, colourResult(info.Result), info.URL)
}
