package util

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/goshuirc/irc-go/ircmsg"
	"github.com/goshuirc/irc-go/ircutils"
)

// IRC SASL numerics
// noinspection ALL
const (
	//revive:disable:var-naming
	RPL_LOGGEDIN    = "900"
	RPL_LOGGEDOUT   = "901"
	RPL_NICKLOCKED  = "902"
	RPL_SASLSUCCESS = "903"
	RPL_SASLFAIL    = "904"
	RPL_SASLTOOLONG = "905"
	RPL_SASLABORTED = "906"
	RPL_SASLALREADY = "907"
	RPL_SASLMECHS   = "908"
	//revive:enable:var-naming
)

// MakeSimpleIRCLine is a helper function that creates an ircmsg.IrcMessage with no tags and no prefix.
func MakeSimpleIRCLine(command string, args ...string) ircmsg.IrcMessage {
	return ircmsg.MakeMessage(nil, "", command, args...)
}

// GenerateSASLString generates a base64 encoded string from the given parameters that can be used for
// SASL PLAIN authentication with an IRC server
func GenerateSASLString(nick, saslUsername, saslPasswd string) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(fmt.Sprintf("%s\x00%s\x00%s", nick, saslUsername, saslPasswd)),
	)
}

var charMap = map[rune]string{'?': ".", '*': ".*"}

type regexpCache struct {
	sync.Mutex
	cache map[string]*regexp.Regexp
}

func (c *regexpCache) get(key string, build func() string) *regexp.Regexp {
	c.Lock()
	defer c.Unlock()
	if re, ok := c.cache[key]; ok {
		return re
	}

	if c.cache == nil {
		c.cache = make(map[string]*regexp.Regexp)
	}

	re := regexp.MustCompile(build())
	c.cache[key] = re
	return re
}

var (
	globCache     regexpCache
	globFoldCache regexpCache
)

func globToPattern(glob string) string {
	out := strings.Builder{}
	out.WriteRune('^')
	for _, c := range glob {
		if toUse, ok := charMap[c]; ok {
			out.WriteString(toUse)
		} else {
			out.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	out.WriteRune('$')
	return out.String()
}

// GlobToRegexp converts a mask glob string to a regexp that will only allow the wildcards * and ? to have any special
// meaning. The returned regexp must match the entire string
func GlobToRegexp(mask string) *regexp.Regexp {
	return globCache.get(mask, func() string { return globToPattern(mask) })
}

// GlobToFoldRegexp is like GlobToRegexp, but the returned regexp ignores case
func GlobToFoldRegexp(mask string) *regexp.Regexp {
	return globFoldCache.get(mask, func() string { return "(?i)" + globToPattern(mask) })
}

// UserHost2Canonical returns the nickname!username@host representation of the given ircutils.UserHost
func UserHost2Canonical(uh ircutils.UserHost) string {
	out := strings.Builder{}
	out.WriteString(uh.Nick)
	if uh.User != "" {
		out.WriteRune('!')
		out.WriteString(uh.User)
	}
	if uh.Host != "" {
		out.WriteRune('@')
		out.WriteString(uh.Host)
	}
	return out.String()
}

// IsChannel returns whether or not the given target looks like an IRC channel
func IsChannel(target string) bool {
	return target != "" && strings.ContainsRune("#&+!", rune(target[0]))
}
