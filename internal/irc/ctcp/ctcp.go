// Package ctcp parses and builds Client-To-Client-Protocol messages, which are carried inside PRIVMSG and NOTICE
package ctcp

import (
	"errors"
	"strings"
)

const (
	ctcpChar       byte = 0x01
	ctcpCharString      = "\x01"
)

// ErrNotCTCP is returned by Parse when the string it was given is not a CTCP message
var ErrNotCTCP = errors.New("not a CTCP string")

// IsCTCP returns whether or not the given string is a valid CTCP command
func IsCTCP(s string) bool {
	return len(s) > 1 && s[0] == ctcpChar
}

// CTCP represents a CTCP command and argument
type CTCP struct {
	Command string
	Arg     string
}

// String returns the CTCP in its wire format
func (c CTCP) String() string {
	if c.Arg == "" {
		return ctcpCharString + c.Command + ctcpCharString
	}
	return ctcpCharString + c.Command + " " + c.Arg + ctcpCharString
}

// Parse takes a string and returns a CTCP struct representation of the command. If the passed string is not a valid
// CTCP string, Parse returns ErrNotCTCP
func Parse(s string) (CTCP, error) {
	if !IsCTCP(s) {
		return CTCP{}, ErrNotCTCP
	}

	cmd, args, _ := strings.Cut(s, " ")
	return CTCP{strings.ToUpper(strings.Trim(cmd, ctcpCharString)), strings.Trim(args, ctcpCharString)}, nil
}
