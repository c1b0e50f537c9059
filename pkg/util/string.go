package util

import (
	"strings"
	"unicode"

	"github.com/goshuirc/irc-go/ircfmt"
)

// CleanSplitOnSpace splits the given string on space specifically without adding empty strings to the resulting array for
// repeated spaces
func CleanSplitOnSpace(s string) []string {
	split := strings.Split(s, " ")
	var out []string
	for _, v := range split {
		if len(v) == 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

const zwsp = '\u200b'

// StripAll strips both IRC control codes and any extra weird ascii control codes
func StripAll(s string) string {
	s = ircfmt.Strip(s)
	return strings.Map(func(r rune) rune {
		if r < ' ' || r == zwsp {
			return -1
		}
		return r
	}, s)
}

// IdxOrEmpty returns the entry at idx in slice, or an empty string if idx is out of range
func IdxOrEmpty(slice []string, idx int) string {
	if idx < 0 || idx >= len(slice) {
		return ""
	}
	return slice[idx]
}

// ReverseIdx returns the entry at idx in slice, where a negative idx counts back from the end of the slice. An empty
// string is returned if idx is out of range
func ReverseIdx(slice []string, idx int) string {
	if idx < 0 {
		idx += len(slice)
	}
	return IdxOrEmpty(slice, idx)
}

// JoinToMaxLength joins the given strings with sep, starting a new string whenever adding the next entry would make
// the current one longer than maxLength. Entries longer than maxLength are returned on their own. Empty entries are
// skipped
func JoinToMaxLength(toJoin []string, sep string, maxLength int) []string {
	var out []string
	cur := strings.Builder{}
	for _, s := range toJoin {
		if s == "" {
			continue
		}

		if cur.Len() > 0 && cur.Len()+len(sep)+len(s) > maxLength {
			out = append(out, cur.String())
			cur.Reset()
		}

		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(s)
	}

	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// SplitCamel splits a camelCase or PascalCase word into its component words. The case of each word is preserved
func SplitCamel(s string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	if len(runes) > 0 {
		out = append(out, string(runes[start:]))
	}
	return out
}
