package proto

import "strings"

const (
	trailingPrefix = ':'
	// separators is ASCII whitespace; a stray CR or LF never lands inside a token.
	separators = " \t\r\n\v\f"
)

// Command is a RawLine decoded into a verb and its parameters.
type Command struct {
	// Verb is the upper-cased first token. It is empty for malformed lines
	// such as a lone ":".
	Verb string

	// Params holds the remaining tokens in order. A trailing parameter
	// (introduced by ':') is the last element and may contain spaces.
	Params []string
}

// ParseCommand decodes line. Blank or whitespace-only lines report ok=false
// and should be ignored by the caller.
func ParseCommand(line RawLine) (cmd Command, ok bool) {
	s := string(line)

	first := true
	for {
		s = strings.TrimLeft(s, separators)
		if s == "" {
			break
		}

		if s[0] == trailingPrefix {
			cmd.Params = append(cmd.Params, s[1:])
			first = false
			break
		}

		end := strings.IndexAny(s, separators)
		if end < 0 {
			end = len(s)
		}
		tok := s[:end]
		s = s[end:]

		if first {
			cmd.Verb = strings.ToUpper(tok)
			first = false
			continue
		}
		cmd.Params = append(cmd.Params, tok)
	}

	if first {
		return Command{}, false
	}
	return cmd, true
}

// Param returns the nth parameter, counting from 1, or "" if absent.
func (c Command) Param(n int) string {
	if n < 1 || n > len(c.Params) {
		return ""
	}
	return c.Params[n-1]
}

// String renders the command in wire form without the terminator.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Verb)
	for i, p := range c.Params {
		b.WriteByte(' ')
		if i == len(c.Params)-1 && needsTrailing(p) {
			b.WriteByte(trailingPrefix)
		}
		b.WriteString(p)
	}
	return b.String()
}

func needsTrailing(p string) bool {
	return p == "" || p[0] == trailingPrefix || strings.ContainsAny(p, separators)
}
