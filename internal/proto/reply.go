package proto

// Numeric and command names the server emits.
const (
	RplWelcome = "001"

	CmdError = "ERROR"
)

// Reply is a message sent from the server to a client.
type Reply struct {
	// Source becomes the ":source " prefix when non-empty.
	Source  string
	Command string
	// Params are written space separated; the last one is always sent as a
	// trailing parameter so it may contain spaces.
	Params []string
}

// Welcome builds the 001 reply sent once a client completes registration.
func Welcome(server, nick, user, host string) Reply {
	return Reply{
		Source:  server,
		Command: RplWelcome,
		Params: []string{
			nick,
			"Welcome to the Internet Relay Network " + nick + "!" + user + "@" + host,
		},
	}
}

// ClosingLink builds the ERROR line sent before the server drops a client.
func ClosingLink(host, reason string) Reply {
	return Reply{
		Command: CmdError,
		Params:  []string{"Closing Link: " + host + " (" + reason + ")"},
	}
}

// Len returns the encoded size of r, CRLF included.
func (r Reply) Len() int {
	n := len(r.Command) + len(crlf)
	if r.Source != "" {
		n += 1 + len(r.Source) + 1
	}
	for _, p := range r.Params {
		n += 1 + len(p)
	}
	if len(r.Params) > 0 {
		n++
	}
	return n
}

// MarshalText encodes r into a buffer sized from its content.
func (r Reply) MarshalText() ([]byte, error) {
	buf := make([]byte, 0, r.Len())

	if r.Source != "" {
		buf = append(buf, trailingPrefix)
		buf = append(buf, r.Source...)
		buf = append(buf, ' ')
	}
	buf = append(buf, r.Command...)

	for i, p := range r.Params {
		buf = append(buf, ' ')
		if i == len(r.Params)-1 {
			buf = append(buf, trailingPrefix)
		}
		buf = append(buf, p...)
	}

	return append(buf, crlf...), nil
}

// String returns the encoded reply, CRLF included.
func (r Reply) String() string {
	b, _ := r.MarshalText()
	return string(b)
}
