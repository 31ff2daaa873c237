package core

import (
	"net"
	"testing"

	"github.com/vovakirdan/wireirc/internal/proto"
)

type staticHost string

func (h staticHost) Host() string { return string(h) }

func newTestClient(host string) *Client {
	remote := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
	if host == "" {
		return NewClient("test", remote, nil)
	}
	return NewClient("test", remote, staticHost(host))
}

// send parses line and dispatches it, returning the encoded replies.
func send(t *testing.T, d *Dispatcher, c *Client, line string) ([]string, error) {
	t.Helper()

	cmd, ok := proto.ParseCommand(proto.RawLine(line))
	if !ok {
		return nil, nil
	}
	replies, err := d.Dispatch(c, cmd)
	out := make([]string, 0, len(replies))
	for _, r := range replies {
		out = append(out, r.String())
	}
	return out, err
}
