package core

import "net"

// HostSource supplies the hostname shown for a client.
type HostSource interface {
	Host() string
}

// Client is a connected peer as seen by the core layer. It is owned by a
// single session and must not be shared between goroutines.
type Client struct {
	ID     string
	Remote net.Addr
	State  ClientState

	host HostSource
}

// NewClient constructs a client. host may be nil, in which case the remote
// IP address is used as the client's hostname.
func NewClient(id string, remote net.Addr, host HostSource) *Client {
	return &Client{
		ID:     id,
		Remote: remote,
		host:   host,
	}
}

// Host returns the hostname used in the client's nick!user@host mask.
func (c *Client) Host() string {
	if c.host != nil {
		if h := c.host.Host(); h != "" {
			return h
		}
	}
	return RemoteIP(c.Remote)
}

// Mask returns nick!user@host for the client.
func (c *Client) Mask() string {
	return c.State.Nickname + "!" + c.State.Username + "@" + c.Host()
}

// RemoteIP returns the IP literal of addr, or its string form when addr has
// no host part.
func RemoteIP(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
