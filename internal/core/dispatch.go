package core

import "github.com/vovakirdan/wireirc/internal/proto"

// ServerInfo is the server identity used when building replies.
type ServerInfo struct {
	Name string
}

// Dispatcher routes parsed commands to their handlers. It holds no per-client
// state and is safe to share between sessions.
type Dispatcher struct {
	server   ServerInfo
	handlers map[CommandKind]handlerFunc
}

type handlerFunc func(d *Dispatcher, c *Client, cmd proto.Command) ([]proto.Reply, error)

// NewDispatcher creates a dispatcher replying as server.
func NewDispatcher(server ServerInfo) *Dispatcher {
	return &Dispatcher{
		server: server,
		handlers: map[CommandKind]handlerFunc{
			CommandNick: (*Dispatcher).handleNick,
			CommandUser: (*Dispatcher).handleUser,
		},
	}
}

// Server returns the identity the dispatcher replies as.
func (d *Dispatcher) Server() ServerInfo {
	return d.server
}

// Dispatch applies cmd to c and returns the replies to write back, in order.
// Returned errors are *CoreError values and never call for a disconnect.
func (d *Dispatcher) Dispatch(c *Client, cmd proto.Command) ([]proto.Reply, error) {
	h, ok := d.handlers[KindOf(cmd.Verb)]
	if !ok {
		return nil, coreError(ErrCodeUnknownCommand, cmd.Verb, "unknown command")
	}
	return h(d, c, cmd)
}

func (d *Dispatcher) handleNick(c *Client, cmd proto.Command) ([]proto.Reply, error) {
	nick := cmd.Param(1)
	if nick == "" {
		return nil, coreError(ErrCodeNeedMoreParams, cmd.Verb, "no nickname given")
	}

	if c.State.SetNickname(nick) {
		return []proto.Reply{d.welcome(c)}, nil
	}
	return nil, nil
}

func (d *Dispatcher) handleUser(c *Client, cmd proto.Command) ([]proto.Reply, error) {
	user := cmd.Param(1)
	if user == "" {
		return nil, coreError(ErrCodeNeedMoreParams, cmd.Verb, "not enough parameters")
	}

	if c.State.SetUsername(user) {
		return []proto.Reply{d.welcome(c)}, nil
	}
	return nil, nil
}

func (d *Dispatcher) welcome(c *Client) proto.Reply {
	return proto.Welcome(d.server.Name, c.State.Nickname, c.State.Username, c.Host())
}
