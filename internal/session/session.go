package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/wireirc/internal/core"
	"github.com/vovakirdan/wireirc/internal/proto"
	"github.com/vovakirdan/wireirc/internal/utils"
)

const defaultReadBufferSize = 512

// Options tune a single session.
type Options struct {
	// ID identifies the connection in logs. Empty generates one.
	ID             string
	MaxLineLength  int
	ReadBufferSize int
	// Host supplies the client's hostname. Nil uses the remote IP.
	Host core.HostSource
}

// Session drives one connection: read, frame, parse, dispatch, reply.
type Session struct {
	conn       net.Conn
	dispatcher *core.Dispatcher
	framer     *proto.Framer
	client     *core.Client
	readSize   int
	log        zerolog.Logger
}

// New prepares a session for conn. Nothing is read until Serve is called.
func New(conn net.Conn, d *core.Dispatcher, opts Options, logger *zerolog.Logger) *Session {
	id := opts.ID
	if id == "" {
		id = utils.NewID()
	}
	readSize := opts.ReadBufferSize
	if readSize <= 0 {
		readSize = defaultReadBufferSize
	}

	client := core.NewClient(id, conn.RemoteAddr(), opts.Host)

	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("conn_id", id).Str("remote", core.RemoteIP(conn.RemoteAddr())).Logger()
	} else {
		l = zerolog.Nop()
	}

	return &Session{
		conn:       conn,
		dispatcher: d,
		framer:     proto.NewFramer(opts.MaxLineLength),
		client:     client,
		readSize:   readSize,
		log:        l,
	}
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.client.ID
}

// Client returns the core view of the connected peer.
func (s *Session) Client() *core.Client {
	return s.client
}

// Serve runs the session until the peer disconnects, a fatal error occurs or
// ctx is cancelled. The connection is always closed on return. A clean
// disconnect or cancellation returns nil.
func (s *Session) Serve(ctx context.Context) (err error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()
	defer s.close()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("recovered from session panic")
			err = fmt.Errorf("session panic: %v", r)
		}
	}()

	s.log.Info().Msg("client connected")

	buf := make([]byte, s.readSize)
	for {
		n, rerr := s.conn.Read(buf)
		if n > 0 {
			if herr := s.handle(buf[:n]); herr != nil {
				if ctx.Err() != nil {
					return nil
				}
				return herr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || ctx.Err() != nil {
				s.log.Info().Msg("client disconnected")
				return nil
			}
			return fmt.Errorf("read: %w", rerr)
		}
	}
}

// handle processes every complete line in chunk before returning.
func (s *Session) handle(chunk []byte) error {
	for line, err := range s.framer.Feed(chunk) {
		if err != nil {
			if errors.Is(err, proto.ErrLineTooLong) {
				s.log.Warn().Msg("line too long, closing")
				// best effort, the connection is closed either way
				_ = s.write(proto.ClosingLink(s.client.Host(), "Line too long"))
			}
			return err
		}

		cmd, ok := proto.ParseCommand(line)
		if !ok {
			continue
		}

		s.log.Trace().Str("line", string(line)).Msg("recv")

		wasRegistered := s.client.State.Registered()
		replies, derr := s.dispatcher.Dispatch(s.client, cmd)
		if derr != nil {
			s.log.Debug().Err(derr).Str("verb", cmd.Verb).Msg("command ignored")
		}
		for _, r := range replies {
			if werr := s.write(r); werr != nil {
				return werr
			}
		}
		if !wasRegistered && s.client.State.Registered() {
			s.log.Info().
				Str("nick", s.client.State.Nickname).
				Str("user", s.client.State.Username).
				Str("host", s.client.Host()).
				Msg("client registered")
		}
	}
	return nil
}

func (s *Session) write(r proto.Reply) error {
	data, err := r.MarshalText()
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	s.log.Trace().Str("line", string(data[:len(data)-2])).Msg("send")
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *Session) close() {
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug().Err(err).Msg("close connection")
	}
	s.framer.Reset()
}
