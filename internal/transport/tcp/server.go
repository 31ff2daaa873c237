package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/wireirc/internal/config"
	"github.com/vovakirdan/wireirc/internal/core"
	"github.com/vovakirdan/wireirc/internal/hostname"
	"github.com/vovakirdan/wireirc/internal/proto"
	"github.com/vovakirdan/wireirc/internal/session"
	"github.com/vovakirdan/wireirc/internal/utils"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
	refuseTimeout    = time.Second
)

// ErrNotListening is returned by Serve when Listen has not succeeded.
var ErrNotListening = errors.New("tcp: server is not listening")

// Server accepts IRC connections and runs one session per connection.
type Server struct {
	cfg        config.Config
	dispatcher *core.Dispatcher
	resolver   *hostname.Resolver
	tracker    *session.Tracker
	limiter    *rate.Limiter
	log        *zerolog.Logger

	mu     sync.Mutex
	ln     net.Listener
	active atomic.Int64
}

// NewServer builds a server. resolver may be nil; tracker nil gets a private
// one limited to cfg.MaxConnections.
func NewServer(cfg config.Config, d *core.Dispatcher, resolver *hostname.Resolver, tracker *session.Tracker, logger *zerolog.Logger) *Server {
	if tracker == nil {
		tracker = session.NewTracker(cfg.MaxConnections)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var limiter *rate.Limiter
	if cfg.AcceptRate > 0 {
		burst := max(1, int(cfg.AcceptRate))
		limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), burst)
	}

	return &Server{
		cfg:        cfg,
		dispatcher: d,
		resolver:   resolver,
		tracker:    tracker,
		limiter:    limiter,
		log:        logger,
	}
}

// Listen binds the configured host and port. An empty host listens on every
// IPv4 and IPv6 interface.
func (s *Server) Listen(ctx context.Context) error {
	lc := net.ListenConfig{Control: control}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr(), err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("irc listener ready")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveSessions returns the number of TCP sessions currently running.
func (s *Server) ActiveSessions() int64 {
	return s.active.Load()
}

// Serve runs the accept loop until the listener is closed or ctx is done.
// Accept errors never stop the loop; they are logged and retried with backoff.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var backoff time.Duration
	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}

			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			s.log.Warn().Err(err).Bool("resource", isResourceError(err)).Dur("retry_in", backoff).Msg("accept failed")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		slot, err := s.tracker.Reserve()
		switch {
		case errors.Is(err, session.ErrServerFull):
			s.log.Warn().Str("remote", conn.RemoteAddr().String()).Int("max_connections", s.cfg.MaxConnections).Msg("connection refused")
			go refuse(conn, "Server full")
			continue
		case err != nil:
			_ = conn.Close()
			continue
		}

		s.serveConn(ctx, conn, slot)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, slot *session.Slot) {
	pending := s.resolver.Start(ctx, conn.RemoteAddr())
	sess := session.New(conn, s.dispatcher, session.Options{
		ID:             utils.NewID(),
		MaxLineLength:  s.cfg.MaxLineLength,
		ReadBufferSize: s.cfg.ReadBufferSize,
		Host:           pending,
	}, s.log)

	s.active.Add(1)
	slot.Go(ctx, sess, func(err error) {
		s.active.Add(-1)
		if err != nil {
			s.log.Warn().Err(err).Str("conn_id", sess.ID()).Msg("session ended")
		}
	})
}

// Shutdown stops accepting, cancels running sessions and waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Warn().Err(err).Msg("close listener")
		}
	}
	return s.tracker.Shutdown(ctx)
}

func refuse(conn net.Conn, reason string) {
	defer conn.Close()
	data, err := proto.ClosingLink(core.RemoteIP(conn.RemoteAddr()), reason).MarshalText()
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(refuseTimeout))
	_, _ = conn.Write(data)
}

func isResourceError(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) || errors.Is(err, syscall.ENOMEM)
}
