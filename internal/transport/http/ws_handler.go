package http

import (
	"errors"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireirc/internal/config"
	"github.com/vovakirdan/wireirc/internal/core"
	"github.com/vovakirdan/wireirc/internal/hostname"
	"github.com/vovakirdan/wireirc/internal/proto"
	"github.com/vovakirdan/wireirc/internal/session"
	"github.com/vovakirdan/wireirc/internal/utils"
)

// WSHandler upgrades HTTP connections and runs an IRC session over them.
// Text frames are treated as a byte stream, so lines still end in CRLF.
type WSHandler struct {
	dispatcher *core.Dispatcher
	resolver   *hostname.Resolver
	tracker    *session.Tracker
	opts       session.Options
	log        *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(d *core.Dispatcher, resolver *hostname.Resolver, tracker *session.Tracker, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		dispatcher: d,
		resolver:   resolver,
		tracker:    tracker,
		opts: session.Options{
			MaxLineLength:  cfg.MaxLineLength,
			ReadBufferSize: cfg.ReadBufferSize,
		},
		log: logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// the slot is taken before the upgrade and counts toward max_connections
	slot, err := h.tracker.Reserve()
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade refused")
		stdhttp.Error(w, err.Error(), stdhttp.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slot.Release()
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	nc := websocket.NetConn(ctx, conn, websocket.MessageText)

	opts := h.opts
	opts.ID = utils.NewID()
	opts.Host = h.resolver.Start(ctx, nc.RemoteAddr())

	sess := session.New(nc, h.dispatcher, opts, h.log)
	if err := slot.Run(ctx, sess); err != nil {
		if errors.Is(err, proto.ErrLineTooLong) {
			h.log.Debug().Str("conn_id", opts.ID).Msg("ws session closed: line too long")
			return
		}
		h.log.Warn().Err(err).Str("conn_id", opts.ID).Msg("ws connection closed with error")
	}
}
