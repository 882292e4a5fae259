// Package connection keeps the single request connection of a client usable.
//
// The Guardian holds zero or one connection. Before every command it proves
// the connection live with a PING and reopens it when the probe fails.
// Staleness is never cached: each call re-checks. Recovery is caller driven,
// there is no background goroutine and no retry loop.
//
// A Guardian is not safe for concurrent use.
package connection

import (
	"context"
	"time"

	"github.com/cachemir/steadyredis/pkg/logger"
	"github.com/cachemir/steadyredis/pkg/metrics"
	"github.com/cachemir/steadyredis/pkg/protocol"
	"github.com/cachemir/steadyredis/pkg/transport"
)

// Guardian owns the request connection of one client.
type Guardian struct {
	dialer       transport.Dialer
	conn         transport.Conn
	log          logger.Logger
	metrics      *metrics.Recorder
	probeTimeout time.Duration
}

// Option configures a Guardian.
type Option func(*Guardian)

func WithLogger(l logger.Logger) Option {
	return func(g *Guardian) {
		if l != nil {
			g.log = l
		}
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(g *Guardian) {
		if r != nil {
			g.metrics = r
		}
	}
}

// WithProbeTimeout bounds each liveness probe. Zero leaves the probe bound
// only by the caller's context and the transport read timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(g *Guardian) {
		g.probeTimeout = d
	}
}

// New creates a Guardian that opens connections through dialer. No connection
// is opened until the first command.
func New(dialer transport.Dialer, opts ...Option) *Guardian {
	g := &Guardian{
		dialer:  dialer,
		log:     logger.NewNoop(),
		metrics: metrics.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With("component", "connection")
	return g
}

// IsOpen reports whether a connection is held and answers a PING right now.
// A connection failing the probe is closed and forgotten.
func (g *Guardian) IsOpen(ctx context.Context) bool {
	if g.conn == nil {
		return false
	}

	probeCtx := ctx
	if g.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, g.probeTimeout)
		defer cancel()
	}

	if err := g.conn.Ping(probeCtx); err != nil {
		g.metrics.ProbeFailed(ctx)
		g.log.Warn("Connection probe failed, dropping connection", "error", err)
		g.drop()
		return false
	}
	return true
}

// Acquire returns a connection that just passed the probe, opening a new one
// when none is held or the held one is stale. Open failures are returned as
// connectivity errors and leave no connection behind.
func (g *Guardian) Acquire(ctx context.Context) (transport.Conn, error) {
	if g.IsOpen(ctx) {
		return g.conn, nil
	}

	conn, err := g.dialer.Open(ctx)
	if err != nil {
		g.metrics.ConnectionFailed(ctx)
		if protocol.KindOf(err) != protocol.KindConnectivity && ctx.Err() == nil {
			err = protocol.Connectivity(err)
		}
		return nil, err
	}
	if conn == nil {
		return nil, protocol.ErrConnectionUnavailable
	}

	g.conn = conn
	g.metrics.ConnectionOpened(ctx)
	g.log.Debug("Opened request connection")
	return conn, nil
}

// Execute runs cmd on a freshly validated connection and returns the raw
// reply. Failures are surfaced immediately; the command is never retried
// within the call. A connection that failed mid-command or was rejected for
// authentication is dropped so the next call reopens it.
func (g *Guardian) Execute(ctx context.Context, cmd *protocol.Command) (any, error) {
	conn, err := g.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := conn.Do(ctx, cmd)
	if err != nil {
		g.metrics.CommandFailed(ctx, protocol.KindOf(err).String())
		if protocol.IsConnectivity(err) || protocol.IsAuthFailure(err) {
			g.log.Debug("Dropping connection after command failure", "command", cmd.String(), "error", err)
			g.drop()
		}
		return nil, err
	}
	return reply, nil
}

// Quit sends QUIT when a live connection is held, then forgets the
// connection whatever the outcome. Without a live connection it does nothing.
func (g *Guardian) Quit(ctx context.Context) error {
	if !g.IsOpen(ctx) {
		return nil
	}

	_, err := g.conn.Do(ctx, &protocol.Command{Name: protocol.CmdQuit})
	g.drop()
	if err != nil {
		return err
	}
	g.log.Debug("Closed request connection")
	return nil
}

// Close forgets the held connection without talking to the server.
func (g *Guardian) Close() error {
	if g.conn == nil {
		return nil
	}
	err := g.conn.Close()
	g.conn = nil
	return err
}

func (g *Guardian) drop() {
	if g.conn == nil {
		return
	}
	if err := g.conn.Close(); err != nil {
		g.log.Debug("Error closing connection", "error", err)
	}
	g.conn = nil
}
