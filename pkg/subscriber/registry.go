// Package subscriber keeps the intended pub/sub subscriptions of a client and
// services message delivery against them.
//
// The registry is plain local state. Subscribing or unsubscribing never talks
// to the server; the whole registry is replayed onto a fresh pub/sub handle at
// the start of every FetchMessages or GetMessage call, channels first and then
// patterns, in insertion order. A handle never outlives the call that built
// it, so a connection lost between calls is healed by the next fetch.
//
// Messages published while no fetch is in flight are not delivered.
package subscriber

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/cachemir/steadyredis/pkg/config"
	"github.com/cachemir/steadyredis/pkg/logger"
	"github.com/cachemir/steadyredis/pkg/metrics"
	"github.com/cachemir/steadyredis/pkg/protocol"
	"github.com/cachemir/steadyredis/pkg/transport"
)

// MessageHandler receives each delivered message. Returning true ends the
// fetch successfully.
type MessageHandler func(msg *protocol.Message) bool

// InterruptPoller is called before every read of the fetch loop.
type InterruptPoller func() protocol.Interrupts

// Registry is the subscription registry of one client. It is not safe for
// concurrent use.
type Registry struct {
	dialer      transport.Dialer
	channels    []string
	patterns    []string
	pollTimeout time.Duration
	log         logger.Logger
	metrics     *metrics.Recorder
}

// Option configures a Registry.
type Option func(*Registry)

// WithPollTimeout sets the read timeout used when the interrupts carry no
// polling time. Zero blocks.
func WithPollTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d >= 0 {
			r.pollTimeout = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New creates an empty registry that opens pub/sub handles through dialer.
func New(dialer transport.Dialer, opts ...Option) *Registry {
	r := &Registry{
		dialer:      dialer,
		pollTimeout: config.DefaultPollTimeout,
		log:         logger.NewNoop(),
		metrics:     metrics.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "subscriber")
	return r
}

// Subscribe adds channel to the registry. Adding a channel twice is a no-op.
func (r *Registry) Subscribe(channel string) {
	if !slices.Contains(r.channels, channel) {
		r.channels = append(r.channels, channel)
	}
}

// PSubscribe adds a glob pattern to the registry. Adding a pattern twice is a
// no-op.
func (r *Registry) PSubscribe(pattern string) {
	if !slices.Contains(r.patterns, pattern) {
		r.patterns = append(r.patterns, pattern)
	}
}

// Unsubscribe removes channel. Unknown channels are ignored.
func (r *Registry) Unsubscribe(channel string) {
	r.channels = slices.DeleteFunc(r.channels, func(c string) bool { return c == channel })
}

// PUnsubscribe removes pattern. Unknown patterns are ignored.
func (r *Registry) PUnsubscribe(pattern string) {
	r.patterns = slices.DeleteFunc(r.patterns, func(p string) bool { return p == pattern })
}

func (r *Registry) IsSubscribed(channel string) bool {
	return slices.Contains(r.channels, channel)
}

func (r *Registry) IsPSubscribed(pattern string) bool {
	return slices.Contains(r.patterns, pattern)
}

// UnsubscribeAll clears both channels and patterns.
func (r *Registry) UnsubscribeAll() {
	r.channels = nil
	r.patterns = nil
}

// HasSubscriptions reports whether at least one channel or pattern is registered.
func (r *Registry) HasSubscriptions() bool {
	return len(r.channels) > 0 || len(r.patterns) > 0
}

// Channels returns a copy of the registered channels in replay order.
func (r *Registry) Channels() []string {
	return slices.Clone(r.channels)
}

// Patterns returns a copy of the registered patterns in replay order.
func (r *Registry) Patterns() []string {
	return slices.Clone(r.patterns)
}

// FetchMessages replays the registry onto a fresh pub/sub handle and polls it
// until poll asks to stop, onMessage returns true, ctx is done or a read fails
// with anything other than a timeout. Timeouts only end the current
// iteration. A nil poll polls forever with the default timeout.
//
// An empty registry fails with ErrNoSubscriptions before any connection is
// attempted. After any failure the caller retries by calling FetchMessages
// again, which reconnects and resubscribes.
func (r *Registry) FetchMessages(ctx context.Context, onMessage MessageHandler, poll InterruptPoller) error {
	if !r.HasSubscriptions() {
		return protocol.ErrNoSubscriptions
	}
	if onMessage == nil {
		return errors.New("message handler is required")
	}
	if poll == nil {
		poll = func() protocol.Interrupts { return protocol.Interrupts{} }
	}

	ps, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer r.release(ps)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		interrupts := poll()
		if interrupts.Stop {
			return nil
		}

		msg, err := ps.ReceiveMessage(ctx, interrupts.PollingTime(r.pollTimeout))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if protocol.IsTimeout(err) {
				r.metrics.PollTimedOut(ctx)
				continue
			}
			r.log.Debug("Fetch aborted", "error", err)
			return err
		}

		r.metrics.MessageReceived(ctx, msg.FromPattern())
		if onMessage(msg) {
			return nil
		}
	}
}

// GetMessage replays the registry and waits for a single message. Unlike
// FetchMessages a read timeout is returned to the caller as a timeout error.
// A zero timeout blocks.
func (r *Registry) GetMessage(ctx context.Context, timeout time.Duration) (*protocol.Message, error) {
	ps, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.release(ps)

	msg, err := ps.ReceiveMessage(ctx, max(timeout, 0))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if protocol.IsTimeout(err) {
			r.metrics.PollTimedOut(ctx)
			if protocol.KindOf(err) != protocol.KindTimeout {
				err = protocol.Timeout(err)
			}
		}
		return nil, err
	}
	r.metrics.MessageReceived(ctx, msg.FromPattern())
	return msg, nil
}

// open builds a pub/sub handle and replays every registered channel and
// pattern on it. Any failure closes the handle.
func (r *Registry) open(ctx context.Context) (transport.PubSub, error) {
	if !r.HasSubscriptions() {
		return nil, protocol.ErrNoSubscriptions
	}

	ps, err := r.dialer.OpenPubSub(ctx)
	if err != nil {
		return nil, asConnectivity(ctx, err)
	}
	if ps == nil {
		return nil, protocol.ErrConnectionUnavailable
	}

	for _, channel := range r.channels {
		if err := ps.Subscribe(ctx, channel); err != nil {
			r.release(ps)
			r.log.Debug("Resubscription failed", "channel", channel, "error", err)
			return nil, asConnectivity(ctx, err)
		}
	}
	for _, pattern := range r.patterns {
		if err := ps.PSubscribe(ctx, pattern); err != nil {
			r.release(ps)
			r.log.Debug("Resubscription failed", "pattern", pattern, "error", err)
			return nil, asConnectivity(ctx, err)
		}
	}

	r.metrics.Resubscribed(ctx, len(r.channels), len(r.patterns))
	r.log.Debug("Replayed subscriptions", "channels", len(r.channels), "patterns", len(r.patterns))
	return ps, nil
}

func (r *Registry) release(ps transport.PubSub) {
	if err := ps.Close(); err != nil {
		r.log.Debug("Error closing pub/sub handle", "error", err)
	}
}

// asConnectivity reports a failure to rebuild the pub/sub handle as a
// connectivity error. Errors arriving after ctx is done are returned as they
// are.
func asConnectivity(ctx context.Context, err error) error {
	if ctx.Err() != nil || protocol.IsConnectivity(err) {
		return err
	}
	return protocol.Connectivity(err)
}
