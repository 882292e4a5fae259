// Package client provides the SteadyRedis client: a single request connection
// and a pub/sub subscription registry that both survive connection loss.
//
// Every command first proves the held connection live with a PING and reopens
// it when needed. Subscriptions are kept locally and replayed on a fresh
// pub/sub connection each time messages are fetched, so a server restart
// between two calls is invisible to the caller.
//
// Basic Usage:
//
//	c, err := client.New("redis://:secret@localhost:6379/0")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	// Commands reconnect transparently
//	if err := c.Set(ctx, "greeting", "hello"); err != nil {
//		log.Fatal(err)
//	}
//	value, err := c.Get(ctx, "greeting")
//
//	// Subscriptions are replayed on every fetch
//	c.Subscribe("orders")
//	c.PSubscribe("alerts.*")
//	err = c.FetchMessages(ctx, func(m *protocol.Message) bool {
//		fmt.Println(m.Channel, m.Payload)
//		return false
//	}, func() protocol.Interrupts {
//		return protocol.PollEvery(time.Second)
//	})
//
// A Client is not safe for concurrent use. Goroutines needing independent
// command or pub/sub traffic should each create their own Client.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cachemir/steadyredis/pkg/config"
	"github.com/cachemir/steadyredis/pkg/connection"
	"github.com/cachemir/steadyredis/pkg/logger"
	"github.com/cachemir/steadyredis/pkg/metrics"
	"github.com/cachemir/steadyredis/pkg/protocol"
	"github.com/cachemir/steadyredis/pkg/subscriber"
	"github.com/cachemir/steadyredis/pkg/transport"
)

// Client routes commands through a connection.Guardian and pub/sub calls
// through a subscriber.Registry. Both share one transport.Dialer.
type Client struct {
	config   *config.ClientConfig
	dialer   transport.Dialer
	guardian *connection.Guardian
	registry *subscriber.Registry
	log      logger.Logger
	metrics  *metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger shared by the client and its components.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the recorder shared by the client and its components.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.metrics = r
		}
	}
}

// New creates a Client for the given connection URL of the form
// redis://[:password@]host[:port][/db]. The remaining settings come from
// config.LoadClientConfig, so STEADYREDIS_* environment variables apply.
//
// The URL is validated here but no connection is opened until the first
// command or fetch.
//
// Example:
//
//	c, err := client.New("redis://localhost:6379/0")
//	if err != nil {
//		return err
//	}
//	defer c.Close()
func New(url string, opts ...Option) (*Client, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, err
	}
	cfg.URL = url
	return NewWithConfig(cfg, opts...)
}

// NewWithConfig creates a Client from an explicit configuration.
//
// Example:
//
//	cfg := config.DefaultClientConfig()
//	cfg.URL = "redis://cache.internal:6380/2"
//	cfg.PollTimeout = 500 * time.Millisecond
//	c, err := client.NewWithConfig(cfg, client.WithLogger(log))
func NewWithConfig(cfg *config.ClientConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("client config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	dialer, err := transport.NewRedisDialer(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, dialer, opts...), nil
}

func newClient(cfg *config.ClientConfig, dialer transport.Dialer, opts ...Option) *Client {
	c := &Client{
		config:  cfg,
		dialer:  dialer,
		log:     logger.NewNoop(),
		metrics: metrics.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.guardian = connection.New(dialer,
		connection.WithLogger(c.log),
		connection.WithMetrics(c.metrics),
		connection.WithProbeTimeout(cfg.ProbeTimeout),
	)
	c.registry = subscriber.New(dialer,
		subscriber.WithLogger(c.log),
		subscriber.WithMetrics(c.metrics),
		subscriber.WithPollTimeout(cfg.PollTimeout),
	)
	return c
}

// IsConnectionOpen reports whether the request connection is held and answers
// a PING. A stale connection is discarded as a side effect.
func (c *Client) IsConnectionOpen(ctx context.Context) bool {
	return c.guardian.IsOpen(ctx)
}

// Quit sends QUIT on the request connection when one is open and, once that
// succeeded or was skipped, clears every subscription. The next command opens
// a new connection.
func (c *Client) Quit(ctx context.Context) error {
	if err := c.guardian.Quit(ctx); err != nil {
		return err
	}
	c.registry.UnsubscribeAll()
	return nil
}

// Close releases the request connection and every transport resource without
// talking to the server. Subscriptions are kept.
func (c *Client) Close() error {
	return errors.Join(c.guardian.Close(), c.dialer.Close())
}

// RunCommand sends an arbitrary command and returns its raw reply: string,
// int64, float64, bool, []any, map[any]any or nil for a nil reply.
//
// Example:
//
//	reply, err := c.RunCommand(ctx, "OBJECT", "ENCODING", "user:1")
func (c *Client) RunCommand(ctx context.Context, name string, args ...any) (any, error) {
	cmd, err := protocol.NewCommand(name, args...)
	if err != nil {
		return nil, err
	}
	return c.guardian.Execute(ctx, cmd)
}

// RunCommandEmpty sends a command whose reply is ignored.
func (c *Client) RunCommandEmpty(ctx context.Context, name string, args ...any) error {
	_, err := c.RunCommand(ctx, name, args...)
	return err
}

// RunCommandString sends a command and converts its reply to a string. A nil
// reply returns protocol.ErrNil.
func (c *Client) RunCommandString(ctx context.Context, name string, args ...any) (string, error) {
	reply, err := c.RunCommand(ctx, name, args...)
	if err != nil {
		return "", err
	}
	return protocol.ToString(reply)
}

func (c *Client) RunCommandInt64(ctx context.Context, name string, args ...any) (int64, error) {
	reply, err := c.RunCommand(ctx, name, args...)
	if err != nil {
		return 0, err
	}
	return protocol.ToInt64(reply)
}

func (c *Client) RunCommandFloat64(ctx context.Context, name string, args ...any) (float64, error) {
	reply, err := c.RunCommand(ctx, name, args...)
	if err != nil {
		return 0, err
	}
	return protocol.ToFloat64(reply)
}

func (c *Client) RunCommandBool(ctx context.Context, name string, args ...any) (bool, error) {
	reply, err := c.RunCommand(ctx, name, args...)
	if err != nil {
		return false, err
	}
	return protocol.ToBool(reply)
}

func (c *Client) RunCommandStrings(ctx context.Context, name string, args ...any) ([]string, error) {
	reply, err := c.RunCommand(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return protocol.ToStringSlice(reply)
}

func (c *Client) RunCommandStringMap(ctx context.Context, name string, args ...any) (map[string]string, error) {
	reply, err := c.RunCommand(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return protocol.ToStringMap(reply)
}

// RunCommandParsed sends a command and converts its string reply with parse.
// A parse failure is reported as protocol.ErrParse.
//
// Example:
//
//	deadline, err := client.RunCommandParsed(ctx, c, func(s string) (time.Time, error) {
//		return time.Parse(time.RFC3339, s)
//	}, "GET", "job:42:deadline")
func RunCommandParsed[T any](ctx context.Context, c *Client, parse func(string) (T, error), name string, args ...any) (T, error) {
	var zero T
	s, err := c.RunCommandString(ctx, name, args...)
	if err != nil {
		return zero, err
	}
	v, err := parse(s)
	if err != nil {
		return zero, &protocol.Error{Kind: protocol.KindDescription, Description: protocol.ErrParse.Description, Cause: err}
	}
	return v, nil
}

// Subscribe registers channel. It takes effect on the next fetch.
func (c *Client) Subscribe(channel string) {
	c.registry.Subscribe(channel)
}

// PSubscribe registers a glob pattern. It takes effect on the next fetch.
func (c *Client) PSubscribe(pattern string) {
	c.registry.PSubscribe(pattern)
}

func (c *Client) Unsubscribe(channel string) {
	c.registry.Unsubscribe(channel)
}

func (c *Client) PUnsubscribe(pattern string) {
	c.registry.PUnsubscribe(pattern)
}

func (c *Client) IsSubscribed(channel string) bool {
	return c.registry.IsSubscribed(channel)
}

func (c *Client) IsPSubscribed(pattern string) bool {
	return c.registry.IsPSubscribed(pattern)
}

func (c *Client) UnsubscribeAll() {
	c.registry.UnsubscribeAll()
}

func (c *Client) HasSubscriptions() bool {
	return c.registry.HasSubscriptions()
}

// FetchMessages resubscribes to every registered channel and pattern and
// delivers messages to onMessage until poll returns Stop or onMessage returns
// true. Read timeouts are absorbed; any other failure is returned and the
// next call starts over with a fresh connection.
func (c *Client) FetchMessages(ctx context.Context, onMessage subscriber.MessageHandler, poll subscriber.InterruptPoller) error {
	return c.registry.FetchMessages(ctx, onMessage, poll)
}

// GetMessage resubscribes and waits up to timeout for one message. A timeout
// is returned as an error matching protocol.ErrTimeout. Zero blocks.
func (c *Client) GetMessage(ctx context.Context, timeout time.Duration) (*protocol.Message, error) {
	return c.registry.GetMessage(ctx, timeout)
}
