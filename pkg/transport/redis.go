package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cachemir/steadyredis/pkg/config"
	"github.com/cachemir/steadyredis/pkg/protocol"
)

// RedisDialer opens connections through go-redis. Request connections are
// sticky *redis.Conn values over a private client, and every pub/sub handle
// owns a dedicated connection of the shared client.
type RedisDialer struct {
	client *redis.Client
	opts   *redis.Options
}

// NewRedisDialer parses cfg.URL and prepares a dialer. No connection is
// opened until Open or a pub/sub subscription is requested.
func NewRedisDialer(cfg *config.ClientConfig) (*RedisDialer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("client config is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &protocol.Error{
			Kind:        protocol.KindDescription,
			Description: "invalid connection url",
			Cause:       err,
		}
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.Protocol = cfg.Protocol
	opts.ClientName = cfg.ClientName
	// Recovery is driven by the guardian and the registry, one attempt per
	// external call. go-redis must not retry underneath them.
	opts.MaxRetries = -1

	return &RedisDialer{client: redis.NewClient(opts), opts: opts}, nil
}

// Addr returns the server address parsed from the URL.
func (d *RedisDialer) Addr() string {
	return d.opts.Addr
}

// DB returns the database index parsed from the URL.
func (d *RedisDialer) DB() int {
	return d.opts.DB
}

// Open dials a new request connection and runs the handshake (AUTH, SELECT,
// HELLO) so that failures surface as connectivity errors. Each connection
// gets its own single-connection pool, closing it always closes the socket.
func (d *RedisDialer) Open(ctx context.Context) (Conn, error) {
	opts := *d.opts
	opts.PoolSize = 1
	opts.MinIdleConns = 0
	client := redis.NewClient(&opts)

	cn := client.Conn()
	if err := cn.Ping(ctx).Err(); err != nil {
		_ = cn.Close()
		_ = client.Close()
		var rerr redis.Error
		if ctx.Err() == nil && errors.As(err, &rerr) {
			// handshake rejected (bad password, bad db index)
			return nil, protocol.Connectivity(protocol.Protocol(err))
		}
		return nil, classifyDial(ctx, err)
	}
	return &redisConn{client: client, cn: cn}, nil
}

// OpenPubSub returns an empty pub/sub handle. Its connection is dialed by the
// first Subscribe or PSubscribe call.
func (d *RedisDialer) OpenPubSub(ctx context.Context) (PubSub, error) {
	return &redisPubSub{ps: d.client.Subscribe(ctx)}, nil
}

// Close releases every connection the dialer still tracks.
func (d *RedisDialer) Close() error {
	return d.client.Close()
}

type redisConn struct {
	client *redis.Client
	cn     *redis.Conn
}

func (c *redisConn) Ping(ctx context.Context) error {
	return classify(ctx, c.cn.Ping(ctx).Err())
}

func (c *redisConn) Do(ctx context.Context, cmd *protocol.Command) (any, error) {
	reply, err := c.cn.Do(ctx, cmd.Interface()...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, err)
	}
	return reply, nil
}

func (c *redisConn) Close() error {
	return errors.Join(c.cn.Close(), c.client.Close())
}

type redisPubSub struct {
	ps *redis.PubSub
}

func (p *redisPubSub) Subscribe(ctx context.Context, channel string) error {
	return classifyDial(ctx, p.ps.Subscribe(ctx, channel))
}

func (p *redisPubSub) PSubscribe(ctx context.Context, pattern string) error {
	return classifyDial(ctx, p.ps.PSubscribe(ctx, pattern))
}

// ReceiveMessage skips subscription confirmations and pongs. The timeout
// covers the whole call, not each skipped reply. A read that would block past
// the end of ctx is cut short by closing the handle.
func (p *redisPubSub) ReceiveMessage(ctx context.Context, timeout time.Duration) (*protocol.Message, error) {
	stop := context.AfterFunc(ctx, func() { _ = p.ps.Close() })
	defer stop()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		wait := timeout
		if timeout > 0 {
			wait = time.Until(deadline)
			if wait <= 0 {
				return nil, protocol.Timeout(nil)
			}
		}

		reply, err := p.ps.ReceiveTimeout(ctx, wait)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, classify(ctx, err)
		}

		switch m := reply.(type) {
		case *redis.Message:
			return &protocol.Message{Channel: m.Channel, Pattern: m.Pattern, Payload: m.Payload}, nil
		case *redis.Subscription, *redis.Pong:
			continue
		default:
			continue
		}
	}
}

func (p *redisPubSub) Close() error {
	return p.ps.Close()
}

// classify maps a failure on an established connection: error replies are
// protocol errors, deadline expiries are timeouts and the rest is lost
// connectivity. Once ctx is done the error is returned as it is, so the
// caller sees its own cancellation.
func classify(ctx context.Context, err error) error {
	return classifyAs(ctx, err, protocol.Timeout)
}

// classifyDial is classify for calls that may dial. A deadline expiry there
// means the server could not be reached in time.
func classifyDial(ctx context.Context, err error) error {
	return classifyAs(ctx, err, protocol.Connectivity)
}

func classifyAs(ctx context.Context, err error, onTimeout func(error) error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return protocol.Protocol(err)
	}
	if protocol.IsTimeout(err) {
		return onTimeout(err)
	}
	return protocol.Connectivity(err)
}
