// Package transport is the boundary between SteadyRedis and the wire protocol.
//
// The guardian and the registry only see the Dialer, Conn and PubSub
// interfaces. RedisDialer implements them on top of go-redis; tests replace
// it with in-memory fakes.
//
// Errors returned by implementations are already classified with the
// protocol error kinds: server error replies as protocol errors, read
// deadlines as timeouts and everything else as connectivity errors.
package transport

import (
	"context"
	"time"

	"github.com/cachemir/steadyredis/pkg/protocol"
)

// Conn is a single request connection.
type Conn interface {
	// Ping performs the liveness round-trip.
	Ping(ctx context.Context) error
	// Do sends one command and returns its raw reply. A nil reply is returned
	// as (nil, nil).
	Do(ctx context.Context, cmd *protocol.Command) (any, error)
	Close() error
}

// PubSub is a subscription handle bound to its own connection.
type PubSub interface {
	Subscribe(ctx context.Context, channel string) error
	PSubscribe(ctx context.Context, pattern string) error
	// ReceiveMessage waits for the next published message. A zero timeout
	// blocks until a message or a connection error arrives.
	ReceiveMessage(ctx context.Context, timeout time.Duration) (*protocol.Message, error)
	Close() error
}

// Dialer opens request connections and pub/sub handles against one server.
type Dialer interface {
	Open(ctx context.Context) (Conn, error)
	OpenPubSub(ctx context.Context) (PubSub, error)
	Close() error
}
