package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachemir/steadyredis/pkg/config"
	"github.com/cachemir/steadyredis/pkg/protocol"
)

func newTestDialer(t *testing.T, url string) *RedisDialer {
	t.Helper()
	cfg := config.DefaultClientConfig()
	cfg.URL = url
	cfg.DialTimeout = time.Second
	d, err := NewRedisDialer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNewRedisDialer(t *testing.T) {
	t.Run("Should parse host, port and database", func(t *testing.T) {
		d := newTestDialer(t, "redis://:secret@10.0.0.7:6380/3")
		assert.Equal(t, "10.0.0.7:6380", d.Addr())
		assert.Equal(t, 3, d.DB())
	})

	t.Run("Should reject malformed urls", func(t *testing.T) {
		cfg := config.DefaultClientConfig()
		cfg.URL = "test/bad/url"
		_, err := NewRedisDialer(cfg)
		require.Error(t, err)
		assert.Equal(t, protocol.KindDescription, protocol.KindOf(err))
	})
}

func TestRedisConn(t *testing.T) {
	s := miniredis.RunT(t)
	d := newTestDialer(t, fmt.Sprintf("redis://%s/0", s.Addr()))

	t.Run("Should open, ping and run commands", func(t *testing.T) {
		conn, err := d.Open(t.Context())
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.Ping(t.Context()))

		reply, err := conn.Do(t.Context(), &protocol.Command{Name: "SET", Args: []string{"k", "v"}})
		require.NoError(t, err)
		assert.Equal(t, "OK", reply)

		reply, err = conn.Do(t.Context(), &protocol.Command{Name: "GET", Args: []string{"missing"}})
		require.NoError(t, err)
		assert.Nil(t, reply)
	})

	t.Run("Should classify error replies as protocol errors", func(t *testing.T) {
		conn, err := d.Open(t.Context())
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Do(t.Context(), &protocol.Command{Name: "INCR"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, protocol.ErrProtocol))
	})

	t.Run("Should fail to open against a stopped server", func(t *testing.T) {
		stopped := miniredis.NewMiniRedis()
		require.NoError(t, stopped.Start())
		addr := stopped.Addr()
		stopped.Close()

		dd := newTestDialer(t, fmt.Sprintf("redis://%s/0", addr))
		_, err := dd.Open(t.Context())
		require.Error(t, err)
		assert.True(t, protocol.IsConnectivity(err))
	})

	t.Run("Should report a dial timeout as a connectivity error", func(t *testing.T) {
		cfg := config.DefaultClientConfig()
		cfg.URL = fmt.Sprintf("redis://%s/0", s.Addr())
		cfg.DialTimeout = time.Nanosecond
		dd, err := NewRedisDialer(cfg)
		require.NoError(t, err)
		defer dd.Close()

		_, err = dd.Open(t.Context())
		require.Error(t, err)
		assert.True(t, protocol.IsConnectivity(err))
		assert.False(t, protocol.IsTimeout(err))

		ps, err := dd.OpenPubSub(t.Context())
		require.NoError(t, err)
		defer ps.Close()
		err = ps.Subscribe(t.Context(), "news")
		require.Error(t, err)
		assert.True(t, protocol.IsConnectivity(err))
		assert.False(t, protocol.IsTimeout(err))
	})

	t.Run("Should leave errors of a canceled context unclassified", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := d.Open(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, protocol.KindUnknown, protocol.KindOf(err))
	})

	t.Run("Should fail to open with a wrong password", func(t *testing.T) {
		secured := miniredis.RunT(t)
		secured.RequireAuth("right")

		dd := newTestDialer(t, fmt.Sprintf("redis://:wrong@%s/0", secured.Addr()))
		_, err := dd.Open(t.Context())
		require.Error(t, err)
		assert.True(t, protocol.IsConnectivity(err))
		assert.True(t, errors.Is(err, protocol.ErrProtocol))
	})
}

func TestRedisPubSub(t *testing.T) {
	s := miniredis.RunT(t)
	d := newTestDialer(t, fmt.Sprintf("redis://%s/0", s.Addr()))

	t.Run("Should deliver channel and pattern messages", func(t *testing.T) {
		ps, err := d.OpenPubSub(t.Context())
		require.NoError(t, err)
		defer ps.Close()

		require.NoError(t, ps.Subscribe(t.Context(), "news"))
		require.NoError(t, ps.PSubscribe(t.Context(), "alerts.*"))

		// confirmations are skipped, the read times out cleanly
		_, err = ps.ReceiveMessage(t.Context(), 100*time.Millisecond)
		require.Error(t, err)
		assert.True(t, protocol.IsTimeout(err))

		s.Publish("news", "hello")
		msg, err := ps.ReceiveMessage(t.Context(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, "news", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
		assert.False(t, msg.FromPattern())

		s.Publish("alerts.disk", "full")
		msg, err = ps.ReceiveMessage(t.Context(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, "alerts.disk", msg.Channel)
		assert.Equal(t, "alerts.*", msg.Pattern)
		assert.Equal(t, "full", msg.Payload)
	})

	t.Run("Should end a blocking read when the context is canceled", func(t *testing.T) {
		ps, err := d.OpenPubSub(t.Context())
		require.NoError(t, err)
		defer ps.Close()
		require.NoError(t, ps.Subscribe(t.Context(), "idle"))

		ctx, cancel := context.WithCancel(t.Context())
		timer := time.AfterFunc(100*time.Millisecond, cancel)
		defer timer.Stop()

		done := make(chan error, 1)
		go func() {
			_, err := ps.ReceiveMessage(ctx, 0)
			done <- err
		}()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("read did not return after cancel")
		}
	})
}
