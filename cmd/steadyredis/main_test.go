package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(ctx context.Context, t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestCLI(t *testing.T) {
	s := miniredis.RunT(t)
	url := fmt.Sprintf("redis://%s/0", s.Addr())

	t.Run("Should ping the server", func(t *testing.T) {
		out, err := execute(t.Context(), t, "", "ping", "--url", url)
		require.NoError(t, err)
		assert.Equal(t, "PONG\n", out)
	})

	t.Run("Should run a single command", func(t *testing.T) {
		_, err := execute(t.Context(), t, "", "run", "--url", url, "SET", "greeting", "hello world")
		require.NoError(t, err)

		out, err := execute(t.Context(), t, "", "run", "--url", url, "get greeting")
		require.NoError(t, err)
		assert.Equal(t, "\"hello world\"\n", out)
	})

	t.Run("Should run commands from stdin and keep going after errors", func(t *testing.T) {
		stdin := "INCR n\n# comment\nINCR n\nINCR\nLRANGE empty 0 -1\nGET missing\n"
		out, err := execute(t.Context(), t, stdin, "run", "--url", url)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "(integer) 1", lines[0])
		assert.Equal(t, "(integer) 2", lines[1])
		assert.True(t, strings.HasPrefix(lines[2], "(error) "))
		assert.Equal(t, "(empty array)", lines[3])
		assert.Equal(t, "(nil)", lines[4])
	})

	t.Run("Should publish", func(t *testing.T) {
		out, err := execute(t.Context(), t, "", "publish", "--url", url, "news", "hi")
		require.NoError(t, err)
		assert.Equal(t, "(integer) 0\n", out)
	})

	t.Run("Should print subscribed messages until the limit", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
		defer cancel()

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(20 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					s.Publish("alerts.disk", "full")
				}
			}
		}()

		out, err := execute(ctx, t, "", "subscribe", "--url", url,
			"-p", "alerts.*", "--poll-interval", "50ms", "--max-messages", "2")
		require.NoError(t, err)
		assert.Equal(t, "alerts.*\talerts.disk\tfull\nalerts.*\talerts.disk\tfull\n", out)
	})

	t.Run("Should exit cleanly when interrupted during a blocking read", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		timer := time.AfterFunc(200*time.Millisecond, cancel)
		defer timer.Stop()

		start := time.Now()
		out, err := execute(ctx, t, "", "subscribe", "--url", url, "quiet", "--poll-interval", "0")
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("Should require a subscription", func(t *testing.T) {
		_, err := execute(t.Context(), t, "", "subscribe", "--url", url)
		assert.ErrorContains(t, err, "at least one channel")
	})

	t.Run("Should reject an invalid log level", func(t *testing.T) {
		_, err := execute(t.Context(), t, "", "ping", "--url", url, "--log-level", "loud")
		assert.Error(t, err)
	})

	t.Run("Should fail when the server is unreachable", func(t *testing.T) {
		stopped := miniredis.NewMiniRedis()
		require.NoError(t, stopped.Start())
		addr := stopped.Addr()
		stopped.Close()

		_, err := execute(t.Context(), t, "", "ping", "--url", "redis://"+addr+"/0")
		assert.Error(t, err)
	})
}
