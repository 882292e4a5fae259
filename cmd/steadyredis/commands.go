package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/cachemir/steadyredis/pkg/protocol"
)

func pingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PONG")
			return nil
		},
	}
}

func runCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run [COMMAND [ARG...]]",
		Short: "Run one command, or read commands from stdin line by line",
		Example: `  steadyredis run SET greeting "hello world"
  steadyredis run 'HSET user:1 name "John Doe"'
  printf 'INCR n\nGET n\n' | steadyredis run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return runLines(cmd.Context(), a, cmd.InOrStdin(), out)
			}

			var command *protocol.Command
			if len(args) == 1 {
				parsed, err := protocol.ParseTextCommand(args[0])
				if err != nil {
					return err
				}
				command = parsed
			} else {
				command = &protocol.Command{Name: strings.ToUpper(args[0]), Args: args[1:]}
			}

			reply, err := a.client.RunCommand(cmd.Context(), command.Name, stringArgs(command.Args)...)
			if err != nil {
				return err
			}
			writeReply(out, reply, "")
			return nil
		},
	}
}

// runLines executes one command per input line. Failures are printed and the
// next line is still executed, each one reconnecting as needed.
func runLines(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		command, err := protocol.ParseTextCommand(line)
		if err != nil {
			fmt.Fprintf(out, "(error) %v\n", err)
			continue
		}
		reply, err := a.client.RunCommand(ctx, command.Name, stringArgs(command.Args)...)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "(error) %v\n", err)
			continue
		}
		writeReply(out, reply, "")
	}
	return scanner.Err()
}

func publishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish CHANNEL MESSAGE",
		Short: "Publish a message and print the number of receivers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			receivers, err := a.client.Publish(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(integer) %d\n", receivers)
			return nil
		},
	}
}

type subscribeOptions struct {
	patterns     []string
	pollInterval time.Duration
	maxMessages  int
	retries      uint64
	backoff      time.Duration
}

func subscribeCmd(a *app) *cobra.Command {
	o := &subscribeOptions{}
	cmd := &cobra.Command{
		Use:   "subscribe [CHANNEL...]",
		Short: "Print messages published on channels and patterns",
		Long: `Subscribe to channels and patterns and print every message received.

When the connection drops, subscriptions are replayed on a new connection
after an exponential backoff. Messages published while reconnecting are lost.`,
		Example: `  steadyredis subscribe orders
  steadyredis subscribe -p 'alerts.*' --max-messages 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, channel := range args {
				a.client.Subscribe(channel)
			}
			for _, pattern := range o.patterns {
				a.client.PSubscribe(pattern)
			}
			if !a.client.HasSubscriptions() {
				return errors.New("at least one channel or --pattern is required")
			}
			return subscribeLoop(cmd.Context(), a, o, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringSliceVarP(&o.patterns, "pattern", "p", nil, "glob pattern to subscribe to (repeatable)")
	fs.DurationVar(&o.pollInterval, "poll-interval", time.Second, "maximum wait for each read, 0 blocks until a message arrives or the command is interrupted")
	fs.IntVarP(&o.maxMessages, "max-messages", "n", 0, "exit after this many messages (0 runs until interrupted)")
	fs.Uint64Var(&o.retries, "retries", 10, "reconnection attempts before giving up")
	fs.DurationVar(&o.backoff, "backoff", 200*time.Millisecond, "initial delay between reconnection attempts")
	return cmd
}

func subscribeLoop(ctx context.Context, a *app, o *subscribeOptions, out io.Writer) error {
	received := 0
	handler := func(m *protocol.Message) bool {
		received++
		if m.FromPattern() {
			fmt.Fprintf(out, "%s\t%s\t%s\n", m.Pattern, m.Channel, m.Payload)
		} else {
			fmt.Fprintf(out, "%s\t%s\n", m.Channel, m.Payload)
		}
		return o.maxMessages > 0 && received >= o.maxMessages
	}
	poll := func() protocol.Interrupts {
		if ctx.Err() != nil {
			return protocol.StopInterrupts()
		}
		return protocol.PollEvery(o.pollInterval)
	}

	backoff := retry.WithMaxRetries(o.retries, retry.WithCappedDuration(5*time.Second, retry.NewExponential(o.backoff)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := a.client.FetchMessages(ctx, handler, poll)
		if err != nil && protocol.IsConnectivity(err) {
			a.log.Warn("Subscription connection lost, resubscribing", "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func stringArgs(args []string) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		out[i] = arg
	}
	return out
}

// writeReply prints a raw reply in the style of interactive Redis clients.
func writeReply(w io.Writer, reply any, indent string) {
	switch v := reply.(type) {
	case nil:
		fmt.Fprintln(w, indent+"(nil)")
	case string:
		fmt.Fprintf(w, "%s%q\n", indent, v)
	case int64:
		fmt.Fprintf(w, "%s(integer) %d\n", indent, v)
	case float64:
		fmt.Fprintf(w, "%s(double) %v\n", indent, v)
	case bool:
		fmt.Fprintf(w, "%s(boolean) %t\n", indent, v)
	case []any:
		if len(v) == 0 {
			fmt.Fprintln(w, indent+"(empty array)")
			return
		}
		for i, item := range v {
			fmt.Fprintf(w, "%s%d) ", indent, i+1)
			writeReply(w, item, "")
		}
	case map[any]any:
		keys := make([]string, 0, len(v))
		values := make(map[string]any, len(v))
		for k, val := range v {
			key := fmt.Sprint(k)
			keys = append(keys, key)
			values[key] = val
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "%s%s => ", indent, key)
			writeReply(w, values[key], "")
		}
	default:
		fmt.Fprintf(w, "%s%v\n", indent, v)
	}
}
