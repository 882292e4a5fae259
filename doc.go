// Package steadyredis is a resilient client for Redis-compatible key-value
// stores that hides transient connection loss from its callers.
//
// SteadyRedis keeps exactly one request connection per client and proves it
// live with a PING before every command, reopening it when the probe fails.
// Pub/sub subscriptions are held in a local registry and replayed onto a
// fresh connection each time messages are fetched, so a restarted server or a
// dropped socket only costs the messages published while nobody listened.
//
// # Architecture Overview
//
//   - Client (pkg/client): the facade used by applications
//   - Guardian (pkg/connection): probes, opens and drops the request connection
//   - Registry (pkg/subscriber): channel and pattern subscriptions, fetch loop
//   - Transport (pkg/transport): go-redis backed connections and pub/sub handles
//   - Protocol (pkg/protocol): commands, reply conversion, messages, error kinds
//   - Configuration (pkg/config): defaults plus STEADYREDIS_* environment variables
//   - Development server (internal/server): in-process server for local use
//
// # Quick Start
//
//	c, err := client.New("redis://localhost:6379/0")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.Set(ctx, "user:123", "john_doe"); err != nil {
//		log.Fatal(err)
//	}
//
//	c.Subscribe("orders")
//	err = c.FetchMessages(ctx, func(m *protocol.Message) bool {
//		fmt.Println(m.Payload)
//		return false
//	}, func() protocol.Interrupts {
//		if shuttingDown() {
//			return protocol.StopInterrupts()
//		}
//		return protocol.PollEvery(time.Second)
//	})
//
// The interrupt function runs before every read, so the caller decides both
// how long each read may block and when the loop ends. A read timeout is not
// an error; it only starts the next iteration.
//
// # Errors
//
// Every failure is a *protocol.Error of one kind: connectivity, protocol,
// timeout, precondition or a fixed description. Use errors.Is with
// protocol.ErrConnectivity, protocol.ErrProtocol, protocol.ErrTimeout or
// protocol.ErrNoSubscriptions to tell them apart.
//
// # Concurrency
//
// A client is meant for one goroutine. Goroutines needing independent command
// or pub/sub traffic should create their own client against the same server.
package steadyredis
