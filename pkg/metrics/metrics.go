// Package metrics instruments connection and subscription resiliency with
// OpenTelemetry counters. A nil meter yields a recorder that does nothing.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const subsystem = "steadyredis"

const (
	SourceChannel = "channel"
	SourcePattern = "pattern"
)

// Recorder holds the counters shared by the guardian and the registry.
type Recorder struct {
	connectionOpens   metric.Int64Counter
	connectionErrors  metric.Int64Counter
	probeFailures     metric.Int64Counter
	commandErrors     metric.Int64Counter
	resubscriptions   metric.Int64Counter
	subscribeRequests metric.Int64Counter
	messagesReceived  metric.Int64Counter
	pollTimeouts      metric.Int64Counter
}

// New creates a Recorder on the given meter.
func New(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		return Nop(), nil
	}
	r := &Recorder{}
	counterDefs := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&r.connectionOpens, "connection_opens_total", "Request connections opened"},
		{&r.connectionErrors, "connection_errors_total", "Failed attempts to open a request connection"},
		{&r.probeFailures, "probe_failures_total", "Liveness probes that found a stale connection"},
		{&r.commandErrors, "command_errors_total", "Command failures by error kind"},
		{&r.resubscriptions, "resubscriptions_total", "Pub/sub handles rebuilt by replaying the registry"},
		{&r.subscribeRequests, "subscribe_requests_total", "SUBSCRIBE and PSUBSCRIBE requests issued during replay"},
		{&r.messagesReceived, "messages_received_total", "Pub/sub messages delivered to a handler"},
		{&r.pollTimeouts, "poll_timeouts_total", "Fetch loop iterations that ended without a message"},
	}
	for _, def := range counterDefs {
		counter, err := meter.Int64Counter(
			subsystem+"_"+def.name,
			metric.WithDescription(def.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", def.name, err)
		}
		*def.target = counter
	}
	return r, nil
}

// Nop returns a Recorder backed by the OpenTelemetry no-op meter.
func Nop() *Recorder {
	r, err := New(noop.NewMeterProvider().Meter(subsystem))
	if err != nil {
		// the no-op meter never fails
		panic(err)
	}
	return r
}

func (r *Recorder) ConnectionOpened(ctx context.Context) {
	r.connectionOpens.Add(ctx, 1)
}

func (r *Recorder) ConnectionFailed(ctx context.Context) {
	r.connectionErrors.Add(ctx, 1)
}

func (r *Recorder) ProbeFailed(ctx context.Context) {
	r.probeFailures.Add(ctx, 1)
}

func (r *Recorder) CommandFailed(ctx context.Context, kind string) {
	r.commandErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Resubscribed records one replay of channels and patterns onto a fresh handle.
func (r *Recorder) Resubscribed(ctx context.Context, channels, patterns int) {
	r.resubscriptions.Add(ctx, 1)
	if channels > 0 {
		r.subscribeRequests.Add(ctx, int64(channels), metric.WithAttributes(attribute.String("source", SourceChannel)))
	}
	if patterns > 0 {
		r.subscribeRequests.Add(ctx, int64(patterns), metric.WithAttributes(attribute.String("source", SourcePattern)))
	}
}

func (r *Recorder) MessageReceived(ctx context.Context, fromPattern bool) {
	source := SourceChannel
	if fromPattern {
		source = SourcePattern
	}
	r.messagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (r *Recorder) PollTimedOut(ctx context.Context) {
	r.pollTimeouts.Add(ctx, 1)
}
