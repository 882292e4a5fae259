package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/cachemir/steadyredis/pkg/logger"
	"github.com/cachemir/steadyredis/pkg/metrics"
)

// metricsEndpoint serves the client counters in Prometheus format on /metrics.
type metricsEndpoint struct {
	recorder *metrics.Recorder
	provider *sdkmetric.MeterProvider
	server   *http.Server
}

func startMetricsEndpoint(addr string, log logger.Logger) (*metricsEndpoint, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	recorder, err := metrics.New(provider.Meter("steadyredis"))
	if err != nil {
		return nil, errors.Join(err, provider.Shutdown(context.Background()))
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("failed to listen on %s: %w", addr, err),
			provider.Shutdown(context.Background()),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics endpoint stopped", "error", err)
		}
	}()
	log.Info("Serving metrics", "addr", listener.Addr().String(), "path", "/metrics")

	return &metricsEndpoint{recorder: recorder, provider: provider, server: server}, nil
}

// Shutdown stops the HTTP server and flushes the meter provider.
func (m *metricsEndpoint) Shutdown(ctx context.Context) error {
	return errors.Join(m.server.Shutdown(ctx), m.provider.Shutdown(ctx))
}
