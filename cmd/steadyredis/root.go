package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cachemir/steadyredis/pkg/client"
	"github.com/cachemir/steadyredis/pkg/config"
	"github.com/cachemir/steadyredis/pkg/logger"
	"github.com/cachemir/steadyredis/pkg/metrics"
)

type options struct {
	url         string
	logLevel    string
	logJSON     bool
	metricsAddr string
	pollTimeout time.Duration
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	opts     options
	log      logger.Logger
	client   *client.Client
	shutdown func(context.Context) error
}

func addGlobalFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVarP(&o.url, "url", "u", "", "connection url, defaults to STEADYREDIS_URL or "+config.DefaultURL)
	fs.StringVar(&o.logLevel, "log-level", string(logger.WarnLevel), "log level: debug, info, warn, error")
	fs.BoolVar(&o.logJSON, "log-json", false, "emit logs as JSON")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
	fs.DurationVar(&o.pollTimeout, "poll-timeout", 0, "default read timeout of subscription polling (0 keeps the configured value)")
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "steadyredis",
		Short:         "Resilient command and pub/sub client",
		Long:          "A command-line client that reconnects and resubscribes transparently when the server connection is lost.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	addGlobalFlags(root.PersistentFlags(), &a.opts)

	root.AddCommand(
		pingCmd(a),
		runCmd(a),
		publishCmd(a),
		subscribeCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	level, err := logger.ParseLevel(a.opts.logLevel)
	if err != nil {
		return err
	}
	logCfg := logger.DefaultConfig()
	logCfg.Level = level
	logCfg.JSON = a.opts.logJSON
	a.log = logger.NewLogger(logCfg)

	cfg, err := config.LoadClientConfig()
	if err != nil {
		return err
	}
	if a.opts.url != "" {
		cfg.URL = a.opts.url
	}
	if a.opts.pollTimeout > 0 {
		cfg.PollTimeout = a.opts.pollTimeout
	}

	recorder := metrics.Nop()
	if a.opts.metricsAddr != "" {
		endpoint, err := startMetricsEndpoint(a.opts.metricsAddr, a.log)
		if err != nil {
			return err
		}
		recorder = endpoint.recorder
		a.shutdown = endpoint.Shutdown
	}

	c, err := client.NewWithConfig(cfg, client.WithLogger(a.log), client.WithMetrics(recorder))
	if err != nil {
		return errors.Join(err, a.teardown(ctx))
	}
	a.client = c
	a.log.Debug("Client ready", "poll_timeout", cfg.PollTimeout)
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
		a.client = nil
	}
	if a.shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop metrics endpoint: %w", err))
		}
		a.shutdown = nil
	}
	return errors.Join(errs...)
}
