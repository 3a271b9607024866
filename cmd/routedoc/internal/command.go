package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vitalvas/routedoc/mux"
	"github.com/vitalvas/routedoc/muxhandlers"
	"github.com/vitalvas/routedoc/openapi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
const EnvPrefix = "ROUTEDOC_"

type options struct {
	configFile string
	addr       string
	logLevel   string
	format     string
}

// Command returns the routedoc root command.
func Command() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		SilenceUsage:  true,
		SilenceErrors: true,
		Use:           "routedoc",
		Short:         "OpenAPI documentation inferred from live routes",
		Long: `routedoc runs a demo users API with the documentation engine installed.

The OpenAPI document is generated from the registered routes and refined by
the response codes observed in live traffic.
`,
		Args: cobra.NoArgs,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(serveCommand(opts), dumpCommand(opts))
	return cmd
}

func serveCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo API, its documentation and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	return cmd
}

func dumpCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the generated OpenAPI document of the demo API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return dump(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "json", "output format (json, yaml)")
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// app is the demo service: a router carrying the users API, the
// documentation engine and the request middleware.
type app struct {
	router   *mux.Router
	spec     *openapi.Spec
	registry *prometheus.Registry
}

func newApp(cfg openapi.Config, logger *zap.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := mux.NewRouter()
	spec, err := openapi.NewSpec(r, cfg, openapi.WithLogger(logger), openapi.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	r.Use(
		muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{}),
		muxhandlers.AccessLogMiddleware(logger),
		spec.ObserveMiddleware(),
		muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{Logger: logger}),
	)

	registerDemo(r, spec)
	spec.Handle(r)

	return &app{router: r, spec: spec, registry: reg}, nil
}

func serve(ctx context.Context, opts *options) error {
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := openapi.LoadConfig(opts.configFile, EnvPrefix)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	// Metrics stay off the documented router.
	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	root.Handle("/", a.router)

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", opts.addr),
			zap.String("openapi", cfg.OpenAPIPath),
			zap.String("ui", cfg.UIPath),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func dump(w io.Writer, opts *options) error {
	cfg, err := openapi.LoadConfig(opts.configFile, EnvPrefix)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, zap.NewNop())
	if err != nil {
		return err
	}

	var data []byte
	switch opts.format {
	case "json":
		data, err = a.spec.JSON()
	case "yaml", "yml":
		data, err = a.spec.YAML()
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return err
	}
	if opts.format == "json" {
		_, err = io.WriteString(w, "\n")
	}
	return err
}
