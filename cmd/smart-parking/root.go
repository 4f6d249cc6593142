package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"smart-parking/internal/config"
	"smart-parking/internal/logging"
	"smart-parking/internal/metrics"
	"smart-parking/internal/parking"
	"smart-parking/internal/server"
)

var (
	cfgPath string
	mode    string
	port    string
)

var rootCmd = &cobra.Command{
	Use:           "smart-parking",
	Short:         "Parking slot registry with covered and EV-charging allocation",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "server", "mode to run: cli, server, or both")
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "port for the HTTP server (overrides config)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// app holds everything with process lifetime.
type app struct {
	cfg       *config.Config
	telemetry *parking.TelemetryProvider
	registry  *parking.InstrumentedRegistry
	gatherer  prometheus.Gatherer
}

func run(cmd *cobra.Command, args []string) error {
	switch mode {
	case "cli", "server", "both":
	default:
		return fmt.Errorf("invalid mode %q: must be cli, server, or both", mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdownTelemetry()

	switch mode {
	case "cli":
		a.runCLI(ctx)
		return nil
	case "server":
		return a.runServer(ctx)
	default:
		return a.runBoth(ctx)
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Pretty); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	telemetry, err := parking.NewTelemetryProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	registry := parking.NewRegistry()
	for _, s := range cfg.Slots {
		if _, err := registry.Add(s.SlotNo, s.IsCovered, s.IsEVCharging); err != nil {
			return nil, fmt.Errorf("seed slot %d: %w", s.SlotNo, err)
		}
	}
	logging.Logger().Info().Int("slots", len(cfg.Slots)).Msg("registry seeded")

	instrumented, err := parking.NewInstrumentedRegistry(registry, telemetry)
	if err != nil {
		return nil, fmt.Errorf("instrument registry: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	if _, err := metrics.Register(promRegistry, registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &app{
		cfg:       cfg,
		telemetry: telemetry,
		registry:  instrumented,
		gatherer:  promRegistry,
	}, nil
}

func (a *app) newServer() *server.Server {
	handler := server.NewHandler(a.registry, a.cfg.Telemetry.ServiceName)
	return server.NewServer(a.cfg.Server, handler, a.gatherer)
}

// runCLI returns when stdin closes or ctx is cancelled; a shell blocked on a
// read is left to die with the process.
func (a *app) runCLI(ctx context.Context) {
	shellDone := make(chan struct{})
	go func() {
		parking.NewShell(a.registry, a.telemetry, os.Stdin, os.Stdout).Run(ctx)
		close(shellDone)
	}()

	select {
	case <-shellDone:
	case <-ctx.Done():
	}
}

func (a *app) runServer(ctx context.Context) error {
	srv := a.newServer()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	select {
	case err := <-serverDone:
		return ignoreClosed(err)
	case <-ctx.Done():
		logging.Logger().Info().Msg("received shutdown signal")
	}

	return a.stopServer(srv, serverDone)
}

func (a *app) runBoth(ctx context.Context) error {
	srv := a.newServer()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		a.runCLI(ctx)
		close(cliDone)
	}()

	select {
	case err := <-serverDone:
		return ignoreClosed(err)
	case <-cliDone:
		logging.Logger().Info().Msg("CLI exited")
	case <-ctx.Done():
		logging.Logger().Info().Msg("received shutdown signal")
	}

	return a.stopServer(srv, serverDone)
}

func (a *app) stopServer(srv *server.Server, serverDone <-chan error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return ignoreClosed(<-serverDone)
}

func (a *app) shutdownTelemetry() {
	logging.Logger().Info().Msg("shutting down telemetry")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.telemetry.Shutdown(ctx); err != nil {
		logging.Logger().Error().Err(err).Msg("telemetry shutdown")
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
