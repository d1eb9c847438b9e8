package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/api"
	"github.com/telekom/mailguard/pkg/cli"
	"github.com/telekom/mailguard/pkg/config"
	"github.com/telekom/mailguard/pkg/system"
	"github.com/telekom/mailguard/pkg/telemetry"
	"github.com/telekom/mailguard/pkg/version"
)

func NewServeCommand() *cobra.Command {
	flags := &cli.Config{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mail dispatch service and its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			zl, err := system.NewLogger(flags.Debug)
			if err != nil {
				return err
			}
			defer func() { _ = zl.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, flags, zl)
		},
	}
	flags.BindFlags(cmd.Flags())
	return cmd
}

// applyOverrides copies non-empty flag values over the file configuration.
func applyOverrides(cfg *config.Config, flags *cli.Config) {
	if flags.ListenAddress != "" {
		cfg.Server.ListenAddress = flags.ListenAddress
	}
	if flags.Environment != "" {
		cfg.Environment = flags.Environment
	}
	if flags.SweepInterval != "" {
		cfg.Quota.SweepInterval = flags.SweepInterval
	}
}

// apiControllers lists the controllers mounted by serve.
var apiControllers = func(log *zap.SugaredLogger, p *pipeline) []api.APIController {
	return []api.APIController{
		api.NewQuotaController(log, p.guard),
		api.NewRecipientController(log, p.validator),
		api.NewMessageController(log, p.queue),
	}
}

// runServe blocks until ctx is done or the API server fails, then shuts
// everything down within the configured shutdown timeout.
func runServe(ctx context.Context, flags *cli.Config, zl *zap.Logger) error {
	log := zl.Sugar()
	log.With("version", version.Version).Info("Starting mailguard")
	flags.Print(log)

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(&cfg, flags)
	if flags.Debug {
		log.Debugf("%#v", cfg)
	}

	_, shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, version.Version, log)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	p := newPipeline(cfg, flags.DisableEmail, log)
	server := api.NewServer(zl, cfg.Server, flags.Debug)
	if err := server.RegisterAll(apiControllers(log, p)); err != nil {
		_ = shutdownTracing(context.WithoutCancel(ctx))
		return fmt.Errorf("registering API controllers: %w", err)
	}

	p.guard.Start()
	p.queue.Start()

	listenErr := make(chan error, 1)
	go func() { listenErr <- server.Listen() }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-listenErr:
		if runErr != nil {
			log.Errorw("API server failed", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.GetShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("API server shutdown incomplete", "error", err)
	}
	if err := p.queue.Stop(shutdownCtx); err != nil {
		log.Warnw("Mail queue shutdown incomplete", "error", err)
	}
	p.guard.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnw("Tracing shutdown incomplete", "error", err)
	}
	log.Info("mailguard stopped")
	return runErr
}
