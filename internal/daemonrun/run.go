package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"tripfarm/internal/config"
	"tripfarm/internal/daemon"
	"tripfarm/internal/deps"
	"tripfarm/internal/logging"
	"tripfarm/internal/mailer"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel  string
	LogFormat string
}

// Run starts the TripFarm server and blocks until SIGINT/SIGTERM or ctx is
// cancelled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runCfg := *cfg
	if opts.LogLevel != "" {
		runCfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		runCfg.Logging.Format = opts.LogFormat
	}
	logger, err := logging.NewFromConfig(&runCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, &runCfg)

	d, err := daemon.New(&runCfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check server.bind/server.port or the PORT variable"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("tripfarm server shutting down")
	d.Stop()
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("email_configured", cfg.MailConfigured()),
		logging.String("mail_profile", cfg.Mail.Profile),
		logging.String("mail_host", cfg.Mail.Host),
		logging.Int("mail_port", cfg.Mail.Port),
		logging.String("static_dir", cfg.Server.StaticDir),
	}
	for _, status := range deps.CheckBinaries(deps.ClientRequirements(cfg)) {
		attrs = append(attrs, logging.Bool(strings.ToLower(status.Name)+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, warning := range mailer.CredentialWarnings(cfg.Mail) {
		logging.WarnWithContext(logger, "mail credential warning", "mail_credential_warning",
			logging.String(logging.FieldErrorHint, warning),
		)
	}
}
