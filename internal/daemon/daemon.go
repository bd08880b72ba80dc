package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"tripfarm/internal/api"
	"tripfarm/internal/archive"
	"tripfarm/internal/config"
	"tripfarm/internal/deps"
	"tripfarm/internal/intake"
	"tripfarm/internal/logging"
	"tripfarm/internal/mailer"
	"tripfarm/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Daemon owns the HTTP listener and the intake pipeline behind it.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	app     *fiber.App
	metrics *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener
	served   chan struct{}
	stopped  chan struct{}
	running  atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	Address         string
	EmailConfigured bool
	MailProfile     string
	StaticDir       string
	Dependencies    []deps.Status
}

type options struct {
	sender mailer.Sender
	now    func() time.Time
}

// Option customizes daemon construction.
type Option func(*options)

// WithSender replaces the SMTP transport built from configuration.
func WithSender(sender mailer.Sender) Option {
	return func(o *options) { o.sender = sender }
}

// WithClock overrides the timestamp applied to received submissions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New wires the archive builder, mail transport, metrics and HTTP app.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("archive timezone: %w", err)
	}
	sender := o.sender
	if sender == nil {
		sender = mailer.NewSender(cfg, logger)
	}

	m := metrics.New()
	svc := intake.NewService(
		archive.NewBuilder(loc),
		sender,
		mailer.NewComposer(cfg.Intake.Recipient, loc),
		m,
		logger,
	)
	app, err := api.New(api.Options{
		Config:  cfg,
		Intake:  svc,
		Metrics: m,
		Logger:  logger,
		Now:     o.now,
	})
	if err != nil {
		return nil, fmt.Errorf("build http app: %w", err)
	}

	return &Daemon{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "daemon"),
		app:     app,
		metrics: m,
	}, nil
}

// Start binds the listener and serves requests until ctx is cancelled or
// Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	listener, err := net.Listen("tcp", d.cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.cfg.ListenAddress(), err)
	}
	d.listener = listener
	d.served = make(chan struct{})
	d.stopped = make(chan struct{})
	d.running.Store(true)

	go func(done chan struct{}) {
		defer close(done)
		if err := d.app.Listener(listener); err != nil && !errors.Is(err, net.ErrClosed) {
			d.logger.Error("http server error", logging.Error(err))
		}
	}(d.served)

	go func(stopped <-chan struct{}) {
		select {
		case <-ctx.Done():
			d.Stop()
		case <-stopped:
		}
	}(d.stopped)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "server_started"),
		logging.String("address", listener.Addr().String()),
		logging.Bool("email_configured", d.cfg.MailConfigured()),
		logging.String("mail_profile", d.cfg.Mail.Profile),
		logging.String("recipient", d.cfg.Intake.Recipient),
	}
	d.logger.Info("tripfarm server listening", logging.Args(attrs...)...)
	if !d.cfg.MailConfigured() {
		logging.WarnWithContext(d.logger, "mail delivery not configured", "mail_unconfigured",
			logging.String(logging.FieldErrorHint, "set EMAIL_USER/EMAIL_PASS or SMTP2GO_USER/SMTP2GO_PASS"),
			logging.String(logging.FieldImpact, "submissions will fail with 500 until credentials are set"),
		)
	}
	return nil
}

// Stop shuts the HTTP server down, waiting for in-flight requests up to a
// fixed timeout.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if err := d.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		d.logger.Warn("http shutdown incomplete", logging.Error(err))
	}
	// The server may not have registered the listener yet; closing it here
	// makes Listener return either way.
	if d.listener != nil {
		if err := d.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			d.logger.Debug("close listener", logging.Error(err))
		}
	}
	if d.stopped != nil {
		close(d.stopped)
		d.stopped = nil
	}
	if d.served != nil {
		<-d.served
		d.served = nil
	}
	d.listener = nil
	d.running.Store(false)
	d.logger.Info("tripfarm server stopped")
}

// Addr returns the bound listener address, or "" when stopped.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Status reports runtime state and optional client dependencies.
func (d *Daemon) Status() Status {
	return Status{
		Running:         d.running.Load(),
		Address:         d.Addr(),
		EmailConfigured: d.cfg.MailConfigured(),
		MailProfile:     d.cfg.Mail.Profile,
		StaticDir:       d.cfg.Server.StaticDir,
		Dependencies:    deps.CheckBinaries(deps.ClientRequirements(d.cfg)),
	}
}

// Metrics exposes the registry backing /metrics.
func (d *Daemon) Metrics() *metrics.Metrics {
	return d.metrics
}
