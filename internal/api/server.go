package api

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"tripfarm/internal/config"
	"tripfarm/internal/form"
	"tripfarm/internal/intake"
	"tripfarm/internal/logging"
	"tripfarm/internal/metrics"
)

//go:embed web
var webAssets embed.FS

// Processor runs a decoded submission through validation, archiving and
// mail dispatch.
type Processor interface {
	Process(ctx context.Context, sub *form.Submission) (*intake.Receipt, error)
}

// Options configures the HTTP application.
type Options struct {
	Config  *config.Config
	Intake  Processor
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// Now stamps received submissions. Defaults to time.Now.
	Now func() time.Time
}

type handler struct {
	cfg     *config.Config
	intake  Processor
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// New builds the fiber application serving the intake API, metrics and the
// static form UI.
func New(opts Options) (*fiber.App, error) {
	if opts.Config == nil {
		return nil, errors.New("api: config is required")
	}
	if opts.Intake == nil {
		return nil, errors.New("api: intake processor is required")
	}
	h := &handler{
		cfg:     opts.Config,
		intake:  opts.Intake,
		metrics: opts.Metrics,
		logger:  logging.NewComponentLogger(opts.Logger, "api"),
		now:     opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	cfg := opts.Config
	app := fiber.New(fiber.Config{
		AppName:               "tripfarm",
		BodyLimit:             cfg.BodyLimitBytes(),
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:           time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.Server.AllowOrigins}))
	app.Use(h.observe)

	app.Get(PathHealth, h.health)
	app.Get(PathInfo, h.info)
	app.Post(PathSave, h.save)
	if h.metrics != nil {
		app.Get(PathMetric, adaptor.HTTPHandler(h.metrics.Handler()))
	}
	app.All("/api/*", func(*fiber.Ctx) error { return fiber.ErrNotFound })

	root, err := staticRoot(cfg.Server.StaticDir)
	if err != nil {
		return nil, err
	}
	app.Use(filesystem.New(filesystem.Config{
		Root:         root,
		Index:        "index.html",
		NotFoundFile: "index.html",
	}))

	return app, nil
}

// staticRoot serves the configured directory, or the embedded UI when none
// is set.
func staticRoot(dir string) (http.FileSystem, error) {
	if strings.TrimSpace(dir) != "" {
		return http.Dir(dir), nil
	}
	sub, err := fs.Sub(webAssets, "web")
	if err != nil {
		return nil, err
	}
	return http.FS(sub), nil
}

// observe records request counts and latency per matched route.
func (h *handler) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if h.metrics == nil {
		return err
	}
	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	route := c.Route().Path
	method := c.Method()
	h.metrics.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	h.metrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	return err
}

// handleError renders framework errors (unknown routes, oversized bodies,
// recovered panics) in the same envelope as handler failures.
func (h *handler) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	message := MessageInternal
	switch {
	case code == fiber.StatusNotFound:
		message = MessageNotFound
	case code == fiber.StatusRequestEntityTooLarge:
		message = MessageBodyTooBig
	case code >= 400 && code < 500:
		message = MessageBadRequest
	default:
		h.logger.Error("unhandled request error",
			logging.String("path", c.Path()),
			logging.String("request_id", requestID(c)),
			logging.Error(err),
		)
	}
	return c.Status(code).JSON(ErrorResponse{Success: false, Error: message})
}

func requestID(c *fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}
