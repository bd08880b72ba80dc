package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"tripfarm/internal/form"
	"tripfarm/internal/logging"
	"tripfarm/internal/metrics"
	"tripfarm/internal/services"
)

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:          "OK",
		Message:         MessageHealthy,
		Timestamp:       h.now().UTC().Format(timestampFormat),
		EmailConfigured: h.cfg.MailConfigured(),
	})
}

func (h *handler) info(c *fiber.Ctx) error {
	return c.JSON(InfoResponse{
		Message: MessageInfo,
		Version: Version,
		Endpoints: Endpoints{
			Health: PathHealth,
			Info:   PathInfo,
			Salvar: PathSave,
		},
	})
}

func (h *handler) save(c *fiber.Ctx) error {
	ctx := services.WithRequestID(c.UserContext(), requestID(c))
	c.SetUserContext(ctx)

	fields, attachment, err := parseSubmission(c, h.cfg.MaxAttachmentBytes())
	if err != nil {
		return h.fail(c, ctx, err)
	}
	sub := form.NewSubmission(fields, attachment, h.now())

	receipt, err := h.intake.Process(ctx, sub)
	if err != nil {
		return h.fail(c, ctx, err)
	}
	return c.JSON(SaveResponse{
		Success: true,
		Message: MessageSaved,
		Data:    receipt.Summary,
	})
}

// fail maps err to a status code. Client errors echo their message; server
// errors return the generic notice and keep the details in the log.
func (h *handler) fail(c *fiber.Ctx, ctx context.Context, err error) error {
	status := services.HTTPStatus(err)
	log := logging.WithContext(ctx, h.logger)

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		outcome := metrics.OutcomeRejected
		if status == http.StatusRequestEntityTooLarge {
			outcome = metrics.OutcomeTooLarge
		}
		h.metrics.ObserveSubmission(outcome, "")
		log.Info("request body rejected",
			logging.String(logging.FieldEventType, "body_rejected"),
			logging.Int("status", status),
			logging.Error(err),
		)
	}

	message := MessageInternal
	if status < http.StatusInternalServerError {
		message = err.Error()
	}
	return c.Status(status).JSON(ErrorResponse{Success: false, Error: message})
}
