package intake

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tripfarm/internal/archive"
	"tripfarm/internal/form"
	"tripfarm/internal/logging"
	"tripfarm/internal/mailer"
	"tripfarm/internal/metrics"
	"tripfarm/internal/services"
)

// Archiver renders a submission into a bundle.
type Archiver interface {
	Build(sub *form.Submission) (*archive.Bundle, error)
}

// Summary echoes the accepted answers back to the client.
type Summary struct {
	Name      string `json:"nome"`
	City      string `json:"cidade"`
	Sex       string `json:"sexo"`
	BirthYear string `json:"ano_nascimento"`
	FormType  string `json:"tipo_formulario"`
	SentAt    string `json:"data_envio"`
}

// Receipt describes a delivered submission.
type Receipt struct {
	Summary   Summary
	MessageID string
	Bundle    string
	Entries   []string
}

// Service wires the archive builder and the mail transport.
type Service struct {
	archiver Archiver
	sender   mailer.Sender
	composer *mailer.Composer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService constructs the pipeline. metrics may be nil.
func NewService(archiver Archiver, sender mailer.Sender, composer *mailer.Composer, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		archiver: archiver,
		sender:   sender,
		composer: composer,
		metrics:  m,
		logger:   logging.NewComponentLogger(logger, "intake"),
	}
}

// Process validates, archives and dispatches sub. Validation failures match
// services.ErrValidation and leave the archiver and sender untouched.
func (s *Service) Process(ctx context.Context, sub *form.Submission) (*Receipt, error) {
	ctx = services.WithFormType(ctx, sub.FormType)
	log := logging.WithContext(ctx, s.logger)

	if err := sub.Validate(); err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeRejected, sub.FormType)
		log.Info("submission rejected",
			logging.String(logging.FieldEventType, "submission_rejected"),
			logging.Error(err),
		)
		return nil, err
	}

	bundle, err := s.archiver.Build(sub)
	if err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeFailed, sub.FormType)
		logging.ErrorWithContext(log, "archive build failed", "archive_failed", logging.Error(err))
		return nil, services.Wrap(services.ErrExternal, "intake", "archive", "", err)
	}
	if s.metrics != nil {
		s.metrics.ArchiveBytes.Observe(float64(bundle.Size()))
		if sub.HasAudio() {
			s.metrics.AttachmentBytes.Observe(float64(sub.Attachment.Size()))
		}
	}

	msg, err := s.composer.Compose(sub, &mailer.Attachment{
		Filename:  bundle.Filename,
		MediaType: bundle.MediaType,
		Data:      bundle.Data,
	})
	if err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeFailed, sub.FormType)
		logging.ErrorWithContext(log, "compose mail failed", "compose_failed", logging.Error(err))
		return nil, services.Wrap(services.ErrExternal, "intake", "compose", "", err)
	}

	start := time.Now()
	messageID, err := s.sender.Send(ctx, msg)
	s.observeDispatch(start, err)
	if err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeFailed, sub.FormType)
		marker := services.ErrExternal
		hint := "check SMTP connectivity with 'tripfarm verify'"
		if errors.Is(err, mailer.ErrNotConfigured) {
			marker = services.ErrConfiguration
			hint = "set mail credentials (EMAIL_USER/EMAIL_PASS or SMTP2GO_USER/SMTP2GO_PASS)"
		}
		logging.ErrorWithContext(log, "mail dispatch failed", "dispatch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String("bundle", bundle.Filename),
		)
		return nil, services.Wrap(marker, "intake", "dispatch", "", err)
	}

	s.metrics.ObserveSubmission(metrics.OutcomeAccepted, sub.FormType)
	log.Info("submission delivered",
		logging.String("bundle", bundle.Filename),
		logging.Int("bundle_bytes", bundle.Size()),
		logging.Bool("has_audio", sub.HasAudio()),
		logging.String("message_id", messageID),
	)

	return &Receipt{
		Summary: Summary{
			Name:      sub.Name,
			City:      sub.City,
			Sex:       sub.Sex,
			BirthYear: sub.BirthYear,
			FormType:  sub.FormType,
			SentAt:    sub.SentAt(),
		},
		MessageID: messageID,
		Bundle:    bundle.Filename,
		Entries:   bundle.Entries,
	}, nil
}

func (s *Service) observeDispatch(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.DispatchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
