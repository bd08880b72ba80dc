package mailer

import (
	"context"
	"errors"
	"log/slog"

	"tripfarm/internal/config"
	"tripfarm/internal/logging"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("mail transport not configured")

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Message is a single outbound email.
type Message struct {
	To         string
	Subject    string
	HTMLBody   string
	Attachment *Attachment
}

// Sender delivers messages. Send returns the Message-ID of the accepted mail.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
	Verify(ctx context.Context) error
}

// NewSender builds the transport described by cfg.Mail.
func NewSender(cfg *config.Config, logger *slog.Logger) Sender {
	if cfg == nil || !cfg.MailConfigured() {
		return unconfiguredSender{}
	}
	return newSMTPSender(cfg.Mail, cfg.MailTimeout(), logging.NewComponentLogger(logger, "mailer"))
}

type unconfiguredSender struct{}

func (unconfiguredSender) Send(context.Context, *Message) (string, error) {
	return "", ErrNotConfigured
}

func (unconfiguredSender) Verify(context.Context) error {
	return ErrNotConfigured
}
