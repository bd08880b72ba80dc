package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"

	"tripfarm/internal/config"
	"tripfarm/internal/logging"
)

type smtpSender struct {
	cfg     config.Mail
	timeout time.Duration
	logger  *slog.Logger
}

func newSMTPSender(cfg config.Mail, timeout time.Duration, logger *slog.Logger) *smtpSender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &smtpSender{cfg: cfg, timeout: timeout, logger: logger}
}

// clientOptions maps the configured TLS policy onto go-mail options. The
// explicit port is applied last so presets never move it.
func (s *smtpSender) clientOptions() []gomail.Option {
	auth := gomail.SMTPAuthPlain
	opts := []gomail.Option{gomail.WithTimeout(s.timeout)}
	switch s.cfg.TLS {
	case config.TLSImplicit:
		opts = append(opts, gomail.WithSSL())
	case config.TLSOpportunistic:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	case config.TLSNone:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
		auth = gomail.SMTPAuthPlainNoEnc
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	opts = append(opts,
		gomail.WithSMTPAuth(auth),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithPort(s.cfg.Port),
	)
	return opts
}

func (s *smtpSender) client() (*gomail.Client, error) {
	client, err := gomail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

func (s *smtpSender) buildMessage(msg *Message) (*gomail.Msg, string, error) {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, "", fmt.Errorf("set from %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, "", fmt.Errorf("set recipient %q: %w", msg.To, err)
	}
	if s.cfg.ReplyTo != "" {
		if err := m.ReplyTo(s.cfg.ReplyTo); err != nil {
			return nil, "", fmt.Errorf("set reply-to %q: %w", s.cfg.ReplyTo, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetDate()
	messageID := uuid.NewString() + "@" + messageIDDomain(s.cfg.From)
	m.SetMessageIDWithValue(messageID)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)
	if att := msg.Attachment; att != nil {
		opts := []gomail.FileOption{}
		if att.MediaType != "" {
			opts = append(opts, gomail.WithFileContentType(gomail.ContentType(att.MediaType)))
		}
		if err := m.AttachReader(att.Filename, bytes.NewReader(att.Data), opts...); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", att.Filename, err)
		}
	}
	return m, "<" + messageID + ">", nil
}

func (s *smtpSender) Send(ctx context.Context, msg *Message) (string, error) {
	m, messageID, err := s.buildMessage(msg)
	if err != nil {
		return "", err
	}
	client, err := s.client()
	if err != nil {
		return "", err
	}

	start := time.Now()
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("smtp send via %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	logging.WithContext(ctx, s.logger).Info("mail accepted",
		logging.String("message_id", messageID),
		logging.String("to", msg.To),
		logging.Duration("elapsed", time.Since(start)),
	)
	return messageID, nil
}

// Verify dials and authenticates without sending.
func (s *smtpSender) Verify(ctx context.Context) error {
	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return client.Close()
}

func messageIDDomain(from string) string {
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		return strings.Trim(from[at+1:], "> ")
	}
	return "tripfarm.local"
}
