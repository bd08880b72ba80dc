package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable. Missing mail credentials are
// not an error; the server reports them through the health endpoint instead.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateMail(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return c.validateClient()
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	return ensurePositive([]positiveSetting{
		{"server.body_limit_mb", c.Server.BodyLimitMB},
		{"server.read_timeout_seconds", c.Server.ReadTimeoutSeconds},
		{"server.write_timeout_seconds", c.Server.WriteTimeoutSeconds},
		{"server.idle_timeout_seconds", c.Server.IdleTimeoutSeconds},
	})
}

func (c *Config) validateIntake() error {
	if c.Intake.MaxAttachmentMB <= 0 {
		return errors.New("intake.max_attachment_mb must be positive")
	}
	if c.Intake.MaxAttachmentMB > c.Server.BodyLimitMB {
		return errors.New("intake.max_attachment_mb must not exceed server.body_limit_mb")
	}
	if _, err := mail.ParseAddress(c.Intake.Recipient); err != nil {
		return fmt.Errorf("intake.recipient: invalid address %q", c.Intake.Recipient)
	}
	return nil
}

func (c *Config) validateMail() error {
	switch c.Mail.Profile {
	case ProfileGmail, ProfileSMTP2GO, ProfileCustom:
	default:
		return fmt.Errorf("mail.profile: unsupported value %q (want gmail, smtp2go or custom)", c.Mail.Profile)
	}
	switch c.Mail.TLS {
	case TLSStartTLS, TLSOpportunistic, TLSImplicit, TLSNone:
	default:
		return fmt.Errorf("mail.tls: unsupported value %q", c.Mail.TLS)
	}
	if c.Mail.Host == "" {
		return errors.New("mail.host must be set when mail.profile is custom")
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		return errors.New("mail.port must be between 1 and 65535")
	}
	if c.Mail.TimeoutSeconds <= 0 {
		return errors.New("mail.timeout_seconds must be positive")
	}
	if c.Mail.ReplyTo != "" {
		if _, err := mail.ParseAddress(c.Mail.ReplyTo); err != nil {
			return fmt.Errorf("mail.reply_to: invalid address %q", c.Mail.ReplyTo)
		}
	}
	return nil
}

func (c *Config) validateArchive() error {
	if _, err := time.LoadLocation(c.Archive.Timezone); err != nil {
		return fmt.Errorf("archive.timezone: unknown zone %q", c.Archive.Timezone)
	}
	return nil
}

func (c *Config) validateClient() error {
	parsed, err := url.Parse(c.Client.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("client.base_url: invalid url %q", c.Client.BaseURL)
	}
	if !strings.HasPrefix(parsed.Scheme, "http") {
		return fmt.Errorf("client.base_url: unsupported scheme %q", parsed.Scheme)
	}
	return ensurePositive([]positiveSetting{
		{"client.timeout_seconds", c.Client.TimeoutSeconds},
		{"client.max_recording_mb", c.Client.MaxRecordingMB},
	})
}

type positiveSetting struct {
	key   string
	value int
}

// ensurePositive reports the first non-positive setting in declaration order.
func ensurePositive(settings []positiveSetting) error {
	for _, s := range settings {
		if s.value <= 0 {
			return fmt.Errorf("%s must be positive", s.key)
		}
	}
	return nil
}
