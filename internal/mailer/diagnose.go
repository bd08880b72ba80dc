package mailer

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"

	"tripfarm/internal/config"
)

// Diagnose returns an operator hint for a transport failure, or "" when the
// failure does not match a known class.
func Diagnose(cfg config.Mail, err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotConfigured) {
		return credentialHint(cfg)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "SMTP host not found: check mail.host and DNS resolution"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return connectionHint(cfg)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return connectionHint(cfg)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "535"), strings.Contains(msg, "auth"), strings.Contains(msg, "credentials"):
		return authHint(cfg)
	case strings.Contains(msg, "no such host"):
		return "SMTP host not found: check mail.host and DNS resolution"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"), strings.Contains(msg, "i/o timeout"):
		return connectionHint(cfg)
	}
	return ""
}

// CredentialWarnings reports suspicious credential shapes without dialing.
func CredentialWarnings(cfg config.Mail) []string {
	var warnings []string
	if cfg.Profile == config.ProfileSMTP2GO && cfg.Password != "" && !strings.HasPrefix(cfg.Password, "api-") {
		warnings = append(warnings, `SMTP2GO_PASS does not start with "api-"; copy the API key from the SMTP2GO dashboard`)
	}
	if cfg.Password != strings.TrimSpace(cfg.Password) {
		warnings = append(warnings, "mail password has leading or trailing whitespace")
	}
	if cfg.From == "" {
		warnings = append(warnings, "mail.from is empty; set it or MAIL_FROM")
	}
	return warnings
}

func credentialHint(cfg config.Mail) string {
	switch cfg.Profile {
	case config.ProfileGmail:
		return "set EMAIL_USER and EMAIL_PASS (a Google app password) in the environment or .env"
	case config.ProfileSMTP2GO:
		return "set SMTP2GO_USER and SMTP2GO_PASS (the SMTP2GO API key) in the environment or .env"
	default:
		return "set mail.username and mail.password"
	}
}

func authHint(cfg config.Mail) string {
	switch cfg.Profile {
	case config.ProfileGmail:
		return "authentication rejected: EMAIL_PASS must be a Google app password with 2-step verification enabled"
	case config.ProfileSMTP2GO:
		return "authentication rejected: check that SMTP2GO_PASS is the complete API key without extra spaces"
	default:
		return "authentication rejected: check mail.username and mail.password"
	}
}

func connectionHint(cfg config.Mail) string {
	return "connection timed out or refused: check network access and that port " + strconv.Itoa(cfg.Port) + " is not blocked"
}
