package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tripfarm/internal/config"
	"tripfarm/internal/deps"
	"tripfarm/internal/mailer"
)

// CheckMailCredentials reports whether SMTP credentials are present and flags
// suspicious shapes without dialing.
func CheckMailCredentials(cfg *config.Config) Result {
	const name = "Mail credentials"

	if !cfg.MailConfigured() {
		return Result{Name: name, Detail: mailer.Diagnose(cfg.Mail, mailer.ErrNotConfigured)}
	}
	if warnings := mailer.CredentialWarnings(cfg.Mail); len(warnings) > 0 {
		return Result{Name: name, Detail: strings.Join(warnings, "; ")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s profile, user %s", cfg.Mail.Profile, cfg.Mail.Username)}
}

// CheckMailTransport dials the SMTP server and authenticates once. No mail
// is sent and there are no retries.
func CheckMailTransport(ctx context.Context, cfg *config.Config, sender mailer.Sender) Result {
	name := "SMTP " + cfg.Mail.Host

	timeout := cfg.MailTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sender.Verify(checkCtx); err != nil {
		detail := err.Error()
		if hint := mailer.Diagnose(cfg.Mail, err); hint != "" {
			detail += " (hint: " + hint + ")"
		}
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s:%d authenticated (tls: %s)", cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.TLS)}
}

// CheckTimezone verifies the archive timezone resolves.
func CheckTimezone(zone string) Result {
	const name = "Archive timezone"
	if _, err := time.LoadLocation(zone); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", zone, err)}
	}
	return Result{Name: name, Passed: true, Detail: zone}
}

// CheckStaticDir verifies the UI directory is readable and carries an
// index document for the catch-all route.
func CheckStaticDir(path string) Result {
	const name = "Static directory"

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	if _, err := os.Stat(filepath.Join(path, "index.html")); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: index.html missing)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable, index.html present)", path)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckClientDeps reports the optional recording binaries.
func CheckClientDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.ClientRequirements(cfg))
}
