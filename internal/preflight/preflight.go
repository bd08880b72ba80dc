package preflight

import (
	"context"
	"strings"

	"tripfarm/internal/config"
	"tripfarm/internal/mailer"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable readiness check. The SMTP dial is only
// attempted when credentials are present; sender may be nil to skip it.
func RunAll(ctx context.Context, cfg *config.Config, sender mailer.Sender) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckMailCredentials(cfg))
	if cfg.MailConfigured() && sender != nil {
		results = append(results, CheckMailTransport(ctx, cfg, sender))
	}
	results = append(results, CheckTimezone(cfg.Archive.Timezone))

	// Static directory (when configured; the embedded UI needs no check)
	if strings.TrimSpace(cfg.Server.StaticDir) != "" {
		results = append(results, CheckStaticDir(cfg.Server.StaticDir))
	}

	if strings.TrimSpace(cfg.Logging.Dir) != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
