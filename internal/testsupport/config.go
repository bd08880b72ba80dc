package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tripfarm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config bound to an ephemeral loopback port with a
// per-test log directory and the gmail transport preset filled in. Mail
// credentials are left empty unless WithMailCredentials is applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.Bind = "127.0.0.1"
	cfgVal.Server.Port = 0
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Mail.Host = "smtp.gmail.com"
	cfgVal.Mail.Port = 587
	cfgVal.Mail.TLS = config.TLSStartTLS

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMailCredentials sets username, password and from on the test config.
func WithMailCredentials(username, password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Mail.Username = username
		b.cfg.Mail.Password = password
		b.cfg.Mail.From = username
	}
}

// WithStaticSite writes a minimal index.html under the base directory and
// points server.static_dir at it.
func WithStaticSite(body string) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "public")
		WriteFile(b.t, filepath.Join(dir, "index.html"), []byte(body))
		b.cfg.Server.StaticDir = dir
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffplay are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffplay"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Logging.Dir)
}
