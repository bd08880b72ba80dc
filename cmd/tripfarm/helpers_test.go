package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"tripfarm/internal/api"
	"tripfarm/internal/archive"
	"tripfarm/internal/intake"
	"tripfarm/internal/logging"
	"tripfarm/internal/mailer"
	"tripfarm/internal/testsupport"
)

// isolateEnv keeps developer credentials and .env files out of CLI tests.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"EMAIL_USER", "EMAIL_PASS", "SMTP2GO_USER", "SMTP2GO_PASS", "MAIL_FROM", "MAIL_RECIPIENT", "PORT", "TRIPFARM_STATIC_DIR", "TRIPFARM_ENV_FILE"} {
		t.Setenv(key, "")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())
	return home
}

func writeTestConfig(t *testing.T, baseURL string, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	content := fmt.Sprintf("[client]\nbase_url = %q\n%s", baseURL, extra)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// startServer serves the real intake API backed by a recording sender.
func startServer(t *testing.T) (*httptest.Server, *testsupport.Sender) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMailCredentials("farm@example.com", "app-password"))
	sender := &testsupport.Sender{}
	svc := intake.NewService(archive.NewBuilder(time.UTC), sender, mailer.NewComposer(cfg.Intake.Recipient, time.UTC), nil, logging.NewNop())
	app, err := api.New(api.Options{Config: cfg, Intake: svc})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv, sender
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Open(".")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(dir) {
		if dir, err = os.Getwd(); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		err := oldwd.Chdir()
		oldwd.Close()
		if err != nil {
			panic("testing.Chdir: " + err.Error())
		}
	})
}
