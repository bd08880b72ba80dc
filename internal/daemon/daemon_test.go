package daemon_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"tripfarm/internal/daemon"
	"tripfarm/internal/logging"
	"tripfarm/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	d, err := daemon.New(testsupport.NewConfig(t), logging.NewNop(), daemon.WithSender(&testsupport.Sender{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}

	status := d.Status()
	if !status.Running || status.Address == "" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.EmailConfigured {
		t.Fatal("expected mail to be reported as unconfigured")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + status.Address + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"OK"`) {
		t.Fatalf("unexpected health response %d: %s", resp.StatusCode, body)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.Addr() != "" {
		t.Fatalf("expected no address after stop, got %q", d.Addr())
	}
}

func TestDaemonStopsWhenContextCancelled(t *testing.T) {
	d, err := daemon.New(testsupport.NewConfig(t), logging.NewNop(), daemon.WithSender(&testsupport.Sender{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for d.Status().Running {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not stop after context cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewRejectsBadTimezone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Archive.Timezone = "Mars/Olympus"
	if _, err := daemon.New(cfg, nil); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestDaemonServesConfiguredStaticSite(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStaticSite("<h1>custom tripfarm ui</h1>"))
	d, err := daemon.New(cfg, logging.NewNop(), daemon.WithSender(&testsupport.Sender{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + d.Addr() + "/produtores")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "custom tripfarm ui") {
		t.Fatalf("expected configured index, got %d: %s", resp.StatusCode, body)
	}
}

func TestStopRightAfterStartDoesNotHang(t *testing.T) {
	for i := 0; i < 5; i++ {
		d, err := daemon.New(testsupport.NewConfig(t), logging.NewNop(), daemon.WithSender(&testsupport.Sender{}))
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		if err := d.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		cancel()

		done := make(chan struct{})
		go func() {
			d.Stop()
			d.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatalf("Stop hung on cycle %d", i)
		}
		if d.Status().Running || d.Addr() != "" {
			t.Fatalf("cycle %d: expected stopped daemon, got %+v", i, d.Status())
		}
	}
}

func TestStopWithoutCancelReleasesWatcher(t *testing.T) {
	d, err := daemon.New(testsupport.NewConfig(t), logging.NewNop(), daemon.WithSender(&testsupport.Sender{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	addr := d.Addr()

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop hung")
	}

	client := &http.Client{Timeout: time.Second}
	if resp, err := client.Get("http://" + addr + "/api/health"); err == nil {
		resp.Body.Close()
		t.Fatal("expected listener to be closed after Stop")
	}
}
