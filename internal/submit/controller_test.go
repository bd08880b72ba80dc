package submit_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"tripfarm/internal/api"
	"tripfarm/internal/archive"
	"tripfarm/internal/capture"
	"tripfarm/internal/config"
	"tripfarm/internal/form"
	"tripfarm/internal/intake"
	"tripfarm/internal/logging"
	"tripfarm/internal/mailer"
	"tripfarm/internal/services"
	"tripfarm/internal/submit"
)

var clientNow = time.Date(2026, 3, 1, 15, 4, 5, 123_000_000, time.UTC)

type notices struct {
	mu       sync.Mutex
	messages []string
}

func (n *notices) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *notices) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

type receivedPart struct {
	name, filename, contentType, value string
}

func readParts(t *testing.T, r *http.Request) []receivedPart {
	t.Helper()
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		t.Errorf("content type: %v", err)
		return nil
	}
	reader := multipart.NewReader(r.Body, params["boundary"])
	var parts []receivedPart
	for {
		p, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return parts
		}
		if err != nil {
			t.Errorf("next part: %v", err)
			return parts
		}
		data, _ := io.ReadAll(p)
		parts = append(parts, receivedPart{
			name:        p.FormName(),
			filename:    p.FileName(),
			contentType: p.Header.Get("Content-Type"),
			value:       string(data),
		})
	}
}

func answers() form.Fields {
	return form.Fields{
		{Name: "nome", Value: "Ana"},
		{Name: "cidade", Value: "Recife"},
		{Name: "sexo", Value: "F"},
		{Name: "ano_nascimento", Value: "1990"},
		{Name: "pergunta_1", Value: "gosto do campo"},
	}
}

func newController(t *testing.T, url string, n *notices) *submit.Controller {
	t.Helper()
	c, err := submit.NewController(url, "visitantes",
		submit.WithNotifier(n),
		submit.WithClock(func() time.Time { return clientNow }),
		submit.WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestSubmitSendsOrderedMultipart(t *testing.T) {
	var got []receivedPart
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != submit.SavePath || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		got = readParts(t, r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"message":"ok","data":{"nome":"Ana","data_envio":"2026-03-01T15:04:05.200Z"}}`)
	}))
	defer srv.Close()

	session := capture.NewSession("visitantes")
	session.Put(capture.Recording{Question: "1", DataURL: capture.EncodeDataURL("audio/webm", []byte("fake-audio"))})
	session.Put(capture.Recording{Question: "2", DataURL: capture.EncodeDataURL("audio/webm", []byte("ignored"))})
	n := &notices{}

	result, err := newController(t, srv.URL+"/", n).Submit(context.Background(), answers(), session)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Success || result.Data.Name != "Ana" || result.Message != submit.NoticeSuccess {
		t.Fatalf("unexpected result %+v", result)
	}
	if n.last() != submit.NoticeSuccess {
		t.Fatalf("unexpected notice %q", n.last())
	}
	if session.Len() != 0 {
		t.Fatal("expected session reset after success")
	}

	wantNames := []string{"nome", "cidade", "sexo", "ano_nascimento", "pergunta_1", "tipo_formulario", "created_at", "audio"}
	if len(got) != len(wantNames) {
		t.Fatalf("expected %d parts, got %+v", len(wantNames), got)
	}
	for i, name := range wantNames {
		if got[i].name != name {
			t.Fatalf("part %d = %q, want %q", i, got[i].name, name)
		}
	}
	if got[5].value != "visitantes" || got[6].value != "2026-03-01T15:04:05.123Z" {
		t.Fatalf("unexpected tag/timestamp %+v %+v", got[5], got[6])
	}
	audio := got[7]
	if audio.filename != "audio_1772377445123.webm" || audio.contentType != "audio/webm" || audio.value != "fake-audio" {
		t.Fatalf("unexpected audio part %+v", audio)
	}
}

func TestSubmitSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"success":false,"error":"Campos obrigatórios: Nome"}`)
	}))
	defer srv.Close()

	session := capture.NewSession("visitantes")
	session.Put(capture.Recording{Question: "1", DataURL: capture.EncodeDataURL("", []byte("x"))})
	n := &notices{}
	c := newController(t, srv.URL, n)

	result, err := c.Submit(context.Background(), answers(), session)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Success || result.Status != http.StatusBadRequest || result.Message != "Campos obrigatórios: Nome" {
		t.Fatalf("unexpected result %+v", result)
	}
	if n.last() != "Campos obrigatórios: Nome" {
		t.Fatalf("unexpected notice %q", n.last())
	}
	if session.Len() != 1 {
		t.Fatal("form must be kept after a rejected submit")
	}
	if c.InFlight() {
		t.Fatal("submit control must be re-enabled")
	}
}

func TestSubmitNonJSONResponseIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	n := &notices{}
	result, err := newController(t, srv.URL, n).Submit(context.Background(), answers(), nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Success || result.Message != submit.NoticeNetwork || n.last() != submit.NoticeNetwork {
		t.Fatalf("unexpected result %+v notice %q", result, n.last())
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	n := &notices{}
	c := newController(t, url, n)
	_, err := c.Submit(context.Background(), answers(), nil)
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected ErrExternal, got %v", err)
	}
	if n.last() != submit.NoticeNetwork {
		t.Fatalf("unexpected notice %q", n.last())
	}
	if c.InFlight() {
		t.Fatal("submit control must be re-enabled after failure")
	}
}

func TestSubmitRejectsDuplicateWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var requests int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		close(entered)
		<-release
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := newController(t, srv.URL, &notices{})
	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), answers(), nil)
		done <- err
	}()

	<-entered
	if !c.InFlight() {
		t.Fatal("expected submit in flight")
	}
	if _, err := c.Submit(context.Background(), answers(), nil); !errors.Is(err, submit.ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Fatalf("expected exactly one request, got %d", requests)
	}
}

func TestNewControllerRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:3001", "://nope"} {
		if _, err := submit.NewController(raw, "visitantes"); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

type stubSender struct {
	sent []*mailer.Message
}

func (s *stubSender) Send(_ context.Context, msg *mailer.Message) (string, error) {
	s.sent = append(s.sent, msg)
	return "<e2e@tripfarm>", nil
}

func (s *stubSender) Verify(context.Context) error { return nil }

func TestSubmitEndToEndAgainstIntakeAPI(t *testing.T) {
	cfg := config.Default()
	sender := &stubSender{}
	svc := intake.NewService(archive.NewBuilder(time.UTC), sender, mailer.NewComposer(cfg.Intake.Recipient, time.UTC), nil, logging.NewNop())
	app, err := api.New(api.Options{Config: &cfg, Intake: svc})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	srv := httptest.NewServer(adaptor.FiberApp(app))
	defer srv.Close()

	session := capture.NewSession("visitantes")
	session.Put(capture.Recording{Question: "1", DataURL: capture.EncodeDataURL("audio/webm", []byte("opus-frames"))})

	result, err := newController(t, srv.URL, &notices{}).Submit(context.Background(), answers(), session)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Success || result.Data.Name != "Ana" || result.Data.FormType != "visitantes" {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := time.Parse(time.RFC3339, result.Data.SentAt); err != nil {
		t.Fatalf("data_envio not RFC 3339: %q", result.Data.SentAt)
	}
	if len(sender.sent) != 1 || !strings.HasPrefix(sender.sent[0].Attachment.Filename, "tripfarm_resposta_") {
		t.Fatalf("expected one archived mail, got %+v", sender.sent)
	}

	missing := answers()
	missing.Set("nome", "")
	result, err = newController(t, srv.URL, &notices{}).Submit(context.Background(), missing, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Success || result.Status != http.StatusBadRequest || !strings.Contains(result.Message, "Nome") {
		t.Fatalf("expected 400 naming nome, got %+v", result)
	}
	if len(sender.sent) != 1 {
		t.Fatal("rejected submission must not send mail")
	}
}

type stallingTransport struct {
	mu    sync.Mutex
	calls int
}

func (s *stallingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func TestSubmitTimeoutAppliesToCustomClient(t *testing.T) {
	tests := []struct {
		name  string
		order func(client *http.Client) []submit.Option
	}{
		{"timeout first", func(client *http.Client) []submit.Option {
			return []submit.Option{submit.WithTimeout(50 * time.Millisecond), submit.WithHTTPClient(client)}
		}},
		{"client first", func(client *http.Client) []submit.Option {
			return []submit.Option{submit.WithHTTPClient(client), submit.WithTimeout(50 * time.Millisecond)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &stallingTransport{}
			client := &http.Client{Transport: transport}
			n := &notices{}
			opts := append(tt.order(client), submit.WithNotifier(n))
			c, err := submit.NewController("http://tripfarm.invalid", "visitantes", opts...)
			if err != nil {
				t.Fatalf("NewController: %v", err)
			}

			done := make(chan error, 1)
			go func() {
				_, err := c.Submit(context.Background(), answers(), nil)
				done <- err
			}()
			select {
			case err = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("timeout was not applied to the configured client")
			}
			if !errors.Is(err, services.ErrTimeout) {
				t.Fatalf("expected ErrTimeout, got %v", err)
			}
			if transport.calls != 1 {
				t.Fatalf("expected the configured transport to be used once, got %d", transport.calls)
			}
			if client.Timeout != 0 {
				t.Fatal("caller's client must not be mutated")
			}
			if n.last() != submit.NoticeNetwork {
				t.Fatalf("unexpected notice %q", n.last())
			}
		})
	}
}
