package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"tripfarm/internal/archive"
	"tripfarm/internal/capture"
	"tripfarm/internal/form"
	"tripfarm/internal/intake"
	"tripfarm/internal/logging"
	"tripfarm/internal/services"
)

// SavePath is the intake route on the server.
const SavePath = "/api/salvar"

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Notices surfaced to the respondent.
const (
	NoticeSuccess = "Resposta enviada com sucesso!"
	NoticeNetwork = "Erro ao enviar o formulário. Tente novamente."
)

// ErrSubmitInProgress is returned while another submit of the same form is
// in flight.
var ErrSubmitInProgress = errors.New("submission already in progress")

// Result is the server's answer to one submit.
type Result struct {
	Success bool
	Status  int
	Message string
	Data    intake.Summary
}

type response struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Data    intake.Summary `json:"data"`
}

// Controller posts one form's answers and its designated recording.
type Controller struct {
	endpoint      string
	formType      string
	audioQuestion string
	client        *http.Client
	timeout       time.Duration
	notifier      capture.Notifier
	now           func() time.Time
	logger        *slog.Logger

	inFlight atomic.Bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout bounds each request. It applies to whichever client is in
// place, so it composes with WithHTTPClient in any order.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Controller) { c.timeout = timeout }
}

// WithAudioQuestion selects which question's recording is attached.
func WithAudioQuestion(question string) Option {
	return func(c *Controller) { c.audioQuestion = question }
}

// WithNotifier sets where notices go.
func WithNotifier(n capture.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithClock overrides the created_at and audio filename timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logging.NewComponentLogger(logger, "submit") }
}

// NewController builds a controller posting formType answers to baseURL.
func NewController(baseURL, formType string, opts ...Option) (*Controller, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	c := &Controller{
		endpoint:      strings.TrimRight(parsed.String(), "/") + SavePath,
		formType:      strings.TrimSpace(formType),
		audioQuestion: "1",
		client:        &http.Client{Timeout: 60 * time.Second},
		notifier:      capture.NotifierFunc(func(string) {}),
		now:           time.Now,
		logger:        logging.NewComponentLogger(nil, "submit"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		client := *c.client
		client.Timeout = c.timeout
		c.client = &client
	}
	return c, nil
}

// Endpoint returns the URL submissions are posted to.
func (c *Controller) Endpoint() string { return c.endpoint }

// InFlight reports whether the submit control is currently disabled.
func (c *Controller) InFlight() bool { return c.inFlight.Load() }

// Submit performs one POST. Server answers, successful or not, come back as
// a Result; err is reserved for requests that never got an answer. On
// success the session is reset, like clearing the form.
func (c *Controller) Submit(ctx context.Context, fields form.Fields, session *capture.Session) (*Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer c.inFlight.Store(false)

	body, contentType, err := c.encode(fields, session)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.notifier.Notify(NoticeNetwork)
		c.logger.Warn("submit request failed", logging.String("endpoint", c.endpoint), logging.Error(err))
		return nil, services.Wrap(failureMarker(err), "submit", "post", "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		c.notifier.Notify(NoticeNetwork)
		return nil, services.Wrap(failureMarker(err), "submit", "read response", "", err)
	}

	var decoded response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		c.notifier.Notify(NoticeNetwork)
		c.logger.Warn("unexpected server response",
			logging.Int("status", resp.StatusCode),
			logging.String("body", truncate(string(payload), 200)),
		)
		return &Result{Status: resp.StatusCode, Message: NoticeNetwork}, nil
	}

	result := &Result{
		Success: decoded.Success && resp.StatusCode < http.StatusBadRequest,
		Status:  resp.StatusCode,
		Data:    decoded.Data,
	}
	if !result.Success {
		result.Message = decoded.Error
		if result.Message == "" {
			result.Message = NoticeNetwork
		}
		c.notifier.Notify(result.Message)
		return result, nil
	}

	result.Message = NoticeSuccess
	c.notifier.Notify(NoticeSuccess)
	if session != nil {
		session.Reset()
	}
	return result, nil
}

// encode writes the fields in order, then tipo_formulario and created_at,
// then the single audio part.
func (c *Controller) encode(fields form.Fields, session *capture.Session) (io.Reader, string, error) {
	now := c.now().UTC()
	values := fields.Clone()
	if c.formType != "" {
		values.Set(form.FieldFormType, c.formType)
	}
	values.Set(form.FieldCreatedAt, now.Format(timestampLayout))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, field := range values {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf("encode field %s: %w", field.Name, err)
		}
	}

	if session != nil {
		if rec, ok := session.Get(c.audioQuestion); ok {
			data, err := rec.Bytes()
			if err != nil {
				return nil, "", fmt.Errorf("decode recording for question %s: %w", c.audioQuestion, err)
			}
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
				form.FieldAudio, archive.AudioEntryName(now, data)))
			header.Set("Content-Type", rec.MediaType())
			part, err := writer.CreatePart(header)
			if err != nil {
				return nil, "", fmt.Errorf("encode audio: %w", err)
			}
			if _, err := part.Write(data); err != nil {
				return nil, "", fmt.Errorf("encode audio: %w", err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// failureMarker tags requests that ran out of time as ErrTimeout; any other
// transport failure is ErrExternal.
func failureMarker(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return services.ErrTimeout
	}
	return services.ErrExternal
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
