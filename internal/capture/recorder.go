package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tripfarm/internal/logging"
	"tripfarm/internal/services"
)

// DefaultMaxBytes bounds a single recording.
const DefaultMaxBytes = 4 * 1024 * 1024

var (
	ErrAlreadyRecording  = errors.New("capture already in progress")
	ErrNotRecording      = errors.New("no capture in progress")
	ErrNoRecording       = errors.New("no recording stored for question")
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrCaptureFailed     = errors.New("capture failed")
	ErrNoPlayer          = errors.New("no player configured")
	// ErrRecordingTooLarge matches services.ErrTooLarge.
	ErrRecordingTooLarge = fmt.Errorf("recording exceeds size limit: %w", services.ErrTooLarge)
)

// Status texts shown next to the controls.
const (
	StatusReady     = "Pronto para gravar"
	StatusRecording = "Gravando..."
	StatusSaved     = "Gravação salva"
)

// Notices surfaced to the respondent.
const (
	NoticeMicrophone    = "Não foi possível acessar o microfone. Verifique permissões do navegador."
	NoticeNoRecording   = "Nenhuma gravação disponível para tocar."
	NoticeCaptureFailed = "Não foi possível concluir a gravação. Tente novamente."
)

// TooLargeNotice is shown when a recording exceeds maxBytes.
func TooLargeNotice(maxBytes int) string {
	return fmt.Sprintf("Áudio muito grande. Grave uma resposta mais curta (menos de %dMB).", maxBytes/(1024*1024))
}

// State is the capture state of one Recorder.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Controls reports which buttons of a control group are enabled.
type Controls struct {
	Record bool
	Stop   bool
	Play   bool
}

// Device opens a capture track on the input hardware.
type Device interface {
	Open(ctx context.Context) (Track, error)
}

// Track is an open capture. Finish stops capturing and returns the encoded
// audio; Close releases the device and is safe to call after Finish.
type Track interface {
	MediaType() string
	Finish() ([]byte, error)
	Close() error
}

// Player plays a stored recording.
type Player interface {
	Play(ctx context.Context, rec Recording) error
}

// Notifier receives respondent-facing notices.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f(message).
func (f NotifierFunc) Notify(message string) { f(message) }

// Recorder drives one record/stop/play control group bound to a question.
type Recorder struct {
	question string
	session  *Session
	device   Device
	player   Player
	notifier Notifier
	maxBytes int
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	opening bool
	track   Track
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithPlayer sets the playback backend.
func WithPlayer(p Player) Option { return func(r *Recorder) { r.player = p } }

// WithNotifier sets where notices go.
func WithNotifier(n Notifier) Option { return func(r *Recorder) { r.notifier = n } }

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option { return func(r *Recorder) { r.now = now } }

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logging.NewComponentLogger(logger, "capture") }
}

// NewRecorder binds a control group for question to session.
func NewRecorder(question string, session *Session, device Device, opts ...Option) *Recorder {
	r := &Recorder{
		question: question,
		session:  session,
		device:   device,
		notifier: NotifierFunc(func(string) {}),
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
		logger:   logging.NewComponentLogger(nil, "capture"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Question returns the question key this recorder writes to.
func (r *Recorder) Question() string { return r.question }

// State returns the current capture state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Controls derives the enabled buttons from the state and the session.
func (r *Recorder) Controls() Controls {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRecording {
		return Controls{Stop: true}
	}
	_, stored := r.session.Get(r.question)
	return Controls{Record: true, Play: stored}
}

// Status returns the label shown next to the controls.
func (r *Recorder) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateRecording:
		return StatusRecording
	case StateStopped:
		return StatusSaved
	default:
		return StatusReady
	}
}

// Start acquires the device and begins capturing. The recorder is marked
// recording before the device opens so a second Start is rejected without
// holding the lock across Open. Any stored answer for the question is
// discarded once the device is open.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.state = StateRecording
	r.opening = true
	r.mu.Unlock()

	track, err := r.device.Open(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.opening = false
	if err != nil {
		r.state = StateIdle
		r.notifier.Notify(NoticeMicrophone)
		r.logger.Warn("capture device unavailable",
			logging.String("question", r.question),
			logging.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if r.state != StateRecording {
		// Aborted while the device was opening.
		_ = track.Close()
		return fmt.Errorf("%w: aborted before capture began", ErrCaptureFailed)
	}

	r.session.Delete(r.question)
	r.track = track
	r.logger.Debug("capture started", logging.String("question", r.question))
	return nil
}

// Stop finalizes the capture and stores it in the session. The device is
// released on every path. Oversized captures are discarded and leave the
// recorder idle.
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording || r.opening || r.track == nil {
		return nil, ErrNotRecording
	}
	track := r.track
	r.track = nil
	defer func() {
		if err := track.Close(); err != nil {
			r.logger.Debug("release capture device", logging.Error(err))
		}
	}()

	data, err := track.Finish()
	if err != nil {
		r.state = StateIdle
		r.notifier.Notify(NoticeCaptureFailed)
		r.logger.Warn("capture failed", logging.String("question", r.question), logging.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if len(data) > r.maxBytes {
		r.state = StateIdle
		r.notifier.Notify(TooLargeNotice(r.maxBytes))
		r.logger.Info("recording discarded",
			logging.String("question", r.question),
			logging.Int("bytes", len(data)),
			logging.Int("limit", r.maxBytes),
		)
		return nil, ErrRecordingTooLarge
	}

	rec := Recording{
		Question:   r.question,
		DataURL:    EncodeDataURL(track.MediaType(), data),
		Size:       len(data),
		CapturedAt: r.now(),
	}
	r.session.Put(rec)
	r.state = StateStopped
	return &rec, nil
}

// Play plays the stored answer without touching capture state.
func (r *Recorder) Play(ctx context.Context) error {
	rec, ok := r.session.Get(r.question)
	if !ok {
		r.notifier.Notify(NoticeNoRecording)
		return ErrNoRecording
	}
	if r.player == nil {
		return ErrNoPlayer
	}
	return r.player.Play(ctx, rec)
}

// Abort releases the device without storing anything.
func (r *Recorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.track != nil {
		_ = r.track.Close()
		r.track = nil
	}
	r.state = StateIdle
}
