package capture_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tripfarm/internal/capture"
	"tripfarm/internal/services"
)

type fakeTrack struct {
	data      []byte
	finishErr error
	closed    int
}

func (t *fakeTrack) MediaType() string { return "audio/webm;codecs=opus" }

func (t *fakeTrack) Finish() ([]byte, error) { return t.data, t.finishErr }

func (t *fakeTrack) Close() error {
	t.closed++
	return nil
}

type fakeDevice struct {
	tracks  []*fakeTrack
	openErr error
	opened  int
}

func (d *fakeDevice) Open(context.Context) (capture.Track, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	track := d.tracks[d.opened]
	d.opened++
	return track, nil
}

type fakePlayer struct {
	played []capture.Recording
}

func (p *fakePlayer) Play(_ context.Context, rec capture.Recording) error {
	p.played = append(p.played, rec)
	return nil
}

type notices struct {
	messages []string
}

func (n *notices) Notify(message string) { n.messages = append(n.messages, message) }

var capturedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRecorder(device capture.Device, session *capture.Session, n *notices, p *fakePlayer) *capture.Recorder {
	return capture.NewRecorder("3", session, device,
		capture.WithNotifier(n),
		capture.WithPlayer(p),
		capture.WithClock(func() time.Time { return capturedAt }),
	)
}

func TestRecorderLifecycle(t *testing.T) {
	audio := bytes.Repeat([]byte{0x42}, 1024)
	track := &fakeTrack{data: audio}
	session := capture.NewSession("form-visitantes")
	n := &notices{}
	player := &fakePlayer{}
	rec := newRecorder(&fakeDevice{tracks: []*fakeTrack{track}}, session, n, player)

	if rec.State() != capture.StateIdle || rec.Status() != capture.StatusReady {
		t.Fatalf("unexpected initial state %s %q", rec.State(), rec.Status())
	}
	if got := rec.Controls(); got != (capture.Controls{Record: true}) {
		t.Fatalf("unexpected initial controls %+v", got)
	}

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.State() != capture.StateRecording || rec.Status() != capture.StatusRecording {
		t.Fatalf("expected recording state, got %s %q", rec.State(), rec.Status())
	}
	if got := rec.Controls(); got != (capture.Controls{Stop: true}) {
		t.Fatalf("unexpected recording controls %+v", got)
	}
	if err := rec.Start(context.Background()); !errors.Is(err, capture.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}

	stored, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if track.closed != 1 {
		t.Fatalf("expected device released once, got %d", track.closed)
	}
	if rec.State() != capture.StateStopped || rec.Status() != capture.StatusSaved {
		t.Fatalf("expected stopped state, got %s %q", rec.State(), rec.Status())
	}
	if got := rec.Controls(); got != (capture.Controls{Record: true, Play: true}) {
		t.Fatalf("unexpected stopped controls %+v", got)
	}
	if session.Len() != 1 {
		t.Fatalf("expected one session entry, got %d", session.Len())
	}
	got, ok := session.Get("3")
	if !ok || got.Size != len(audio) || !got.CapturedAt.Equal(capturedAt) || got.DataURL != stored.DataURL {
		t.Fatalf("unexpected stored recording %+v", got)
	}
	decoded, err := got.Bytes()
	if err != nil || !bytes.Equal(decoded, audio) {
		t.Fatalf("data url does not round trip: %v", err)
	}
	if got.MediaType() != "audio/webm;codecs=opus" {
		t.Fatalf("unexpected media type %q", got.MediaType())
	}

	if err := rec.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(player.played) != 1 || player.played[0].Question != "3" {
		t.Fatalf("unexpected playback %+v", player.played)
	}
	if rec.State() != capture.StateStopped {
		t.Fatal("Play must not change capture state")
	}
	if len(n.messages) != 0 {
		t.Fatalf("unexpected notices %v", n.messages)
	}
}

func TestRecorderSizeLimit(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		stored bool
	}{
		{"at limit", capture.DefaultMaxBytes, true},
		{"over limit", capture.DefaultMaxBytes + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := &fakeTrack{data: make([]byte, tt.size)}
			session := capture.NewSession("form")
			n := &notices{}
			rec := newRecorder(&fakeDevice{tracks: []*fakeTrack{track}}, session, n, &fakePlayer{})

			if err := rec.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			_, err := rec.Stop()
			if track.closed != 1 {
				t.Fatalf("expected device released, closed=%d", track.closed)
			}
			if tt.stored {
				if err != nil || session.Len() != 1 {
					t.Fatalf("expected recording stored, err=%v len=%d", err, session.Len())
				}
				return
			}
			if !errors.Is(err, capture.ErrRecordingTooLarge) || !errors.Is(err, services.ErrTooLarge) {
				t.Fatalf("expected size error, got %v", err)
			}
			if rec.State() != capture.StateIdle {
				t.Fatalf("expected idle after rejection, got %s", rec.State())
			}
			if rec.Controls().Play {
				t.Fatal("play must stay disabled after rejection")
			}
			if session.Len() != 0 {
				t.Fatalf("expected no session entry, got %d", session.Len())
			}
			want := "Áudio muito grande. Grave uma resposta mais curta (menos de 4MB)."
			if len(n.messages) != 1 || n.messages[0] != want {
				t.Fatalf("unexpected notices %v", n.messages)
			}
		})
	}
}

func TestRecorderStartDiscardsPreviousAnswer(t *testing.T) {
	first := &fakeTrack{data: []byte("first")}
	second := &fakeTrack{data: make([]byte, capture.DefaultMaxBytes+1)}
	session := capture.NewSession("form")
	rec := newRecorder(&fakeDevice{tracks: []*fakeTrack{first, second}}, session, &notices{}, &fakePlayer{})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := rec.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if session.Len() != 0 {
		t.Fatal("expected previous answer to be discarded on start")
	}
	if _, err := rec.Stop(); err == nil {
		t.Fatal("expected oversized second recording to fail")
	}
	if _, ok := session.Get("3"); ok {
		t.Fatal("no partial save expected")
	}
}

func TestRecorderDeviceFailure(t *testing.T) {
	session := capture.NewSession("form")
	n := &notices{}
	rec := newRecorder(&fakeDevice{openErr: errors.New("permission denied")}, session, n, &fakePlayer{})

	err := rec.Start(context.Background())
	if !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if rec.State() != capture.StateIdle {
		t.Fatalf("expected idle, got %s", rec.State())
	}
	if len(n.messages) != 1 || n.messages[0] != capture.NoticeMicrophone {
		t.Fatalf("unexpected notices %v", n.messages)
	}
}

func TestRecorderCaptureFailureReleasesDevice(t *testing.T) {
	track := &fakeTrack{finishErr: errors.New("encoder crashed")}
	n := &notices{}
	rec := newRecorder(&fakeDevice{tracks: []*fakeTrack{track}}, capture.NewSession("form"), n, &fakePlayer{})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := rec.Stop(); !errors.Is(err, capture.ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
	if track.closed != 1 || rec.State() != capture.StateIdle {
		t.Fatalf("expected released idle recorder, closed=%d state=%s", track.closed, rec.State())
	}
	if len(n.messages) != 1 || n.messages[0] != capture.NoticeCaptureFailed {
		t.Fatalf("expected capture failure notice, got %v", n.messages)
	}
}

func TestRecorderStopAndPlayWithoutRecording(t *testing.T) {
	n := &notices{}
	rec := newRecorder(&fakeDevice{}, capture.NewSession("form"), n, &fakePlayer{})

	if _, err := rec.Stop(); !errors.Is(err, capture.ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
	if err := rec.Play(context.Background()); !errors.Is(err, capture.ErrNoRecording) {
		t.Fatalf("expected ErrNoRecording, got %v", err)
	}
	if len(n.messages) != 1 || n.messages[0] != capture.NoticeNoRecording {
		t.Fatalf("unexpected notices %v", n.messages)
	}
}

func TestRecorderAbortReleasesDevice(t *testing.T) {
	track := &fakeTrack{data: []byte("x")}
	rec := newRecorder(&fakeDevice{tracks: []*fakeTrack{track}}, capture.NewSession("form"), &notices{}, &fakePlayer{})
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.Abort()
	if track.closed != 1 || rec.State() != capture.StateIdle {
		t.Fatalf("expected abort to release device, closed=%d state=%s", track.closed, rec.State())
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	session := capture.NewSession("form")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("%02d", i%5)
			session.Put(capture.Recording{Question: q, DataURL: capture.EncodeDataURL("", []byte(q))})
			session.Get(q)
			session.Questions()
		}(i)
	}
	wg.Wait()

	want := []string{"00", "01", "02", "03", "04"}
	got := session.Questions()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("questions = %v, want %v", got, want)
	}
	session.Reset()
	if session.Len() != 0 {
		t.Fatal("expected empty session after reset")
	}
}

func TestDataURL(t *testing.T) {
	encoded := capture.EncodeDataURL("", []byte("hello"))
	if encoded != "data:audio/webm;base64,aGVsbG8=" {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	mediaType, data, err := capture.DecodeDataURL(encoded)
	if err != nil || mediaType != "audio/webm" || string(data) != "hello" {
		t.Fatalf("decode = %q %q %v", mediaType, data, err)
	}

	for _, bad := range []string{"aGVsbG8=", "data:audio/webm;base64", "data:audio/webm,hello", "data:audio/webm;base64,@@@"} {
		if _, _, err := capture.DecodeDataURL(bad); !errors.Is(err, capture.ErrInvalidDataURL) {
			t.Fatalf("expected ErrInvalidDataURL for %q, got %v", bad, err)
		}
	}
}

type slowDevice struct {
	release chan struct{}
	track   *fakeTrack
}

func (d *slowDevice) Open(context.Context) (capture.Track, error) {
	<-d.release
	return d.track, nil
}

func TestRecorderStaysResponsiveWhileDeviceOpens(t *testing.T) {
	device := &slowDevice{release: make(chan struct{}), track: &fakeTrack{data: []byte("x")}}
	rec := newRecorder(device, capture.NewSession("form"), &notices{}, &fakePlayer{})

	started := make(chan error, 1)
	go func() { started <- rec.Start(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for rec.State() != capture.StateRecording {
		if time.Now().After(deadline) {
			t.Fatal("recorder never reserved the recording state")
		}
		time.Sleep(time.Millisecond)
	}
	if c := rec.Controls(); c.Record || !c.Stop {
		t.Fatalf("unexpected controls while opening %+v", c)
	}
	if err := rec.Start(context.Background()); !errors.Is(err, capture.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if _, err := rec.Stop(); !errors.Is(err, capture.ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording before the device opened, got %v", err)
	}

	close(device.release)
	if err := <-started; err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := rec.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRecorderAbortWhileDeviceOpens(t *testing.T) {
	device := &slowDevice{release: make(chan struct{}), track: &fakeTrack{data: []byte("x")}}
	session := capture.NewSession("form")
	rec := newRecorder(device, session, &notices{}, &fakePlayer{})

	started := make(chan error, 1)
	go func() { started <- rec.Start(context.Background()) }()
	for rec.State() != capture.StateRecording {
		time.Sleep(time.Millisecond)
	}
	rec.Abort()
	close(device.release)

	if err := <-started; !errors.Is(err, capture.ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
	if rec.State() != capture.StateIdle || device.track.closed != 1 {
		t.Fatalf("expected idle recorder with released device, state=%s closed=%d", rec.State(), device.track.closed)
	}
	if session.Len() != 0 {
		t.Fatal("aborted capture must not touch the session")
	}
}
