package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

var commandContext = exec.CommandContext

// ExecDevice captures the microphone through an ffmpeg process that writes
// WebM/Opus to stdout.
type ExecDevice struct {
	Binary string
	// Input is the ffmpeg input device. ALSA names (hw:, plughw:) select the
	// alsa demuxer, anything else is handed to pulse. Empty means "default".
	Input string
}

// Open starts ffmpeg. Cancelling ctx kills the capture.
func (d ExecDevice) Open(ctx context.Context) (Track, error) {
	binary := strings.TrimSpace(d.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, captureInputArgs(d.Input)...)
	args = append(args,
		"-vn",
		"-ac", "1",
		"-c:a", "libopus",
		"-b:a", "64k",
		"-f", "webm",
		"pipe:1",
	)

	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	track := &execTrack{cmd: cmd, stdin: stdin, copied: make(chan error, 1)}
	cmd.Stderr = &track.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	go func() {
		_, err := io.Copy(&track.audio, stdout)
		track.copied <- err
	}()
	return track, nil
}

func captureInputArgs(input string) []string {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return []string{"-f", "pulse", "-i", "default"}
	case strings.HasPrefix(input, "hw:"), strings.HasPrefix(input, "plughw:"):
		return []string{"-f", "alsa", "-i", input}
	default:
		return []string{"-f", "pulse", "-i", input}
	}
}

type execTrack struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	audio  bytes.Buffer
	stderr bytes.Buffer
	copied chan error

	mu     sync.Mutex
	exited bool
}

func (t *execTrack) MediaType() string { return DefaultMediaType }

// Finish asks ffmpeg to quit so it can flush the container, then returns
// everything it wrote.
func (t *execTrack) Finish() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.exited {
		return nil, errors.New("capture already finished")
	}
	_, _ = io.WriteString(t.stdin, "q")
	_ = t.stdin.Close()
	copyErr := <-t.copied
	waitErr := t.cmd.Wait()
	t.exited = true

	if copyErr != nil {
		return nil, fmt.Errorf("read capture output: %w", copyErr)
	}
	if waitErr != nil && t.audio.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg capture: %w: %s", waitErr, strings.TrimSpace(t.stderr.String()))
	}
	return bytes.Clone(t.audio.Bytes()), nil
}

// Close kills ffmpeg if Finish was never reached.
func (t *execTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.exited {
		return nil
	}
	t.exited = true
	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	<-t.copied
	_ = t.cmd.Wait()
	return nil
}

// ExecPlayer plays recordings through ffplay without opening a window.
type ExecPlayer struct {
	Binary string
}

// Play feeds the decoded recording to ffplay on stdin and waits for it to
// finish.
func (p ExecPlayer) Play(ctx context.Context, rec Recording) error {
	data, err := rec.Bytes()
	if err != nil {
		return err
	}
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "ffplay"
	}
	args := []string{"-nodisp", "-autoexit", "-hide_banner", "-loglevel", "error", "-i", "pipe:0"}
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(data)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffplay: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
