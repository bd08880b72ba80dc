package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"tripfarm/internal/capture"
	"tripfarm/internal/config"
	"tripfarm/internal/form"
	"tripfarm/internal/logging"
	"tripfarm/internal/submit"
)

type submitOptions struct {
	baseURL  string
	formType string
	fields   []string
	audio    string
	record   bool
	play     bool
	question string
	asJSON   bool
}

type submitOutput struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Post one form's answers to a TripFarm server",
		Example: `  tripfarm submit --form-type visitantes \
    --field nome=Ana --field cidade=Recife --field sexo=F --field ano_nascimento=1990 \
    --record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runSubmit(cmd, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.baseURL, "url", "", "Server base URL (defaults to client.base_url)")
	flags.StringVarP(&opts.formType, "form-type", "t", "", "Form type tag ("+strings.Join(form.KnownFormTypes(), ", ")+")")
	flags.StringArrayVarP(&opts.fields, "field", "f", nil, "Answer as name=value; repeat in form order")
	flags.StringVar(&opts.audio, "audio", "", "Attach an existing audio file as the recorded answer")
	flags.BoolVar(&opts.record, "record", false, "Record the answer from the microphone before submitting")
	flags.BoolVar(&opts.play, "play", false, "Play the recording back before submitting")
	flags.StringVar(&opts.question, "question", "", "Question whose recording is attached (defaults to client.audio_question)")
	flags.BoolVar(&opts.asJSON, "json", false, "Print the server result as JSON")
	return cmd
}

func runSubmit(cmd *cobra.Command, cfg *config.Config, opts submitOptions) error {
	if opts.record && strings.TrimSpace(opts.audio) != "" {
		return errors.New("--record and --audio are mutually exclusive")
	}
	opts.formType = strings.TrimSpace(opts.formType)
	if opts.formType != "" && !form.IsKnownFormType(opts.formType) {
		return fmt.Errorf("unknown --form-type %q (expected one of: %s)", opts.formType, strings.Join(form.KnownFormTypes(), ", "))
	}
	fields, err := parseFieldFlags(opts.fields)
	if err != nil {
		return err
	}

	question := strings.TrimSpace(opts.question)
	if question == "" {
		question = cfg.Client.AudioQuestion
	}
	baseURL := strings.TrimSpace(opts.baseURL)
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}

	stderr := cmd.ErrOrStderr()
	notifier := capture.NotifierFunc(func(message string) {
		fmt.Fprintln(stderr, message)
	})
	session := capture.NewSession(opts.formType)

	switch {
	case opts.record:
		if err := recordAnswer(cmd, cfg, session, question, notifier, opts.play); err != nil {
			return err
		}
	case strings.TrimSpace(opts.audio) != "":
		if err := loadAnswer(cfg, session, question, opts.audio, notifier); err != nil {
			return err
		}
	}

	controller, err := submit.NewController(baseURL, opts.formType,
		submit.WithTimeout(cfg.ClientTimeout()),
		submit.WithAudioQuestion(question),
		submit.WithNotifier(notifier),
	)
	if err != nil {
		return err
	}

	result, err := controller.Submit(cmd.Context(), fields, session)
	if err != nil {
		return err
	}

	if opts.asJSON {
		out := submitOutput{Success: result.Success, Status: result.Status, Message: result.Message}
		if result.Success {
			out.Data = result.Data
		}
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else if result.Success {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Sent %s answers for %s (%s)\n", displayValue(result.Data.FormType), displayValue(result.Data.Name), result.Data.SentAt)
	}
	if !result.Success {
		return fmt.Errorf("submission rejected (HTTP %d): %s", result.Status, result.Message)
	}
	return nil
}

// parseFieldFlags keeps the flag order, which becomes the form field order.
func parseFieldFlags(values []string) (form.Fields, error) {
	fields := make(form.Fields, 0, len(values))
	for _, raw := range values {
		name, value, ok := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q: expected name=value", raw)
		}
		fields.Set(name, value)
	}
	return fields, nil
}

func recordAnswer(cmd *cobra.Command, cfg *config.Config, session *capture.Session, question string, notifier capture.Notifier, play bool) error {
	logger := logging.NewNop()
	recorder := capture.NewRecorder(question, session,
		capture.ExecDevice{Binary: cfg.Client.FFmpegBinary, Input: cfg.Client.CaptureInput},
		capture.WithPlayer(capture.ExecPlayer{Binary: cfg.Client.FFplayBinary}),
		capture.WithNotifier(notifier),
		capture.WithMaxBytes(cfg.MaxRecordingBytes()),
		capture.WithLogger(logger),
	)
	defer recorder.Abort()

	stderr := cmd.ErrOrStderr()
	if err := recorder.Start(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "%s (pergunta %s). Pressione Enter para parar.\n", recorder.Status(), question)
	if err := waitForEnter(cmd.Context(), cmd.InOrStdin()); err != nil {
		return err
	}
	rec, err := recorder.Stop()
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "%s (%d bytes)\n", recorder.Status(), rec.Size)

	if play {
		if err := recorder.Play(cmd.Context()); err != nil {
			return fmt.Errorf("play recording: %w", err)
		}
	}
	return nil
}

func waitForEnter(ctx context.Context, in io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func loadAnswer(cfg *config.Config, session *capture.Session, question, path string, notifier capture.Notifier) error {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("resolve audio path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}
	if limit := cfg.MaxRecordingBytes(); len(data) > limit {
		notifier.Notify(capture.TooLargeNotice(limit))
		return capture.ErrRecordingTooLarge
	}
	mediaType := mimetype.Detect(data).String()
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	if !strings.HasPrefix(mediaType, "audio/") {
		mediaType = capture.DefaultMediaType
	}
	session.Put(capture.Recording{
		Question:   question,
		DataURL:    capture.EncodeDataURL(mediaType, data),
		Size:       len(data),
		CapturedAt: time.Now(),
	})
	return nil
}

func displayValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
