package form

import (
	"strconv"
	"strings"
	"time"

	"tripfarm/internal/services"
	"tripfarm/internal/textutil"
)

// Attachment is the optional audio answer.
type Attachment struct {
	// Filename is the name supplied by the client; the archive generates its own.
	Filename  string
	MediaType string
	Data      []byte
}

// Size returns the attachment length in bytes.
func (a *Attachment) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// Submission is one received questionnaire.
type Submission struct {
	Name      string
	City      string
	Sex       string
	BirthYear string
	FormType  string

	Fields     Fields
	Attachment *Attachment
	ReceivedAt time.Time
}

// NewSubmission builds a submission from the received fields. Required
// values are trimmed into the typed fields; Fields keeps what was sent.
func NewSubmission(fields Fields, attachment *Attachment, receivedAt time.Time) *Submission {
	if attachment != nil && len(attachment.Data) == 0 {
		attachment = nil
	}
	return &Submission{
		Name:       strings.TrimSpace(fields.Value(FieldName)),
		City:       strings.TrimSpace(fields.Value(FieldCity)),
		Sex:        strings.TrimSpace(fields.Value(FieldSex)),
		BirthYear:  strings.TrimSpace(fields.Value(FieldBirthYear)),
		FormType:   strings.TrimSpace(fields.Value(FieldFormType)),
		Fields:     fields.Clone(),
		Attachment: attachment,
		ReceivedAt: receivedAt,
	}
}

// HasAudio reports whether an attachment is present.
func (s *Submission) HasAudio() bool {
	return s.Attachment != nil && len(s.Attachment.Data) > 0
}

// SentAt renders ReceivedAt as an RFC 3339 UTC timestamp with milliseconds.
func (s *Submission) SentAt() string {
	return s.ReceivedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Record returns the received fields followed by the server stamps
// data_envio and tem_audio.
func (s *Submission) Record() Fields {
	out := s.Fields.Clone()
	out.Set(FieldSentAt, s.SentAt())
	out.Set(FieldHasAudio, strconv.FormatBool(s.HasAudio()))
	return out
}

var requiredLabels = []struct {
	label string
	value func(*Submission) string
}{
	{"Nome", func(s *Submission) string { return s.Name }},
	{"Cidade", func(s *Submission) string { return s.City }},
	{"Sexo", func(s *Submission) string { return s.Sex }},
	{"Ano de nascimento", func(s *Submission) string { return s.BirthYear }},
}

// Missing returns the labels of required answers that are blank.
func (s *Submission) Missing() []string {
	var missing []string
	for _, req := range requiredLabels {
		if req.value(s) == "" {
			missing = append(missing, req.label)
		}
	}
	return missing
}

// Validate returns a *ValidationError naming every blank required answer.
func (s *Submission) Validate() error {
	if missing := s.Missing(); len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// ValidationError lists missing required answers. It matches
// services.ErrValidation under errors.Is.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "Campos obrigatórios: " + textutil.JoinList(e.Missing)
}

func (e *ValidationError) Unwrap() error { return services.ErrValidation }
