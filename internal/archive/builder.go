package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"tripfarm/internal/form"
	"tripfarm/internal/services"
	"tripfarm/internal/textutil"
)

// Entry names inside every bundle.
const (
	JSONEntry = "respostas.json"
	TextEntry = "respostas.txt"
)

const (
	textHeader       = "=== RESPOSTAS DO FORMULÁRIO TRIPFARM ==="
	readableTime     = "02/01/2006, 15:04:05"
	defaultAudioExt  = ".webm"
	bundleMediaType  = "application/zip"
	bundleNamePrefix = "tripfarm_resposta_"
)

// Bundle is an in-memory ZIP ready to attach.
type Bundle struct {
	Filename   string
	MediaType  string
	Data       []byte
	Entries    []string
	AudioEntry string
}

// Size returns the ZIP length in bytes.
func (b *Bundle) Size() int { return len(b.Data) }

// Builder renders submissions into bundles.
type Builder struct {
	location *time.Location
	level    int
}

// NewBuilder returns a Builder that renders readable timestamps in loc.
// A nil loc falls back to UTC.
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{location: loc, level: flate.BestCompression}
}

// Build assembles the bundle for sub. Any failure is wrapped as an external
// error since nothing the respondent sent can fix it.
func (b *Builder) Build(sub *form.Submission) (*Bundle, error) {
	if sub == nil {
		return nil, services.Wrap(services.ErrValidation, "archive", "build", "nil submission", nil)
	}

	record := sub.Record()
	jsonBody, err := renderJSON(record)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "archive", "render json", "", err)
	}
	textBody := b.renderText(sub, record)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, b.level)
	})

	bundle := &Bundle{
		Filename:  bundleName(sub.ReceivedAt),
		MediaType: bundleMediaType,
	}

	add := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: sub.ReceivedAt,
		})
		if err != nil {
			return fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write entry %s: %w", name, err)
		}
		bundle.Entries = append(bundle.Entries, name)
		return nil
	}

	if err := add(JSONEntry, jsonBody); err != nil {
		return nil, services.Wrap(services.ErrExternal, "archive", "build", "", err)
	}
	if err := add(TextEntry, []byte(textBody)); err != nil {
		return nil, services.Wrap(services.ErrExternal, "archive", "build", "", err)
	}
	if sub.HasAudio() {
		name := AudioEntryName(sub.ReceivedAt, sub.Attachment.Data)
		if err := add(name, sub.Attachment.Data); err != nil {
			return nil, services.Wrap(services.ErrExternal, "archive", "build", "", err)
		}
		bundle.AudioEntry = name
	}
	if err := zw.Close(); err != nil {
		return nil, services.Wrap(services.ErrExternal, "archive", "finalize", "", err)
	}

	bundle.Data = buf.Bytes()
	return bundle, nil
}

// AudioEntryName returns audio_<unix-ms><ext>, with the extension taken from
// the sniffed media type and .webm when the payload is not recognizable audio.
func AudioEntryName(at time.Time, data []byte) string {
	return "audio_" + strconv.FormatInt(at.UnixMilli(), 10) + audioExtension(data)
}

func audioExtension(data []byte) string {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if isMediaType(m.String()) && m.Extension() != "" {
			return m.Extension()
		}
	}
	return defaultAudioExt
}

func isMediaType(value string) bool {
	return strings.HasPrefix(value, "audio/") || strings.HasPrefix(value, "video/") || value == "application/ogg"
}

func bundleName(at time.Time) string {
	return bundleNamePrefix + strconv.FormatInt(at.UnixMilli(), 10) + ".zip"
}

// renderJSON writes a two-space indented object preserving field order.
// tem_audio is emitted as a boolean.
func renderJSON(fields form.Fields) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")
		key, err := encodeString(field.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(": ")
		if field.Name == form.FieldHasAudio {
			b, err := strconv.ParseBool(field.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", form.FieldHasAudio, err)
			}
			buf.WriteString(strconv.FormatBool(b))
			continue
		}
		value, err := encodeString(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	if len(fields) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func encodeString(value string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (b *Builder) renderText(sub *form.Submission, record form.Fields) string {
	var sb strings.Builder
	sb.WriteString(textHeader)
	sb.WriteString("\n\n")
	sb.WriteString("Data/Hora: ")
	sb.WriteString(sub.ReceivedAt.In(b.location).Format(readableTime))
	sb.WriteString("\n")
	sb.WriteString("Tipo de Formulário: ")
	sb.WriteString(textutil.OrPlaceholder(sub.FormType))
	sb.WriteString("\n\n")
	for _, field := range record {
		if field.Name == form.FieldFormType {
			continue
		}
		value := field.Value
		// A false flag reads as "not provided", like any empty answer.
		if field.Name == form.FieldHasAudio && !sub.HasAudio() {
			value = ""
		}
		sb.WriteString(textutil.CapitalizeFirst(field.Name))
		sb.WriteString(": ")
		sb.WriteString(textutil.OrPlaceholder(value))
		sb.WriteString("\n")
	}
	return sb.String()
}
