package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tripfarm/internal/form"
	"tripfarm/internal/services"
)

const maxTextFieldBytes = 1 << 20

// requestError carries a message that is safe to show to the respondent.
type requestError struct {
	marker  error
	message string
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Unwrap() error { return e.marker }

func badRequest(format string, args ...any) error {
	return &requestError{marker: services.ErrValidation, message: fmt.Sprintf(format, args...)}
}

func tooLarge(limit int64) error {
	return &requestError{
		marker:  services.ErrTooLarge,
		message: fmt.Sprintf("Arquivo de áudio muito grande (máximo %dMB).", limit/(1024*1024)),
	}
}

// parseSubmission decodes the request body into ordered fields and the
// optional audio attachment. Multipart, urlencoded and JSON bodies are
// accepted; field order is preserved for all three.
func parseSubmission(c *fiber.Ctx, maxAttachment int64) (form.Fields, *form.Attachment, error) {
	mediaType, params, err := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
	if err != nil {
		return nil, nil, badRequest("Content-Type inválido.")
	}
	body := c.Body()
	switch mediaType {
	case fiber.MIMEMultipartForm:
		return parseMultipart(body, params["boundary"], maxAttachment)
	case fiber.MIMEApplicationForm:
		fields, err := parseURLEncoded(body)
		return fields, nil, err
	case fiber.MIMEApplicationJSON:
		fields, err := parseJSON(body)
		return fields, nil, err
	default:
		return nil, nil, badRequest("Content-Type não suportado: %s", mediaType)
	}
}

func parseMultipart(body []byte, boundary string, maxAttachment int64) (form.Fields, *form.Attachment, error) {
	if boundary == "" {
		return nil, nil, badRequest("Corpo multipart sem boundary.")
	}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)

	var fields form.Fields
	var attachment *form.Attachment
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, badRequest("Corpo multipart inválido.")
		}
		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}

		if part.FileName() != "" {
			if name != form.FieldAudio {
				part.Close()
				return nil, nil, badRequest("Campo de arquivo não permitido: %s", name)
			}
			if attachment != nil {
				part.Close()
				return nil, nil, badRequest("Apenas um arquivo de áudio é permitido.")
			}
			data, err := io.ReadAll(io.LimitReader(part, maxAttachment+1))
			part.Close()
			if err != nil {
				return nil, nil, badRequest("Falha ao ler o arquivo de áudio.")
			}
			if int64(len(data)) > maxAttachment {
				return nil, nil, tooLarge(maxAttachment)
			}
			attachment = &form.Attachment{
				Filename:  part.FileName(),
				MediaType: part.Header.Get(fiber.HeaderContentType),
				Data:      data,
			}
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxTextFieldBytes+1))
		part.Close()
		if err != nil {
			return nil, nil, badRequest("Corpo multipart inválido.")
		}
		if len(value) > maxTextFieldBytes {
			return nil, nil, badRequest("Campo muito grande: %s", name)
		}
		fields.Set(name, string(value))
	}
	return fields, attachment, nil
}

func parseURLEncoded(body []byte) (form.Fields, error) {
	var fields form.Fields
	for _, pair := range strings.Split(string(body), "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, badRequest("Corpo urlencoded inválido.")
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, badRequest("Corpo urlencoded inválido.")
		}
		fields.Set(k, v)
	}
	return fields, nil
}

// parseJSON reads a flat object in document order. Scalars are rendered as
// text, null as empty and nested values as their JSON source.
func parseJSON(body []byte) (form.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, badRequest("JSON inválido: esperado um objeto.")
	}
	var fields form.Fields
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, badRequest("JSON inválido.")
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, badRequest("JSON inválido.")
		}
		fields.Set(key, jsonText(raw))
	}
	if _, err := dec.Token(); err != nil {
		return nil, badRequest("JSON inválido.")
	}
	return fields, nil
}

func jsonText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
