package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMediaType labels recordings whose device did not report one.
const DefaultMediaType = "audio/webm"

// ErrInvalidDataURL is returned when a stored recording cannot be decoded.
var ErrInvalidDataURL = errors.New("invalid data url")

// Recording is one finished answer, held as a base64 data URL.
type Recording struct {
	Question   string
	DataURL    string
	Size       int
	CapturedAt time.Time
}

// MediaType returns the media type embedded in the data URL.
func (r Recording) MediaType() string {
	mediaType, _, err := DecodeDataURL(r.DataURL)
	if err != nil || mediaType == "" {
		return DefaultMediaType
	}
	return mediaType
}

// Bytes decodes the recorded audio.
func (r Recording) Bytes() ([]byte, error) {
	_, data, err := DecodeDataURL(r.DataURL)
	return data, err
}

// EncodeDataURL renders data as data:<mediaType>;base64,<payload>.
func EncodeDataURL(mediaType string, data []byte) string {
	if strings.TrimSpace(mediaType) == "" {
		mediaType = DefaultMediaType
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL reverses EncodeDataURL. Only base64 payloads are accepted.
func DecodeDataURL(value string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(value, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	return mediaType, data, nil
}

// Session holds the recordings of one form instance keyed by question
// number. It is safe for concurrent use.
type Session struct {
	formID string

	mu         sync.RWMutex
	recordings map[string]Recording
}

// NewSession creates an empty session for formID.
func NewSession(formID string) *Session {
	return &Session{
		formID:     formID,
		recordings: make(map[string]Recording),
	}
}

// FormID identifies the form this session belongs to.
func (s *Session) FormID() string { return s.formID }

// Put stores rec under its question, replacing any previous answer.
func (s *Session) Put(rec Recording) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings[rec.Question] = rec
}

// Get returns the recording for question.
func (s *Session) Get(question string) (Recording, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recordings[question]
	return rec, ok
}

// Delete drops the recording for question.
func (s *Session) Delete(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recordings, question)
}

// Questions lists the answered questions in sorted order.
func (s *Session) Questions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.recordings))
	for q := range s.recordings {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

// Len reports how many questions have a recording.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recordings)
}

// Reset clears every recording, as after a successful submit.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.recordings)
}
