package testsupport

import (
	"context"
	"sync"

	"tripfarm/internal/mailer"
)

// Sender is an in-memory mailer.Sender that records every message.
type Sender struct {
	// SendErr and VerifyErr are returned by Send and Verify when set.
	SendErr   error
	VerifyErr error

	mu          sync.Mutex
	messages    []*mailer.Message
	verifyCalls int
}

// Send records msg and returns a fixed Message-ID.
func (s *Sender) Send(_ context.Context, msg *mailer.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return "", s.SendErr
	}
	s.messages = append(s.messages, msg)
	return "<test@tripfarm>", nil
}

// Verify counts the call.
func (s *Sender) Verify(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyCalls++
	return s.VerifyErr
}

// Messages returns a copy of the recorded messages.
func (s *Sender) Messages() []*mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*mailer.Message(nil), s.messages...)
}

// VerifyCalls reports how many times Verify ran.
func (s *Sender) VerifyCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyCalls
}
