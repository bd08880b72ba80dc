package mailer

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	gomail "github.com/wneessen/go-mail"

	"tripfarm/internal/config"
	"tripfarm/internal/logging"
)

func testMailConfig() config.Mail {
	return config.Mail{
		Profile:        config.ProfileCustom,
		Host:           "127.0.0.1",
		Port:           2525,
		Username:       "relay",
		Password:       "secret",
		From:           "noreply@tripfarm.example",
		ReplyTo:        "contato@tripfarm.example",
		TLS:            config.TLSNone,
		TimeoutSeconds: 1,
	}
}

func TestNewSenderWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	sender := NewSender(&cfg, logging.NewNop())
	if _, err := sender.Send(context.Background(), &Message{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := sender.Verify(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from Verify, got %v", err)
	}
}

func TestNewSenderWithCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Mail = testMailConfig()
	if _, ok := NewSender(&cfg, nil).(*smtpSender); !ok {
		t.Fatal("expected SMTP sender when credentials are present")
	}
}

func TestBuildMessageSetsHeaders(t *testing.T) {
	sender := newSMTPSender(testMailConfig(), time.Second, logging.NewNop())
	msg := &Message{
		To:       "tripfarm.oficial@gmail.com",
		Subject:  "Nova resposta TripFarm - visitantes - Ana",
		HTMLBody: "<p>ok</p>",
		Attachment: &Attachment{
			Filename:  "tripfarm_resposta_1.zip",
			MediaType: "application/zip",
			Data:      []byte("zip-bytes"),
		},
	}
	m, id, err := sender.buildMessage(msg)
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, "@tripfarm.example>") {
		t.Fatalf("unexpected message id %q", id)
	}
	if got := m.GetGenHeader(gomail.HeaderSubject); len(got) != 1 || got[0] != msg.Subject {
		t.Fatalf("unexpected subject header %v", got)
	}
	if got := m.GetGenHeader(gomail.HeaderMessageID); len(got) != 1 || got[0] != id {
		t.Fatalf("unexpected message-id header %v want %s", got, id)
	}
	attachments := m.GetAttachments()
	if len(attachments) != 1 || attachments[0].Name != "tripfarm_resposta_1.zip" {
		t.Fatalf("unexpected attachments %v", attachments)
	}
}

func TestBuildMessageRejectsBadRecipient(t *testing.T) {
	sender := newSMTPSender(testMailConfig(), time.Second, logging.NewNop())
	if _, _, err := sender.buildMessage(&Message{To: "not an address"}); err == nil {
		t.Fatal("expected recipient error")
	}
}

func TestVerifyReportsRefusedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cfg := testMailConfig()
	cfg.Port = port
	sender := newSMTPSender(cfg, time.Second, logging.NewNop())

	err = sender.Verify(context.Background())
	if err == nil {
		t.Fatal("expected dial error")
	}
	if hint := Diagnose(cfg, err); !strings.Contains(hint, "timed out or refused") {
		t.Fatalf("expected connection hint, got %q for %v", hint, err)
	}
}
