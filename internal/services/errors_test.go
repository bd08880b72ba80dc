package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"tripfarm/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternal, "mailer", "send", "smtp dial failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"mailer", "send", "smtp dial failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %v", err)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", services.Wrap(services.ErrValidation, "intake", "validate", "missing nome", nil), http.StatusBadRequest},
		{"too large", services.Wrap(services.ErrTooLarge, "api", "parse", "audio", nil), http.StatusRequestEntityTooLarge},
		{"configuration", services.Wrap(services.ErrConfiguration, "mailer", "send", "no credentials", nil), http.StatusInternalServerError},
		{"external", services.Wrap(services.ErrExternal, "archive", "build", "zip", errors.New("io")), http.StatusInternalServerError},
		{"plain", errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
