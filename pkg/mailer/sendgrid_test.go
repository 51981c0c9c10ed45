package mailer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSendGridMailer_RequiresRecipient(t *testing.T) {
	m := NewSendGridMailer("SG.test", "ScholarBridge", "no-reply@example.com")
	err := m.Send(context.Background(), Message{ToAddress: "  ", Subject: "Hi", Text: "Body"})
	if !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestSendGridMailer_HonoursCancelledContext(t *testing.T) {
	m := NewSendGridMailer("SG.test", "ScholarBridge", "no-reply@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Send(ctx, Message{ToAddress: "ada@example.com", Subject: "Hi", Text: "Body"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSendGridMailer_Send(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		hang    bool
		wantErr error
		wantAny bool
	}{
		{name: "accepted", status: http.StatusAccepted},
		{name: "rejected", status: http.StatusUnauthorized, wantAny: true},
		{name: "hung api is bounded by the deadline", hang: true, wantErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			seen := make(chan string, 1)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen <- r.URL.Path + " " + r.Header.Get("Authorization")
				if tt.hang {
					select {
					case <-r.Context().Done():
					case <-release:
					}
					return
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()
			defer close(release)

			m := NewSendGridMailer("SG.test", "ScholarBridge", "no-reply@example.com")
			m.host = server.URL

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			err := m.Send(ctx, Message{ToAddress: "ada@example.com", Subject: "Hi", Text: "Body"})

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			case tt.wantAny:
				if err == nil {
					t.Fatalf("expected an error for status %d", tt.status)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if got := <-seen; got != "/v3/mail/send Bearer SG.test" {
				t.Fatalf("unexpected request %q", got)
			}
		})
	}
}

func TestSendGridMailer_Prepare(t *testing.T) {
	tests := []struct {
		name        string
		fromName    string
		wantSubject string
	}{
		{name: "with sender name", fromName: "ScholarBridge", wantSubject: "[ScholarBridge] Document uploaded"},
		{name: "without sender name", fromName: "", wantSubject: "Document uploaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSendGridMailer(" SG.test ", tt.fromName, "no-reply@example.com")
			if m.key != "SG.test" {
				t.Fatalf("expected trimmed key, got %q", m.key)
			}
			v3 := m.prepare(Message{ToAddress: "ada@example.com", ToName: "Ada", Subject: "Document uploaded", Text: "Open the app"})
			if len(v3.Personalizations) != 1 || v3.Personalizations[0].Subject != tt.wantSubject {
				t.Fatalf("unexpected personalization: %+v", v3.Personalizations)
			}
			if to := v3.Personalizations[0].To; len(to) != 1 || to[0].Address != "ada@example.com" || to[0].Name != "Ada" {
				t.Fatalf("unexpected recipients: %+v", to)
			}
			if len(v3.Content) != 1 || v3.Content[0].Type != "text/plain" || v3.Content[0].Value != "Open the app" {
				t.Fatalf("unexpected content: %+v", v3.Content)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short value unchanged, got %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 5); got != "xxxxx" {
		t.Fatalf("expected truncation to 5, got %q", got)
	}
	if got := truncate("aé", 2); got != "a" {
		t.Fatalf("expected cut before the multi-byte rune, got %q", got)
	}
}

func TestLogMailer_NeverFails(t *testing.T) {
	if err := (LogMailer{}).Send(context.Background(), Message{ToAddress: "ada@example.com", Subject: "Hi"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
