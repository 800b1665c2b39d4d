package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestVerificationMessage(t *testing.T) {
	t.Parallel()

	msg := VerificationMessage("noreply@x.com", "a@x.com", "123456")

	if msg.Subject != "Verification email" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.HTML != "<h1>Verification code: 123456</h1>" {
		t.Errorf("HTML = %q", msg.HTML)
	}
	if msg.From != "noreply@x.com" || msg.To != "a@x.com" {
		t.Errorf("unexpected envelope: %+v", msg)
	}
	if !strings.Contains(msg.Text, "123456") {
		t.Errorf("Text should carry the code: %q", msg.Text)
	}
}

func TestSendGridSender_Send(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewSendGridSender("SG.test", srv.URL, nil)
	if err != nil {
		t.Fatalf("NewSendGridSender failed: %v", err)
	}

	if err := sender.Send(context.Background(), VerificationMessage("noreply@x.com", "a@x.com", "654321")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/v3/mail/send" {
		t.Errorf("path = %s, want /v3/mail/send", gotPath)
	}
	if gotAuth != "Bearer SG.test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["subject"] != "Verification email" {
		t.Errorf("subject = %v", gotBody["subject"])
	}

	raw, _ := json.Marshal(gotBody["content"])
	if !strings.Contains(string(raw), "Verification code: 654321") {
		t.Errorf("content missing code: %s", raw)
	}
}

func TestSendGridSender_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	sender, err := NewSendGridSender("SG.bad", srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewSendGridSender failed: %v", err)
	}

	err = sender.Send(context.Background(), VerificationMessage("noreply@x.com", "a@x.com", "123456"))
	if !errors.Is(err, ErrDispatch) {
		t.Errorf("Send error = %v, want ErrDispatch", err)
	}
	if errors.Is(err, ErrTemporary) {
		t.Errorf("Send error = %v, a 401 must not be temporary", err)
	}
}

func TestNewSendGridSender_RequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewSendGridSender("", "", nil); err == nil {
		t.Error("expected error without api key")
	}
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	sender := NewLogSender(logger)
	if err := sender.Send(context.Background(), VerificationMessage("noreply@x.com", "a@x.com", "123456")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "a@x.com") || !strings.Contains(out, "Verification email") {
		t.Errorf("log output missing envelope: %s", out)
	}
	if strings.Contains(out, "123456") {
		t.Errorf("code should only be logged at debug level: %s", out)
	}
}

func TestSendGridSender_ServerErrorIsTemporary(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sender, err := NewSendGridSender("SG.key", srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewSendGridSender failed: %v", err)
	}

	err = sender.Send(context.Background(), VerificationMessage("noreply@x.com", "a@x.com", "123456"))
	if !errors.Is(err, ErrDispatch) || !errors.Is(err, ErrTemporary) {
		t.Errorf("Send error = %v, want ErrDispatch and ErrTemporary", err)
	}
}
