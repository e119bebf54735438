package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSendOTPPostsToSMSWebhook(t *testing.T) {
	var got smsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(Config{SMSSenderID: "PAATH", SMSWebhookURL: server.URL}, zerolog.Nop())

	if err := svc.SendOTP("9876543210", "123456", time.Now().Add(5*time.Minute)); err != nil {
		t.Fatalf("SendOTP returned error: %v", err)
	}

	if got.To != "9876543210" {
		t.Errorf("recipient = %q, want 9876543210", got.To)
	}
	if got.SenderID != "PAATH" {
		t.Errorf("sender = %q, want PAATH", got.SenderID)
	}
	if !strings.Contains(got.Text, "123456") {
		t.Errorf("message %q does not carry the code", got.Text)
	}
}

func TestSendOTPGatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewService(Config{SMSWebhookURL: server.URL}, zerolog.Nop())

	if err := svc.SendOTP("9876543210", "123456", time.Now()); err == nil {
		t.Fatal("expected error for non-2xx gateway answer")
	}
}

func TestSendOTPWithoutGatewayLogsOnly(t *testing.T) {
	svc := NewService(Config{}, zerolog.Nop())

	// Console delivery: no gateway configured, no error either
	if err := svc.SendOTP("9876543210", "123456", time.Now()); err != nil {
		t.Fatalf("SendOTP returned error: %v", err)
	}
}
