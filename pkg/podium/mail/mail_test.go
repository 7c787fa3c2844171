package mail

import (
	"bytes"
	"strings"
	"testing"
)

func TestPasswordResetMessage(t *testing.T) {
	msg, err := PasswordResetMessage("noreply@podium.app", "sam@example.com", "Sam <3", "https://podium.app/reset?token=abc")
	if err != nil {
		t.Fatalf("PasswordResetMessage failed: %v", err)
	}

	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "sam@example.com" {
		t.Errorf("Expected To header sam@example.com, got %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	body := buf.String()
	if !strings.Contains(body, "https://podium.app/reset?token=abc") {
		t.Errorf("Expected reset link in body, got %s", body)
	}
	if strings.Contains(body, "Sam <3") || !strings.Contains(body, "Sam &lt;3") {
		t.Error("Display name should be HTML escaped")
	}
}

func TestNewSMTPMailerDefaultsFrom(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, User: "podium@example.com"})
	if m.from != "podium@example.com" {
		t.Errorf("Expected From to default to the SMTP user, got %q", m.from)
	}
}

func TestLogMailer(t *testing.T) {
	var m Mailer = LogMailer{}
	if err := m.SendPasswordReset("a@example.com", "A", "link"); err != nil {
		t.Errorf("LogMailer should never fail: %v", err)
	}
}
