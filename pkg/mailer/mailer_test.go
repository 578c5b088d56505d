package mailer

import (
	"log/slog"
	"net/smtp"
	"strings"
	"testing"

	"github.com/banklinkhq/banklink/pkg/logger"
)

func TestSendBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := New(Config{Host: "smtp.test", Port: "587", From: "noreply@test"}, slog.New(logger.NewTestHandler(slog.LevelInfo)))
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := m.Send("user@test", "Hello", "body text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAddr != "smtp.test:587" || gotFrom != "noreply@test" {
		t.Fatalf("wrong addr/from: %q %q", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@test" {
		t.Fatalf("wrong recipient: %v", gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Hello\r\n") || !strings.Contains(msg, "body text") {
		t.Fatalf("message malformed: %q", msg)
	}
}

func TestSendNoopWhenUnconfigured(t *testing.T) {
	m := New(Config{}, slog.New(logger.NewTestHandler(slog.LevelInfo)))
	called := false
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	}

	if err := m.Send("user@test", "Hello", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("mail sent without configuration")
	}
	if m.Enabled() {
		t.Fatal("unconfigured mailer reports enabled")
	}
}
