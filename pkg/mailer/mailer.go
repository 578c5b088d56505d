// Package mailer sends plain-text notification mail over SMTP. When no host
// is configured the mailer is a no-op, so local development needs no mail
// server.
package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type Mailer struct {
	cfg Config
	log *slog.Logger

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg Config, log *slog.Logger) *Mailer {
	return &Mailer{
		cfg:      cfg,
		log:      log,
		sendMail: smtp.SendMail,
	}
}

// Enabled reports whether sending is configured at all.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// Send delivers one message synchronously.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := m.cfg.Host + ":" + m.cfg.Port
	return m.sendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String()))
}

// Notify delivers in the background, logging failures instead of surfacing
// them. Notification mail is never allowed to fail a request.
func (m *Mailer) Notify(to, subject, body string) {
	if !m.Enabled() {
		return
	}
	go func() {
		if err := m.Send(to, subject, body); err != nil {
			m.log.Warn("notification mail failed", "to", to, "subject", subject, "error", err)
		}
	}()
}
