package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Email is a plain-text message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers an Email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// NewMailer returns an SMTP mailer, or a log-only mailer when no relay is configured.
func NewMailer(cfg config.SMTPConfig, logg *logger.Logger) Mailer {
	if !cfg.Enabled() {
		return &logMailer{logg: logg}
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, strings.TrimSpace(cfg.Host))
	}
	return &smtpMailer{addr: cfg.Addr(), from: cfg.From, auth: auth, send: smtp.SendMail}
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpMailer struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
}

func (m *smtpMailer) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(email.To) == "" {
		return fmt.Errorf("recipient required")
	}
	msg := buildMessage(m.from, email, time.Now().UTC())
	if err := m.send(m.addr, m.auth, m.from, []string{email.To}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMessage renders RFC 5322 headers followed by the body with CRLF line endings.
func buildMessage(from string, email Email, at time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + email.To + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(email.Subject) + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(email.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

type logMailer struct {
	logg *logger.Logger
}

func (m *logMailer) Send(ctx context.Context, email Email) error {
	if m.logg == nil {
		return nil
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"to":      email.To,
		"subject": email.Subject,
	}), "smtp disabled; email not sent")
	return nil
}
