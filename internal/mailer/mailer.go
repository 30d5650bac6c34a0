// Package mailer delivers HTML emails through an SMTP relay.
//
// Delivery never returns an error to the caller: a missing configuration or a
// transport failure is logged and reported as false so batch operations can
// carry on with the next recipient. There are no retries.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/example/council-portal/internal/telemetry"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// UseTLS selects implicit TLS (SMTPS, usually port 465).
	UseTLS bool
}

// Enabled reports whether enough settings are present to attempt delivery.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.From) != ""
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = 587
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

type transport func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Sender sends HTML emails.
type Sender struct {
	cfg    Config
	send   transport
	now    func() time.Time
	logger *slog.Logger
}

// NewSender returns a Sender for cfg.
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sender{cfg: cfg, now: time.Now, logger: logger.With("component", "mailer")}
	if cfg.UseTLS {
		s.send = s.sendImplicitTLS
	} else {
		s.send = smtp.SendMail
	}
	return s
}

// Send delivers one HTML message and reports whether the relay accepted it.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) bool {
	logger := s.logger.With("to", to, "subject", subject)

	if !s.cfg.Enabled() {
		telemetry.RecordEmail(telemetry.EmailSkipped)
		logger.WarnContext(ctx, "email not sent: smtp host or sender address not configured")
		return false
	}
	if strings.TrimSpace(to) == "" {
		telemetry.RecordEmail(telemetry.EmailFailed)
		logger.WarnContext(ctx, "email not sent: recipient address is empty")
		return false
	}
	if err := ctx.Err(); err != nil {
		telemetry.RecordEmail(telemetry.EmailFailed)
		logger.WarnContext(ctx, "email not sent: request cancelled", "error", err)
		return false
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := s.compose(to, subject, htmlBody)
	if err := s.send(s.cfg.addr(), auth, s.cfg.From, []string{to}, msg); err != nil {
		telemetry.RecordEmail(telemetry.EmailFailed)
		logger.ErrorContext(ctx, "email delivery failed", "error", err)
		return false
	}

	telemetry.RecordEmail(telemetry.EmailSent)
	logger.InfoContext(ctx, "email sent")
	return true
}

func (s *Sender) compose(to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(htmlBody, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// sendImplicitTLS connects over TLS from the first byte. A failed handshake is
// returned as is; there is no plaintext retry.
func (s *Sender) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: s.cfg.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
