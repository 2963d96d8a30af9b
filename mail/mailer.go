// Package mail delivers gatekeeper notification emails.
//
// [SMTP] speaks to a relay with optional implicit TLS and PLAIN auth. [Log] writes
// messages to a zap logger instead of sending them, for development and tests.
// Both satisfy gatekeeper.Mailer; the engine treats delivery as best-effort.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrHeaderInjection is returned when an address or subject contains a line break.
var ErrHeaderInjection = errors.New("mail: header contains line break")

// SMTPConfig configures an SMTP relay.
type SMTPConfig struct {
	Addr          string
	User          string
	Password      string
	From          string
	UseTLS        bool
	Timeout       time.Duration
	SubjectPrefix string
}

// SMTP sends HTML mail through a relay.
type SMTP struct {
	addr       string
	auth       smtp.Auth
	useTLS     bool
	timeout    time.Duration
	from       string
	subjPrefix string
	now        func() time.Time

	log *zap.Logger
}

// NewSMTP builds a mailer. Auth is only configured when credentials are set.
func NewSMTP(cfg SMTPConfig) *SMTP {
	var auth smtp.Auth
	if cfg.User != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, host(cfg.Addr))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTP{
		addr:       cfg.Addr,
		auth:       auth,
		useTLS:     cfg.UseTLS,
		timeout:    timeout,
		from:       cfg.From,
		subjPrefix: cfg.SubjectPrefix,
		now:        time.Now,
		log:        zap.NewNop(),
	}
}

// WithLogger returns a copy that logs through l.
func (m *SMTP) WithLogger(l *zap.Logger) *SMTP {
	if l == nil {
		return m
	}
	cp := *m
	cp.log = l.With(zap.String("component", "mail.smtp"))
	return &cp
}

// Send delivers one message. The context bounds the whole exchange.
func (m *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	subj := strings.TrimSpace(m.subjPrefix + " " + subject)
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subj, "\r\n") {
		return ErrHeaderInjection
	}
	msg := buildMessage(m.from, to, subj, htmlBody, m.now())

	start := time.Now()
	log := m.log.With(
		zap.String("smtp_addr", m.addr),
		zap.Bool("tls", m.useTLS),
		zap.String("to", to),
		zap.String("subject", subj),
	)

	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dialer := net.Dialer{Deadline: deadline}

	var conn net.Conn
	var err error
	if m.useTLS {
		conn, err = (&tls.Dialer{NetDialer: &dialer, Config: &tls.Config{ServerName: host(m.addr)}}).DialContext(ctx, "tcp", m.addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", m.addr)
	}
	if err != nil {
		log.Warn("smtp dial failed", zap.Error(err))
		return fmt.Errorf("mail: dial: %w", err)
	}
	_ = conn.SetDeadline(deadline)

	if err := m.deliver(conn, to, msg); err != nil {
		log.Warn("smtp delivery failed", zap.Error(err))
		return err
	}
	log.Debug("email sent", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (m *SMTP) deliver(conn net.Conn, to string, msg []byte) error {
	c, err := smtp.NewClient(conn, host(m.addr))
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mail: client: %w", err)
	}
	defer func() { _ = c.Close() }()

	if !m.useTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host(m.addr)}); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(m.auth); err != nil {
				return fmt.Errorf("mail: auth: %w", err)
			}
		}
	}
	if err := c.Mail(m.from); err != nil {
		return fmt.Errorf("mail: MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("mail: RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("mail: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close data: %w", err)
	}
	return c.Quit()
}

func buildMessage(from, to, subject, htmlBody string, at time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(htmlBody, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func host(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}

// Log records messages instead of sending them.
type Log struct {
	log *zap.Logger
}

// NewLog returns a mailer that logs at Info. A nil logger discards.
func NewLog(l *zap.Logger) *Log {
	if l == nil {
		l = zap.NewNop()
	}
	return &Log{log: l.With(zap.String("component", "mail.log"))}
}

// Send implements gatekeeper.Mailer.
func (m *Log) Send(_ context.Context, to, subject, htmlBody string) error {
	m.log.Info("email",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)),
	)
	return nil
}
