// Package mail sends transactional mails as a best-effort event
// subscriber. A failed mail never fails the operation that triggered it.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers one HTML mail.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Config holds the SMTP relay settings.
type Config struct {
	Host string
	Port int
	From string
}

// DefaultConfig targets the local relay the way the canteen host runs it.
func DefaultConfig() Config {
	return Config{Host: "localhost", Port: 25, From: "treo@fklub.dk"}
}

// SMTPMailer sends through a plain SMTP relay without authentication.
type SMTPMailer struct {
	config Config
}

// NewSMTPMailer creates a mailer over the given relay.
func NewSMTPMailer(config Config) *SMTPMailer {
	return &SMTPMailer{config: config}
}

// Send delivers a single HTML mail.
func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	if subject != "" {
		fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	}
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	if err := smtp.SendMail(addr, nil, m.config.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
