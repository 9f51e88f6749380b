package jobs

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends transactional email.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPConfig configures the SMTP mailer. User and Pass are optional; without
// credentials the mailer speaks plain SMTP, which keeps local Mailpit setups
// working.
type SMTPConfig struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

// SMTPMailer delivers mail over SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer constructs an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("jobs: send mail to %s: %w", to, err)
	}
	return nil
}
