package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"atlab/internal/booking"
)

const subject = "AT Lab Appointment Confirmation"

// SMTPConfig holds the outgoing mail account.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer sends confirmation emails. net/smtp upgrades to STARTTLS when offered.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer. From defaults to Username.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers the confirmation for c.
func (m *SMTPMailer) Send(ctx context.Context, c booking.Confirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	return m.send(addr, auth, m.cfg.From, []string{c.Email}, Compose(m.cfg.From, c))
}

// Compose renders the RFC 5322 message for c.
func Compose(from string, c booking.Confirmation) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", c.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(Body(c), "\n", "\r\n"))
	return []byte(b.String())
}

// Body is the plain-text confirmation.
func Body(c booking.Confirmation) string {
	return fmt.Sprintf(`Hi %s,

Your appointment has been successfully booked for:

%s @ %s

See you at the AT Lab!

- Cuesta College`, c.Name, c.Slot, c.Campus)
}
