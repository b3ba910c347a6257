package integrations

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dmitchell6/trello-weekly-report/internal/config"
)

// Mailer sends rendered reports over SMTP with STARTTLS. The pack of
// settings comes straight from config; nothing here is mutable after startup.
type Mailer struct {
	host      string
	port      string
	username  string
	password  string
	recipient string
}

func NewMailer(cfg *config.Config) (*Mailer, error) {
	if !cfg.EmailEnabled() {
		return nil, fmt.Errorf("email is not configured: EMAIL_SMTP_SERVER and EMAIL_RECIPIENT are required")
	}
	port := cfg.SMTPPort
	if port == "" {
		port = "587"
	}
	return &Mailer{
		host:      cfg.SMTPHost,
		port:      port,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		recipient: cfg.EmailRecipient,
	}, nil
}

// Send delivers htmlBody as a text/html message. Single attempt, like every
// other outbound call in this service.
func (m *Mailer) Send(subject, htmlBody string) error {
	msg := strings.Join([]string{
		"From: " + m.username,
		"To: " + m.recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		htmlBody,
	}, "\r\n")

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.username, []string{m.recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send report email: %v", err)
	}
	return nil
}
