package contact

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// SMTPConfig holds the mail relay settings used for notifications.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// Mailer emails the site owner about new submissions.
type Mailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg SMTPConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Configured reports whether credentials are present.
func (m *Mailer) Configured() bool {
	return m.cfg.User != "" && m.cfg.Pass != ""
}

// Notify sends the submission to the owner. It gives up when ctx is done;
// the relay conversation then finishes in the background.
func (m *Mailer) Notify(ctx context.Context, s Submission) error {
	if !m.Configured() {
		return errors.New("SMTP credentials not configured")
	}

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	done := make(chan error, 1)
	go func() {
		done <- m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.User, []string{m.cfg.To}, m.compose(s))
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	m.logger.Info("contact email sent", zap.String("name", s.Name), zap.String("email", s.Email))
	return nil
}

func (m *Mailer) compose(s Submission) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", s.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Subject: %s
Message:
%s

---
Sent from your portfolio contact form
`, s.Name, s.Email, s.Subject, s.Message)

	return []byte("To: " + m.cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + m.cfg.User + "\r\n" +
		"Reply-To: " + s.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")
}
