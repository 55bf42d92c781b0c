package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"

	"qapages/config"
	"qapages/errors"
)

// Email sends notifications over SMTP with PLAIN auth.
type Email struct {
	Server   string
	Port     int
	Username string
	Password string
	To       string
	Project  string
}

// NewEmail builds an email notifier from configuration.
func NewEmail(cfg config.EmailConfig, project string) *Email {
	return &Email{
		Server:   cfg.SMTPServer,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		To:       cfg.To,
		Project:  project,
	}
}

// Enabled reports whether credentials and a recipient are set.
func (e *Email) Enabled() bool {
	return e.Username != "" && e.Password != "" && e.To != "" && e.Server != ""
}

// Send mails msg. The HTML body is preferred when present.
func (e *Email) Send(ctx context.Context, msg Message) error {
	if !e.Enabled() {
		return fmt.Errorf("%w: email username, password and recipient are required", errors.ErrNotificationDisabled)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(e.Server, strconv.Itoa(e.Port))
	auth := smtp.PlainAuth("", e.Username, e.Password, e.Server)
	return errors.Wrapf(e.build(msg).Send(addr, auth), "send email via %s", addr)
}

func (e *Email) build(msg Message) *email.Email {
	m := email.NewEmail()
	m.From = e.Username
	m.To = []string{e.To}
	m.Subject = msg.Subject
	if e.Project != "" {
		m.Subject = "[" + e.Project + "] " + msg.Subject
	}
	if msg.HTML != "" {
		m.HTML = []byte(msg.HTML)
	} else {
		m.Text = []byte(msg.Text)
	}
	return m
}
