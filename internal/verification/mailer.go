package verification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, to, name, code string) error
}

type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

func NewSMTPMailer(addr, username, password, from string) *SMTPMailer {
	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{Addr: addr, From: from, Auth: auth}
}

func (m *SMTPMailer) Send(ctx context.Context, to, name, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your verification code\r\n\r\nHi %s,\r\n\r\nYour verification code is %s. It expires in %d minutes.\r\n",
		m.From, to, name, code, int(CodeTTL.Minutes()),
	)

	if err := smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// NopMailer drops mail on the floor. Used in tests and local development
// without an SMTP relay.
type NopMailer struct{}

func (NopMailer) Send(ctx context.Context, to, name, code string) error { return nil }
