package jobs

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers plain-text mail through a relay without
// authentication, which fits the local Mailpit setup.
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender constructs an SMTPSender for host:port.
func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

// Send delivers one message. The context is not honoured mid-dial, net/smtp
// offers no hook for it, so callers should keep timeouts at the task level.
func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

var _ EmailSender = (*SMTPSender)(nil)
