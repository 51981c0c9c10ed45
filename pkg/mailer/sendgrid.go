// Package mailer delivers plain-text transactional email through SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

var ErrNoRecipient = errors.New("email recipient address is required")

// Message is a single plain-text email.
type Message struct {
	ToAddress string
	ToName    string
	Subject   string
	Text      string
}

// Sender is implemented by anything that can deliver a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer sends through the SendGrid v3 mail API.
type SendGridMailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridMailer(key, fromName, fromAddress string) *SendGridMailer {
	prefix := ""
	if name := strings.TrimSpace(fromName); name != "" {
		prefix = "[" + name + "] "
	}
	return &SendGridMailer{
		key:        strings.TrimSpace(key),
		host:       host,
		from:       sgmail.NewEmail(fromName, fromAddress),
		subjPrefix: prefix,
	}
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	return v3
}

// Send delivers msg within ctx's deadline. A 4xx or 5xx response from SendGrid is returned as an
// error so the caller can retry.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToAddress) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(m.key, endpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected message: status=%d body=%s", res.StatusCode, truncate(res.Body, 300))
	}
	return nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

// LogMailer stands in when no SendGrid key is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.Printf("level=warn component=mailer mode=fallback msg=\"email skipped\" to=%s subject=%q", msg.ToAddress, msg.Subject)
	return nil
}
