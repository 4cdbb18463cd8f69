package notify

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// MailgunSink sends notifications as plain-text email via Mailgun.
type MailgunSink struct {
	domain string
	apiKey string
	sender string
}

// NewMailgunSink creates a sink for the given Mailgun domain and sender.
func NewMailgunSink(domain, apiKey, sender string) *MailgunSink {
	return &MailgunSink{domain: domain, apiKey: apiKey, sender: sender}
}

// Send delivers one email via Mailgun.
func (m *MailgunSink) Send(ctx context.Context, to, subject, body string) error {
	client := mg.NewMailgun(m.domain, m.apiKey)
	msg := client.NewMessage(m.sender, subject, body, to)

	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, _, err := client.Send(c, msg); err != nil {
		return fmt.Errorf("mailgun send to %s failed: %w", to, err)
	}
	return nil
}
