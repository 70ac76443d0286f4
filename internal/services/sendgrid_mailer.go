package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/serenablake/practice-site/internal/models"
)

type SendGridMailer struct {
	APIKey     string
	FromEmail  string
	ToEmail    string
	FromName   string
	HTTPClient *http.Client
	Endpoint   string

	policy *bluemonday.Policy
}

func NewSendGridMailer(apiKey string, fromEmail string, toEmail string) *SendGridMailer {
	return &SendGridMailer{
		APIKey:    strings.TrimSpace(apiKey),
		FromEmail: strings.TrimSpace(fromEmail),
		ToEmail:   strings.TrimSpace(toEmail),
		FromName:  "Consultation Request Form",
		Endpoint:  "https://api.sendgrid.com/v3/mail/send",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		policy: bluemonday.StrictPolicy(),
	}
}

// Configured reports whether every setting needed to send is present.
func (m *SendGridMailer) Configured() bool {
	return m != nil && m.APIKey != "" && m.FromEmail != "" && m.ToEmail != ""
}

type sendGridEmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To         []sendGridEmailAddress `json:"to"`
	Subject    string                 `json:"subject"`
	CustomArgs map[string]string      `json:"custom_args,omitempty"`
}

type sendGridMailSendRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridEmailAddress      `json:"from"`
	ReplyTo          *sendGridEmailAddress     `json:"reply_to,omitempty"`
	Content          []sendGridContent         `json:"content"`
}

func (m *SendGridMailer) SendInquiryEmail(ctx context.Context, ticket string, fields models.ContactFields) error {
	if m == nil {
		return fmt.Errorf("sendgrid mailer not configured")
	}
	if m.APIKey == "" {
		return fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if m.FromEmail == "" {
		return fmt.Errorf("missing CONTACT_FROM_EMAIL")
	}
	if m.ToEmail == "" {
		return fmt.Errorf("missing CONTACT_TO_EMAIL")
	}

	name := strings.TrimSpace(fields.Name)
	email := strings.TrimSpace(fields.Email)
	subject := fmt.Sprintf("Consultation Request: #%s", ticket)

	reqBody := sendGridMailSendRequest{
		Personalizations: []sendGridPersonalization{
			{
				To:      []sendGridEmailAddress{{Email: m.ToEmail}},
				Subject: subject,
				CustomArgs: map[string]string{
					"ticket": ticket,
				},
			},
		},
		From: sendGridEmailAddress{
			Email: m.FromEmail,
			Name:  m.FromName,
		},
		ReplyTo: &sendGridEmailAddress{
			Email: email,
			Name:  name,
		},
		Content: []sendGridContent{
			{Type: "text/plain", Value: m.plainBody(ticket, fields)},
			{Type: "text/html", Value: m.htmlBody(ticket, fields)},
		},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid mail send: %w", err)
	}
	defer resp.Body.Close()

	// SendGrid returns 202 Accepted on success.
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid mail send http %d", resp.StatusCode)
	}
	return nil
}

func (m *SendGridMailer) plainBody(ticket string, f models.ContactFields) string {
	msg := strings.TrimSpace(f.Message)
	if msg == "" {
		msg = "(empty message)"
	}
	return fmt.Sprintf(
		"Consultation request: %s\nFrom: %s <%s>\nPhone: %s\nPreferred time: %s\nConsent to contact: %t\n\nMessage:\n%s\n",
		ticket,
		strings.TrimSpace(f.Name),
		strings.TrimSpace(f.Email),
		strings.TrimSpace(f.Phone),
		strings.TrimSpace(f.PreferredTime),
		f.Consent,
		msg,
	)
}

// htmlBody strips any markup the visitor typed before it lands in the
// practice's inbox.
func (m *SendGridMailer) htmlBody(ticket string, f models.ContactFields) string {
	p := m.policy
	if p == nil {
		p = bluemonday.StrictPolicy()
	}
	clean := func(s string) string { return p.Sanitize(strings.TrimSpace(s)) }

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Consultation request %s</h2>", clean(ticket))
	b.WriteString("<table>")
	fmt.Fprintf(&b, "<tr><th>Name</th><td>%s</td></tr>", clean(f.Name))
	fmt.Fprintf(&b, "<tr><th>Email</th><td>%s</td></tr>", clean(f.Email))
	fmt.Fprintf(&b, "<tr><th>Phone</th><td>%s</td></tr>", clean(f.Phone))
	fmt.Fprintf(&b, "<tr><th>Preferred time</th><td>%s</td></tr>", clean(f.PreferredTime))
	fmt.Fprintf(&b, "<tr><th>Consent</th><td>%t</td></tr>", f.Consent)
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p>%s</p>", strings.ReplaceAll(clean(f.Message), "\n", "<br>"))
	return b.String()
}
