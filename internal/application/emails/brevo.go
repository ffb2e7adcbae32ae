package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches the Brevo API v3 transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoAddress   `json:"sender"`
	To          []BrevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	ReplyTo     *BrevoAddress  `json:"replyTo,omitempty"`
}

type BrevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender sends transactional emails. A nil Sender means email is unavailable.
type Sender interface {
	SendWelcome(ctx context.Context, msg WelcomeMessage) error
	SendInviteCode(ctx context.Context, msg InviteCodeMessage) error
}

// WelcomeMessage is sent after a successful redemption.
type WelcomeMessage struct {
	ToEmail          string
	FirstName        string
	OrganizationName string
	RegionName       string
	MemberNumber     string
}

// InviteCodeMessage shares an invite code with a prospective member.
type InviteCodeMessage struct {
	ToEmail          string
	Code             string
	OrganizationName string
	RegionName       string
	JoinLink         string
	ExpiresAt        *time.Time
}

// BrevoClient sends emails via Brevo (Sendinblue). Env: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string // defaults to the Brevo API; overridden in tests
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@soilofafrica.org"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoAddress{Email: c.from(), Name: "Soil of Africa"},
		To:          []BrevoAddress{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoAddress{Email: supportEmail, Name: "Soil of Africa Support"},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *BrevoClient) SendWelcome(ctx context.Context, msg WelcomeMessage) error {
	name := msg.FirstName
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Welcome to %s", msg.OrganizationName)
	return c.send(ctx, msg.ToEmail, subject, EmailLayout(welcomeContent(name, msg)))
}

func (c *BrevoClient) SendInviteCode(ctx context.Context, msg InviteCodeMessage) error {
	subject := fmt.Sprintf("Your invite code to join %s", msg.OrganizationName)
	return c.send(ctx, msg.ToEmail, subject, EmailLayout(inviteCodeContent(msg)))
}

func welcomeContent(name string, msg WelcomeMessage) string {
	return fmt.Sprintf(`
    <h1>Welcome, %s!</h1>
    <p>Your application to join <strong>%s</strong> (%s) has been received.</p>
    <p>Your member number is <strong>%s</strong>. Keep it handy; you will need it when contacting your regional office.</p>
    <p>Your membership is pending verification. We will let you know as soon as it is active.</p>
`, EscapeHTML(name), EscapeHTML(msg.OrganizationName), EscapeHTML(msg.RegionName), EscapeHTML(msg.MemberNumber))
}

func inviteCodeContent(msg InviteCodeMessage) string {
	expiry := ""
	if msg.ExpiresAt != nil {
		expiry = fmt.Sprintf(`<p style="font-size:14px;color:%s;">This code expires on %s.</p>`, themeTextMuted, msg.ExpiresAt.Format("2 January 2006"))
	}
	return fmt.Sprintf(`
    <h1>You're invited to join %s</h1>
    <p>Use the code below to register as a member in <strong>%s</strong>.</p>
    <p style="text-align:center;"><span class="soa-code">%s</span></p>
    <p style="text-align:center;"><a href="%s" class="soa-button">Join now</a></p>
    %s
`, EscapeHTML(msg.OrganizationName), EscapeHTML(msg.RegionName), EscapeHTML(msg.Code), msg.JoinLink, expiry)
}
