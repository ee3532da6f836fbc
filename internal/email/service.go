package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/config"
)

// Service sends transactional email through the Resend API. When the service
// is disabled (no API key configured), sends are logged and skipped so
// development environments work without credentials.
type Service struct {
	config       config.EmailConfig
	resendClient *resend.Client
	logger       zerolog.Logger
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	var client *resend.Client
	if cfg.Enabled {
		client = resend.NewClient(cfg.ResendAPIKey)
	}

	return &Service{
		config:       cfg,
		resendClient: client,
		logger:       logger.With().Str("component", "email").Logger(),
	}, nil
}

// InvitationData feeds the invitation template.
type InvitationData struct {
	InvitedBy   string
	InviteLink  string
	CurrentYear int
}

var invitationTmpl = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <h2>You have been invited to VitalPages</h2>
  <p>{{.InvitedBy}} has invited you to the VitalPages admin panel.</p>
  <p><a href="{{.InviteLink}}">Set up your account</a></p>
  <p>This link expires in 7 days. If you were not expecting this invitation you can ignore it.</p>
  <p style="color: #6b7280; font-size: 12px;">&copy; {{.CurrentYear}} VitalPages</p>
</body>
</html>`))

// ContactNotificationData feeds the new-submission notification template.
type ContactNotificationData struct {
	Name        string
	Email       string
	Phone       string
	Message     string
	SubmittedAt string
}

var contactTmpl = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <h2>New contact form submission</h2>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  {{if .Phone}}<p><strong>Phone:</strong> {{.Phone}}</p>{{end}}
  <p><strong>Message:</strong></p>
  <p>{{.Message}}</p>
  <p style="color: #6b7280; font-size: 12px;">Received {{.SubmittedAt}}</p>
</body>
</html>`))

// SendInvitation emails an account-setup link to a new admin user.
func (s *Service) SendInvitation(ctx context.Context, to, inviteLink, invitedBy string) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	if err := validateLinkURL(inviteLink); err != nil {
		return fmt.Errorf("invalid invite link: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("invited_by", invitedBy).
			Str("link", inviteLink).
			Msg("email service disabled, skipping invitation email")
		return nil
	}

	body, err := render(invitationTmpl, InvitationData{
		InvitedBy:   invitedBy,
		InviteLink:  inviteLink,
		CurrentYear: time.Now().Year(),
	})
	if err != nil {
		return err
	}

	return s.send(ctx, to, "Welcome to VitalPages - Set Up Your Account", body)
}

// SendContactNotification alerts the practice inbox about a new contact form
// submission.
func (s *Service) SendContactNotification(ctx context.Context, to string, data ContactNotificationData) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().Str("to", to).Msg("email service disabled, skipping contact notification")
		return nil
	}

	body, err := render(contactTmpl, data)
	if err != nil {
		return err
	}

	return s.send(ctx, to, "New contact form submission", body)
}

// SendCampaignMessage sends one pre-rendered campaign email to a recipient.
func (s *Service) SendCampaignMessage(ctx context.Context, to, subject, htmlBody string) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().Str("to", to).Str("subject", subject).Msg("email service disabled, skipping campaign message")
		return nil
	}

	return s.send(ctx, to, subject, htmlBody)
}

func (s *Service) send(ctx context.Context, to, subject, htmlBody string) error {
	if s.resendClient == nil {
		return fmt.Errorf("resend client not initialized")
	}

	params := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, params)
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			s.logger.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
			return fmt.Errorf("email rate limit exceeded (resets in %s seconds): %w", rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Info().Str("email_id", sent.Id).Str("to", to).Msg("email sent")
	return nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return buf.String(), nil
}

// validateEmailAddress rejects malformed addresses and header injection.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

// validateLinkURL rejects non-http(s) links so javascript: and data: URLs
// never reach an email body.
func validateLinkURL(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
