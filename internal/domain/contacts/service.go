package contacts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/email"
	"github.com/vitalpages/server/internal/sanitize"
)

// Publisher receives contact lifecycle events (webhook fan-out).
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]any)
}

// Service handles contact form intake and the admin inbox.
type Service struct {
	repo        Repository
	captcha     CaptchaVerifier
	emailSvc    *email.Service
	publisher   Publisher
	staffNotify string
	logger      zerolog.Logger
}

func NewService(
	repo Repository,
	captcha CaptchaVerifier,
	emailSvc *email.Service,
	publisher Publisher,
	staffNotify string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		captcha:     captcha,
		emailSvc:    emailSvc,
		publisher:   publisher,
		staffNotify: staffNotify,
		logger:      logger.With().Str("component", "contacts").Logger(),
	}
}

// SubmitParams contains the public form fields plus request metadata.
type SubmitParams struct {
	Name         string
	Email        string
	Phone        string
	Message      string
	CaptchaToken string
	RemoteIP     string
}

// Submit verifies the captcha, stores the submission, notifies staff, and
// emits contact.created. Notification failures never lose the submission.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Submission, error) {
	if err := s.captcha.Verify(ctx, params.CaptchaToken, params.RemoteIP); err != nil {
		return Submission{}, err
	}

	name := sanitize.Text(strings.TrimSpace(params.Name))
	message := sanitize.Text(strings.TrimSpace(params.Message))
	if name == "" || message == "" {
		return Submission{}, fmt.Errorf("name and message are required")
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return Submission{}, fmt.Errorf("invalid email address")
	}

	submission := Submission{
		ID:        ulid.Make().String(),
		Name:      name,
		Email:     params.Email,
		Phone:     sanitize.Text(strings.TrimSpace(params.Phone)),
		Message:   message,
		SourceIP:  params.RemoteIP,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreateSubmission(ctx, submission)
	if err != nil {
		return Submission{}, fmt.Errorf("store submission: %w", err)
	}

	if s.staffNotify != "" {
		notifyErr := s.emailSvc.SendContactNotification(ctx, s.staffNotify, email.ContactNotificationData{
			Name:        created.Name,
			Email:       created.Email,
			Phone:       created.Phone,
			Message:     created.Message,
			SubmittedAt: created.CreatedAt.Format(time.RFC1123),
		})
		if notifyErr != nil {
			s.logger.Error().Err(notifyErr).Str("submission_id", created.ID).Msg("staff notification failed")
		}
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, "contact.created", map[string]any{
			"submission_id": created.ID,
			"name":          created.Name,
			"email":         created.Email,
		})
	}

	s.logger.Info().Str("submission_id", created.ID).Msg("contact submission received")
	return created, nil
}

func (s *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return s.repo.GetSubmission(ctx, id)
}

func (s *Service) MarkRead(ctx context.Context, id string, read bool) error {
	if _, err := s.repo.GetSubmission(ctx, id); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id, read)
}

func (s *Service) DeleteSubmission(ctx context.Context, id string) error {
	if _, err := s.repo.GetSubmission(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteSubmission(ctx, id)
}

func (s *Service) ListSubmissions(ctx context.Context, filters ListFilters) ([]Submission, int, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}
	return s.repo.ListSubmissions(ctx, filters)
}
