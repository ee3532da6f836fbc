package contacts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSubmissionNotFound = errors.New("contact submission not found")
	ErrCaptchaFailed      = errors.New("captcha verification failed")
)

// Submission is one contact form entry from the public site.
type Submission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
	SourceIP  string    `json:"-"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilters narrows ListSubmissions results.
type ListFilters struct {
	Unread *bool
	Limit  int
	Offset int
}

// Repository is the persistence contract for submissions.
type Repository interface {
	CreateSubmission(ctx context.Context, submission Submission) (Submission, error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	MarkRead(ctx context.Context, id string, read bool) error
	DeleteSubmission(ctx context.Context, id string) error
	ListSubmissions(ctx context.Context, filters ListFilters) ([]Submission, int, error)
}
