// Package reviews submits a review and then reloads the book's review list as
// one unit of work.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/dabooks/internal/client/client"
	"github.com/dmitrijs2005/dabooks/internal/client/models"
	"github.com/dmitrijs2005/dabooks/internal/logging"
)

var (
	// ErrSubmitInFlight rejects a submit while the same form is still busy.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrValidation means the input was rejected before any network call.
	ErrValidation = errors.New("invalid review")
)

// API is the part of the client the form needs.
type API interface {
	AddReview(ctx context.Context, bookID string, in models.ReviewInput, token string) (*models.Review, error)
	ListReviews(ctx context.Context, bookID, token string) ([]models.Review, error)
}

// Result of a successful submit. When the follow-up reload failed, Reviews is
// nil and RefreshErr is set; the review itself was stored.
type Result struct {
	Reviews    []models.Review
	RefreshErr error
}

// Form guards one review form. The zero value is not usable; use NewForm.
type Form struct {
	api      API
	logger   logging.Logger
	inFlight atomic.Bool
}

func NewForm(api API, logger logging.Logger) *Form {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Form{api: api, logger: logger}
}

// Validate checks the input the way the form's required fields do.
func Validate(in models.ReviewInput) error {
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("%w: review text is required", ErrValidation)
	}
	if in.Rating < models.MinRating || in.Rating > models.MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, models.MinRating, models.MaxRating)
	}
	return nil
}

// Submit posts in for bookID and, once the post succeeded, reloads the
// review list. A missing token fails with client.ErrAuthenticationRequired
// and a second call while one is running fails with ErrSubmitInFlight; in
// both cases nothing is sent. A failed post is returned as is so the caller
// can keep the form open.
func (f *Form) Submit(ctx context.Context, bookID string, in models.ReviewInput, token string) (*Result, error) {
	if token == "" {
		return nil, client.ErrAuthenticationRequired
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmitInFlight
	}
	defer f.inFlight.Store(false)

	if _, err := f.api.AddReview(ctx, bookID, in, token); err != nil {
		f.logger.Warn(ctx, "review submission failed", "book_id", bookID, "error", err)
		return nil, err
	}

	reviews, err := f.api.ListReviews(ctx, bookID, token)
	if err != nil {
		f.logger.Warn(ctx, "review list refresh failed after submit", "book_id", bookID, "error", err)
		return &Result{RefreshErr: err}, nil
	}

	f.logger.Info(ctx, "review submitted", "book_id", bookID, "rating", in.Rating)
	return &Result{Reviews: reviews}, nil
}

// InFlight reports whether a submission is running.
func (f *Form) InFlight() bool {
	return f.inFlight.Load()
}

// Load fetches the current review list for bookID.
func (f *Form) Load(ctx context.Context, bookID, token string) ([]models.Review, error) {
	return f.api.ListReviews(ctx, bookID, token)
}
