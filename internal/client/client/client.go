package client

import (
	"context"

	"github.com/dmitrijs2005/dabooks/internal/client/models"
)

// Client is the typed surface of the book-review API. Operations that take a
// token send it as a bearer credential; an empty token means anonymous.
type Client interface {
	Close() error
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResult, error)
	Register(ctx context.Context, reg models.Registration) error
	ListBooks(ctx context.Context, q models.BookQuery, token string) (*models.Page[models.Book], error)
	GetBook(ctx context.Context, id, token string) (*models.Book, error)
	ListReviews(ctx context.Context, bookID, token string) ([]models.Review, error)
	AddReview(ctx context.Context, bookID string, in models.ReviewInput, token string) (*models.Review, error)
	SearchUsers(ctx context.Context, query, token string) ([]models.UserSummary, error)
	GetProfile(ctx context.Context, token string) (*models.Profile, error)
	GetPublicProfile(ctx context.Context, userID, token string) (*models.Profile, error)
	GetProfileReviews(ctx context.Context, token string) ([]models.ProfileReview, error)
}
